package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

type CreateContestInput struct {
	SeriesID            int     `json:"series_id"`
	Name                string  `json:"name"`
	Gender              *string `json:"gender,omitempty"`
	BirthYearFrom       *int    `json:"birth_year_from,omitempty"`
	BirthYearTo         *int    `json:"birth_year_to,omitempty"`
	ParticipationPoints int     `json:"participation_points"`
	Group               *string `json:"group,omitempty"`
	Comment             *string `json:"comment,omitempty"`
	DurationMinutes     *int    `json:"duration_minutes,omitempty"`
}

type UpdateContestInput struct {
	Name                *string `json:"name,omitempty"`
	Gender              *string `json:"gender,omitempty"`
	BirthYearFrom       *int    `json:"birth_year_from,omitempty"`
	BirthYearTo         *int    `json:"birth_year_to,omitempty"`
	ParticipationPoints *int    `json:"participation_points,omitempty"`
	Group               *string `json:"group,omitempty"`
	Comment             *string `json:"comment,omitempty"`
	DurationMinutes     *int    `json:"duration_minutes,omitempty"`
}

type ContestService interface {
	Create(ctx context.Context, input CreateContestInput) (*models.Contest, error)
	GetByID(ctx context.Context, id int) (*models.Contest, error)
	GetDetail(ctx context.Context, id int) (*models.Contest, error)
	ListBySeries(ctx context.Context, seriesID int) ([]models.Contest, error)
	Update(ctx context.Context, id int, input UpdateContestInput) (*models.Contest, error)
	Delete(ctx context.Context, id int) error
}

type contestService struct {
	db                TxBeginner
	contestRepo       repositories.ContestRepository
	seriesRepo        repositories.SeriesRepository
	raceRepo          repositories.RaceRepository
	participantRepo   repositories.ParticipantRepository
	participationRepo repositories.ParticipationRepository
	hub               *live.Hub
	logger            *slog.Logger
}

func NewContestService(
	db TxBeginner,
	contestRepo repositories.ContestRepository,
	seriesRepo repositories.SeriesRepository,
	raceRepo repositories.RaceRepository,
	participantRepo repositories.ParticipantRepository,
	participationRepo repositories.ParticipationRepository,
	hub *live.Hub,
	logger *slog.Logger,
) ContestService {
	return &contestService{
		db:                db,
		contestRepo:       contestRepo,
		seriesRepo:        seriesRepo,
		raceRepo:          raceRepo,
		participantRepo:   participantRepo,
		participationRepo: participationRepo,
		hub:               hub,
		logger:            logger,
	}
}

func validateYearRange(from, to *int) error {
	if from != nil && to != nil && *from > *to {
		return ErrContestInvalidYearRange
	}
	return nil
}

func (s *contestService) Create(ctx context.Context, input CreateContestInput) (*models.Contest, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrContestNameRequired
	}
	if err := validateYearRange(input.BirthYearFrom, input.BirthYearTo); err != nil {
		return nil, err
	}
	if _, err := s.seriesRepo.GetByID(ctx, input.SeriesID); err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	contest := &models.Contest{
		SeriesID:            input.SeriesID,
		Name:                strings.TrimSpace(input.Name),
		Gender:              input.Gender,
		BirthYearFrom:       input.BirthYearFrom,
		BirthYearTo:         input.BirthYearTo,
		ParticipationPoints: input.ParticipationPoints,
		Group:               input.Group,
		Comment:             input.Comment,
		DurationMinutes:     input.DurationMinutes,
	}
	if err := s.contestRepo.Create(ctx, contest); err != nil {
		if errors.Is(err, repositories.ErrContestInvalidSeries) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}

	s.publish(contest.ID)
	return contest, nil
}

func (s *contestService) GetByID(ctx context.Context, id int) (*models.Contest, error) {
	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}
	return contest, nil
}

// GetDetail возвращает зачет вместе с серией, гонками и участниками.
func (s *contestService) GetDetail(ctx context.Context, id int) (*models.Contest, error) {
	contest, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	series, err := s.seriesRepo.GetByID(ctx, contest.SeriesID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	contest.Series = series

	races, err := s.raceRepo.ListByContest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list races for contest %d: %w", id, err)
	}
	contest.Races = races

	participants, err := s.participantRepo.ListByContest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for contest %d: %w", id, err)
	}
	contest.Participants = participants

	return contest, nil
}

func (s *contestService) ListBySeries(ctx context.Context, seriesID int) ([]models.Contest, error) {
	if _, err := s.seriesRepo.GetByID(ctx, seriesID); err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	return s.contestRepo.ListBySeries(ctx, seriesID)
}

func (s *contestService) Update(ctx context.Context, id int, input UpdateContestInput) (*models.Contest, error) {
	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrContestNameRequired
		}
		contest.Name = name
	}
	if input.Gender != nil {
		contest.Gender = input.Gender
	}
	if input.BirthYearFrom != nil {
		contest.BirthYearFrom = input.BirthYearFrom
	}
	if input.BirthYearTo != nil {
		contest.BirthYearTo = input.BirthYearTo
	}
	if err := validateYearRange(contest.BirthYearFrom, contest.BirthYearTo); err != nil {
		return nil, err
	}
	if input.ParticipationPoints != nil {
		contest.ParticipationPoints = *input.ParticipationPoints
	}
	if input.Group != nil {
		contest.Group = input.Group
	}
	if input.Comment != nil {
		contest.Comment = input.Comment
	}
	if input.DurationMinutes != nil {
		contest.DurationMinutes = input.DurationMinutes
	}

	if err := s.contestRepo.Update(ctx, contest); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	s.publish(contest.ID)
	return contest, nil
}

// Delete каскадно удаляет зачет: участия, участники, гонки, затем сам
// зачет — в одной транзакции. Порядок важен из-за внешних ключей.
func (s *contestService) Delete(ctx context.Context, id int) error {
	if _, err := s.contestRepo.GetByID(ctx, id); err != nil {
		return mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	err := runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.participationRepo.DeleteByContest(ctx, exec, id); err != nil {
			return err
		}
		if err := s.participantRepo.DeleteByContest(ctx, exec, id); err != nil {
			return err
		}
		if err := s.raceRepo.DeleteByContest(ctx, exec, id); err != nil {
			return err
		}
		return s.contestRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	s.publish(id)
	return nil
}

func (s *contestService) publish(contestID int) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventContestUpdated, map[string]int{"contest_id": contestID})
}
