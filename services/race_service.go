package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

type CreateRaceInput struct {
	EventID   int     `json:"event_id"`
	ContestID int     `json:"contest_id"`
	StartTime *string `json:"start_time,omitempty"`
}

type UpdateRaceInput struct {
	StartTime *string `json:"start_time,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type RaceService interface {
	Create(ctx context.Context, input CreateRaceInput) (*models.Race, error)
	GetByID(ctx context.Context, id int) (*models.Race, error)
	GetDetail(ctx context.Context, id int) (*models.Race, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.Race, error)
	ListByContest(ctx context.Context, contestID int) ([]models.Race, error)
	Update(ctx context.Context, id int, input UpdateRaceInput) (*models.Race, error)
	UpdateStatus(ctx context.Context, id int, status models.RaceStatus) (*models.Race, error)
	Delete(ctx context.Context, id int) error
}

type raceService struct {
	db                TxBeginner
	raceRepo          repositories.RaceRepository
	eventRepo         repositories.EventRepository
	contestRepo       repositories.ContestRepository
	participationRepo repositories.ParticipationRepository
	hub               *live.Hub
	logger            *slog.Logger
}

func NewRaceService(
	db TxBeginner,
	raceRepo repositories.RaceRepository,
	eventRepo repositories.EventRepository,
	contestRepo repositories.ContestRepository,
	participationRepo repositories.ParticipationRepository,
	hub *live.Hub,
	logger *slog.Logger,
) RaceService {
	return &raceService{
		db:                db,
		raceRepo:          raceRepo,
		eventRepo:         eventRepo,
		contestRepo:       contestRepo,
		participationRepo: participationRepo,
		hub:               hub,
		logger:            logger,
	}
}

func parseRaceStatus(raw string) (models.RaceStatus, error) {
	switch status := models.RaceStatus(raw); status {
	case models.RaceStatusScheduled, models.RaceStatusOngoing, models.RaceStatusCompleted:
		return status, nil
	default:
		return "", ErrRaceInvalidStatus
	}
}

// Create создает гонку (зачет на этапе). Этап и зачет могут принадлежать
// разным сериям: ограничения на это нет ни в схеме, ни в бизнес-правилах.
func (s *raceService) Create(ctx context.Context, input CreateRaceInput) (*models.Race, error) {
	if _, err := s.eventRepo.GetByID(ctx, input.EventID); err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}
	if _, err := s.contestRepo.GetByID(ctx, input.ContestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	race := &models.Race{
		EventID:   input.EventID,
		ContestID: input.ContestID,
		StartTime: input.StartTime,
		Status:    models.RaceStatusScheduled,
	}
	if err := s.raceRepo.Create(ctx, race); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRaceInvalidEvent):
			return nil, ErrEventNotFound
		case errors.Is(err, repositories.ErrRaceInvalidContest):
			return nil, ErrContestNotFound
		}
		return nil, err
	}

	s.publishRaceUpdate(race)
	return race, nil
}

func (s *raceService) GetByID(ctx context.Context, id int) (*models.Race, error) {
	race, err := s.raceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}
	return race, nil
}

// GetDetail возвращает гонку вместе с этапом и зачетом.
func (s *raceService) GetDetail(ctx context.Context, id int) (*models.Race, error) {
	race, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, race.EventID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}
	race.Event = event

	contest, err := s.contestRepo.GetByID(ctx, race.ContestID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}
	race.Contest = contest

	return race, nil
}

func (s *raceService) ListByEvent(ctx context.Context, eventID int) ([]models.Race, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}
	return s.raceRepo.ListByEvent(ctx, eventID)
}

func (s *raceService) ListByContest(ctx context.Context, contestID int) ([]models.Race, error) {
	if _, err := s.contestRepo.GetByID(ctx, contestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}
	return s.raceRepo.ListByContest(ctx, contestID)
}

func (s *raceService) Update(ctx context.Context, id int, input UpdateRaceInput) (*models.Race, error) {
	race, err := s.raceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	if input.StartTime != nil {
		race.StartTime = input.StartTime
	}
	if input.Status != nil {
		status, err := parseRaceStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		race.Status = status
	}

	if err := s.raceRepo.Update(ctx, race); err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	s.publishRaceUpdate(race)
	return race, nil
}

func (s *raceService) UpdateStatus(ctx context.Context, id int, status models.RaceStatus) (*models.Race, error) {
	if _, err := parseRaceStatus(string(status)); err != nil {
		return nil, err
	}

	race, err := s.raceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	if err := s.raceRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}
	race.Status = status

	s.publishRaceUpdate(race)
	return race, nil
}

// Delete удаляет гонку вместе с ее участиями в одной транзакции.
func (s *raceService) Delete(ctx context.Context, id int) error {
	race, err := s.raceRepo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.participationRepo.DeleteByRace(ctx, exec, id); err != nil {
			return err
		}
		return s.raceRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	s.publishRaceUpdate(race)
	return nil
}

func (s *raceService) publishRaceUpdate(race *models.Race) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventRaceUpdated, raceUpdatePayload{
		RaceID:    race.ID,
		ContestID: race.ContestID,
	})
}
