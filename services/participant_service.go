package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

type CreateParticipantInput struct {
	ContestID     int     `json:"contest_id"`
	Name          string  `json:"name"`
	BibNumber     int     `json:"bib_number"`
	BirthYear     int     `json:"birth_year"`
	Gender        string  `json:"gender"`
	Club          *string `json:"club,omitempty"`
	Team          *string `json:"team,omitempty"`
	LicenseNumber *string `json:"license_number,omitempty"`
}

type UpdateParticipantInput struct {
	Name          *string `json:"name,omitempty"`
	BibNumber     *int    `json:"bib_number,omitempty"`
	BirthYear     *int    `json:"birth_year,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	Club          *string `json:"club,omitempty"`
	Team          *string `json:"team,omitempty"`
	LicenseNumber *string `json:"license_number,omitempty"`
}

type ParticipantService interface {
	Create(ctx context.Context, input CreateParticipantInput) (*models.Participant, error)
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByContest(ctx context.Context, contestID int) ([]models.Participant, error)
	Update(ctx context.Context, id int, input UpdateParticipantInput) (*models.Participant, error)
	Delete(ctx context.Context, id int) error
}

type participantService struct {
	db                TxBeginner
	participantRepo   repositories.ParticipantRepository
	contestRepo       repositories.ContestRepository
	participationRepo repositories.ParticipationRepository
	hub               *live.Hub
	logger            *slog.Logger
}

func NewParticipantService(
	db TxBeginner,
	participantRepo repositories.ParticipantRepository,
	contestRepo repositories.ContestRepository,
	participationRepo repositories.ParticipationRepository,
	hub *live.Hub,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		db:                db,
		participantRepo:   participantRepo,
		contestRepo:       contestRepo,
		participationRepo: participationRepo,
		hub:               hub,
		logger:            logger,
	}
}

func (s *participantService) Create(ctx context.Context, input CreateParticipantInput) (*models.Participant, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrParticipantNameRequired
	}
	if input.BibNumber <= 0 {
		return nil, ErrParticipantInvalidBib
	}
	if _, err := s.contestRepo.GetByID(ctx, input.ContestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	participant := &models.Participant{
		ContestID:     input.ContestID,
		Name:          strings.TrimSpace(input.Name),
		BibNumber:     input.BibNumber,
		BirthYear:     input.BirthYear,
		Gender:        input.Gender,
		Club:          input.Club,
		Team:          input.Team,
		LicenseNumber: input.LicenseNumber,
		Status:        models.ParticipantStatusRegistered,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantBibConflict):
			return nil, ErrParticipantBibConflict
		case errors.Is(err, repositories.ErrParticipantInvalidContest):
			return nil, ErrContestNotFound
		}
		return nil, err
	}

	s.publish(participant.ContestID)
	return participant, nil
}

func (s *participantService) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrParticipantNotFound, ErrParticipantNotFound)
	}
	return participant, nil
}

func (s *participantService) ListByContest(ctx context.Context, contestID int) ([]models.Participant, error) {
	if _, err := s.contestRepo.GetByID(ctx, contestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}
	return s.participantRepo.ListByContest(ctx, contestID)
}

func (s *participantService) Update(ctx context.Context, id int, input UpdateParticipantInput) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrParticipantNotFound, ErrParticipantNotFound)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrParticipantNameRequired
		}
		participant.Name = name
	}
	if input.BibNumber != nil {
		if *input.BibNumber <= 0 {
			return nil, ErrParticipantInvalidBib
		}
		participant.BibNumber = *input.BibNumber
	}
	if input.BirthYear != nil {
		participant.BirthYear = *input.BirthYear
	}
	if input.Gender != nil {
		participant.Gender = *input.Gender
	}
	if input.Club != nil {
		participant.Club = input.Club
	}
	if input.Team != nil {
		participant.Team = input.Team
	}
	if input.LicenseNumber != nil {
		participant.LicenseNumber = input.LicenseNumber
	}

	if err := s.participantRepo.Update(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantBibConflict) {
			return nil, ErrParticipantBibConflict
		}
		return nil, mapNotFound(err, repositories.ErrParticipantNotFound, ErrParticipantNotFound)
	}

	s.publish(participant.ContestID)
	return participant, nil
}

// Delete удаляет участника вместе со всеми его участиями. Позиции
// финишеров оставшихся гонок не пересчитываются.
func (s *participantService) Delete(ctx context.Context, id int) error {
	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrParticipantNotFound, ErrParticipantNotFound)
	}

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.participationRepo.DeleteByParticipant(ctx, exec, id); err != nil {
			return err
		}
		return s.participantRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	s.publish(participant.ContestID)
	return nil
}

func (s *participantService) publish(contestID int) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventContestUpdated, map[string]int{"contest_id": contestID})
}
