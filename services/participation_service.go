package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

// raceUpdatePayload — данные live-события race-updated.
type raceUpdatePayload struct {
	RaceID    int `json:"race_id"`
	ContestID int `json:"contest_id"`
}

type ParticipationService interface {
	Assign(ctx context.Context, raceID, participantID int) (*models.Participation, error)
	Remove(ctx context.Context, raceID, participantID int) error
	CycleStatus(ctx context.Context, participationID int) (*models.Participation, error)
	MoveUp(ctx context.Context, participationID int) (*models.Participation, error)
	MoveDown(ctx context.Context, participationID int) (*models.Participation, error)
	ListByRace(ctx context.Context, raceID int) ([]*models.Participation, error)
	ListAvailableParticipants(ctx context.Context, raceID int) ([]models.Participant, error)
}

type participationService struct {
	db                TxBeginner
	participationRepo repositories.ParticipationRepository
	participantRepo   repositories.ParticipantRepository
	raceRepo          repositories.RaceRepository
	hub               *live.Hub
	logger            *slog.Logger
}

func NewParticipationService(
	db TxBeginner,
	participationRepo repositories.ParticipationRepository,
	participantRepo repositories.ParticipantRepository,
	raceRepo repositories.RaceRepository,
	hub *live.Hub,
	logger *slog.Logger,
) ParticipationService {
	return &participationService{
		db:                db,
		participationRepo: participationRepo,
		participantRepo:   participantRepo,
		raceRepo:          raceRepo,
		hub:               hub,
		logger:            logger,
	}
}

// Assign записывает участника на гонку. Участник и гонка должны
// принадлежать одному зачету.
func (s *participationService) Assign(ctx context.Context, raceID, participantID int) (*models.Participation, error) {
	race, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrParticipantNotFound, ErrParticipantNotFound)
	}

	if participant.ContestID != race.ContestID {
		return nil, fmt.Errorf("%w: participant belongs to a different contest", ErrValidationFailed)
	}

	participation := &models.Participation{
		ParticipantID: participantID,
		RaceID:        raceID,
		Status:        models.ParticipationRegistered,
	}
	if err := s.participationRepo.Create(ctx, participation); err != nil {
		if errors.Is(err, repositories.ErrParticipationConflict) {
			return nil, ErrAssignmentConflict
		}
		return nil, err
	}

	s.publishRaceUpdate(race)
	return participation, nil
}

// Remove снимает участника с гонки. Позиции остальных финишеров
// намеренно не перенумеровываются: удаление оставляет дыру в протоколе,
// которую судья закрывает вручную.
func (s *participationService) Remove(ctx context.Context, raceID, participantID int) error {
	race, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		return mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}

	if err := s.participationRepo.DeleteByParticipantAndRace(ctx, participantID, raceID); err != nil {
		return mapNotFound(err, repositories.ErrParticipationNotFound, ErrParticipationNotFound)
	}

	s.publishRaceUpdate(race)
	return nil
}

// CycleStatus переводит участие в следующее состояние цикла
// registered -> started -> finished -> registered. Финиш присваивает
// позицию следующим свободным местом; снятие финиша освобождает позицию
// и уплотняет оставшиеся.
func (s *participationService) CycleStatus(ctx context.Context, participationID int) (*models.Participation, error) {
	current, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrParticipationNotFound, ErrParticipationNotFound)
	}

	next := current.Status.Next()

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		switch next {
		case models.ParticipationFinished:
			finished, err := s.participationRepo.ListFinishedByRace(ctx, exec, current.RaceID)
			if err != nil {
				return err
			}
			position := len(finished) + 1
			return s.participationRepo.UpdateState(ctx, exec, participationID, next, &position)

		case models.ParticipationRegistered:
			// finished -> registered: сбросить позицию и уплотнить
			// протокол, чтобы места шли 1..N без дыр.
			if err := s.participationRepo.UpdateState(ctx, exec, participationID, next, nil); err != nil {
				return err
			}
			return s.renumberFinished(ctx, exec, current.RaceID)

		default:
			return s.participationRepo.UpdateState(ctx, exec, participationID, next, nil)
		}
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, err
	}

	if race, err := s.raceRepo.GetByID(ctx, current.RaceID); err == nil {
		s.publishRaceUpdate(race)
	}
	return updated, nil
}

// renumberFinished переприсваивает позиции финишеров гонки плотно, 1..N,
// сохраняя их относительный порядок.
func (s *participationService) renumberFinished(ctx context.Context, exec repositories.SQLExecutor, raceID int) error {
	finished, err := s.participationRepo.ListFinishedByRace(ctx, exec, raceID)
	if err != nil {
		return err
	}
	for i, p := range finished {
		want := i + 1
		if p.Position != nil && *p.Position == want {
			continue
		}
		if err := s.participationRepo.UpdatePosition(ctx, exec, p.ID, &want); err != nil {
			return err
		}
	}
	return nil
}

// MoveUp меняет участие местами с финишером на одну позицию выше.
// На первой позиции — no-op.
func (s *participationService) MoveUp(ctx context.Context, participationID int) (*models.Participation, error) {
	return s.swapWithNeighbor(ctx, participationID, -1)
}

// MoveDown меняет участие местами с финишером на одну позицию ниже.
// На последней позиции — no-op.
func (s *participationService) MoveDown(ctx context.Context, participationID int) (*models.Participation, error) {
	return s.swapWithNeighbor(ctx, participationID, +1)
}

func (s *participationService) swapWithNeighbor(ctx context.Context, participationID int, direction int) (*models.Participation, error) {
	current, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrParticipationNotFound, ErrParticipationNotFound)
	}

	if current.Status != models.ParticipationFinished || current.Position == nil {
		return nil, ErrOnlyFinishedReorder
	}

	swapped := false
	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		finished, err := s.participationRepo.ListFinishedByRace(ctx, exec, current.RaceID)
		if err != nil {
			return err
		}

		idx := -1
		for i, p := range finished {
			if p.ID == participationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrParticipationNotFound
		}

		other := idx + direction
		if other < 0 || other >= len(finished) {
			return nil // граница протокола, двигать некуда
		}

		a, b := finished[idx], finished[other]
		if err := s.participationRepo.UpdatePosition(ctx, exec, a.ID, b.Position); err != nil {
			return err
		}
		if err := s.participationRepo.UpdatePosition(ctx, exec, b.ID, a.Position); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, err
	}

	if swapped {
		if race, err := s.raceRepo.GetByID(ctx, current.RaceID); err == nil {
			s.publishRaceUpdate(race)
		}
	}
	return updated, nil
}

// ListByRace возвращает стартовый протокол гонки с данными участников.
func (s *participationService) ListByRace(ctx context.Context, raceID int) ([]*models.Participation, error) {
	if _, err := s.raceRepo.GetByID(ctx, raceID); err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}
	return s.participationRepo.ListByRace(ctx, raceID)
}

// ListAvailableParticipants возвращает участников зачета, еще не
// записанных на гонку.
func (s *participationService) ListAvailableParticipants(ctx context.Context, raceID int) ([]models.Participant, error) {
	race, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrRaceNotFound, ErrRaceNotFound)
	}
	return s.participantRepo.ListAvailableForRace(ctx, race.ContestID, raceID)
}

func (s *participationService) publishRaceUpdate(race *models.Race) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventRaceUpdated, raceUpdatePayload{
		RaceID:    race.ID,
		ContestID: race.ContestID,
	})
}
