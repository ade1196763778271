package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

type CreateEventInput struct {
	SeriesID        int       `json:"series_id"`
	Name            string    `json:"name"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Club            string    `json:"club"`
	RegistrationURL *string   `json:"registration_url,omitempty"`
}

type UpdateEventInput struct {
	Name            *string    `json:"name,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Club            *string    `json:"club,omitempty"`
	RegistrationURL *string    `json:"registration_url,omitempty"`
}

type EventService interface {
	Create(ctx context.Context, input CreateEventInput) (*models.Event, error)
	GetByID(ctx context.Context, id int) (*models.Event, error)
	GetDetail(ctx context.Context, id int) (*models.Event, error)
	ListBySeries(ctx context.Context, seriesID int) ([]models.Event, error)
	Update(ctx context.Context, id int, input UpdateEventInput) (*models.Event, error)
	Delete(ctx context.Context, id int) error
	ResetImportStatus(ctx context.Context, id int) (*models.Event, error)
}

type eventService struct {
	db                TxBeginner
	eventRepo         repositories.EventRepository
	seriesRepo        repositories.SeriesRepository
	raceRepo          repositories.RaceRepository
	participationRepo repositories.ParticipationRepository
	hub               *live.Hub
	logger            *slog.Logger
}

func NewEventService(
	db TxBeginner,
	eventRepo repositories.EventRepository,
	seriesRepo repositories.SeriesRepository,
	raceRepo repositories.RaceRepository,
	participationRepo repositories.ParticipationRepository,
	hub *live.Hub,
	logger *slog.Logger,
) EventService {
	return &eventService{
		db:                db,
		eventRepo:         eventRepo,
		seriesRepo:        seriesRepo,
		raceRepo:          raceRepo,
		participationRepo: participationRepo,
		hub:               hub,
		logger:            logger,
	}
}

func (s *eventService) Create(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEventNameRequired
	}
	if input.Date.IsZero() {
		return nil, ErrEventDateRequired
	}
	if _, err := s.seriesRepo.GetByID(ctx, input.SeriesID); err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	event := &models.Event{
		SeriesID:        input.SeriesID,
		Name:            strings.TrimSpace(input.Name),
		Date:            input.Date,
		Location:        strings.TrimSpace(input.Location),
		Club:            strings.TrimSpace(input.Club),
		RegistrationURL: input.RegistrationURL,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventInvalidSeries) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}

	s.publish(event.SeriesID)
	return event, nil
}

func (s *eventService) GetByID(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}
	return event, nil
}

// GetDetail возвращает этап с его гонками.
func (s *eventService) GetDetail(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	races, err := s.raceRepo.ListByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list races for event %d: %w", id, err)
	}
	event.Races = races
	return event, nil
}

func (s *eventService) ListBySeries(ctx context.Context, seriesID int) ([]models.Event, error) {
	if _, err := s.seriesRepo.GetByID(ctx, seriesID); err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	return s.eventRepo.ListBySeries(ctx, seriesID)
}

func (s *eventService) Update(ctx context.Context, id int, input UpdateEventInput) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrEventNameRequired
		}
		event.Name = name
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, ErrEventDateRequired
		}
		event.Date = *input.Date
	}
	if input.Location != nil {
		event.Location = strings.TrimSpace(*input.Location)
	}
	if input.Club != nil {
		event.Club = strings.TrimSpace(*input.Club)
	}
	if input.RegistrationURL != nil {
		event.RegistrationURL = input.RegistrationURL
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}

	s.publish(event.SeriesID)
	return event, nil
}

// Delete каскадно удаляет этап: участия всех его гонок, сами гонки,
// затем этап — в одной транзакции.
func (s *eventService) Delete(ctx context.Context, id int) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}

	races, err := s.raceRepo.ListByEvent(ctx, id)
	if err != nil {
		return err
	}

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		for _, race := range races {
			if err := s.participationRepo.DeleteByRace(ctx, exec, race.ID); err != nil {
				return err
			}
		}
		if err := s.raceRepo.DeleteByEvent(ctx, exec, id); err != nil {
			return err
		}
		return s.eventRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	s.publish(event.SeriesID)
	return nil
}

// ResetImportStatus сбрасывает отметку импорта стартовых списков, после
// чего этап можно импортировать повторно.
func (s *eventService) ResetImportStatus(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
	}

	none := models.ImportStatusNone
	if err := s.eventRepo.UpdateImportStatus(ctx, id, &none, nil); err != nil {
		return nil, err
	}
	event.ImportStatus = &none
	event.LastImportAt = nil
	return event, nil
}

func (s *eventService) publish(seriesID int) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventSeriesUpdated, map[string]int{"series_id": seriesID})
}
