package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
	"github.com/cyclocross/stevenscup-app/storage"
)

// CreateSeriesInput — данные для создания серии.
type CreateSeriesInput struct {
	Name            string  `json:"name"`
	Season          string  `json:"season"`
	Status          *string `json:"status,omitempty"`
	Description     *string `json:"description,omitempty"`
	ParticipantsURL *string `json:"participants_url,omitempty"`
}

// UpdateSeriesInput — частичное обновление серии; nil-поля не трогаются.
type UpdateSeriesInput struct {
	Name            *string `json:"name,omitempty"`
	Season          *string `json:"season,omitempty"`
	Status          *string `json:"status,omitempty"`
	Description     *string `json:"description,omitempty"`
	ParticipantsURL *string `json:"participants_url,omitempty"`
}

type SeriesService interface {
	Create(ctx context.Context, input CreateSeriesInput) (*models.Series, error)
	GetByID(ctx context.Context, id int) (*models.Series, error)
	GetDetail(ctx context.Context, id int) (*models.Series, error)
	List(ctx context.Context) ([]models.Series, error)
	Update(ctx context.Context, id int, input UpdateSeriesInput) (*models.Series, error)
	Delete(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, fileName, contentType string, file io.Reader) (*models.Series, error)
	DeleteLogo(ctx context.Context, id int) (*models.Series, error)
}

type seriesService struct {
	db                TxBeginner
	seriesRepo        repositories.SeriesRepository
	eventRepo         repositories.EventRepository
	contestRepo       repositories.ContestRepository
	raceRepo          repositories.RaceRepository
	participantRepo   repositories.ParticipantRepository
	participationRepo repositories.ParticipationRepository
	uploader          storage.FileUploader
	hub               *live.Hub
	logger            *slog.Logger
}

func NewSeriesService(
	db TxBeginner,
	seriesRepo repositories.SeriesRepository,
	eventRepo repositories.EventRepository,
	contestRepo repositories.ContestRepository,
	raceRepo repositories.RaceRepository,
	participantRepo repositories.ParticipantRepository,
	participationRepo repositories.ParticipationRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	logger *slog.Logger,
) SeriesService {
	return &seriesService{
		db:                db,
		seriesRepo:        seriesRepo,
		eventRepo:         eventRepo,
		contestRepo:       contestRepo,
		raceRepo:          raceRepo,
		participantRepo:   participantRepo,
		participationRepo: participationRepo,
		uploader:          uploader,
		hub:               hub,
		logger:            logger,
	}
}

func parseSeriesStatus(raw *string) (models.SeriesStatus, error) {
	if raw == nil || *raw == "" {
		return models.SeriesStatusScheduled, nil
	}
	switch status := models.SeriesStatus(*raw); status {
	case models.SeriesStatusScheduled, models.SeriesStatusOngoing, models.SeriesStatusFinished:
		return status, nil
	default:
		return "", ErrSeriesInvalidStatus
	}
}

func (s *seriesService) Create(ctx context.Context, input CreateSeriesInput) (*models.Series, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrSeriesNameRequired
	}
	season := strings.TrimSpace(input.Season)
	if season == "" {
		return nil, ErrSeriesSeasonRequired
	}
	status, err := parseSeriesStatus(input.Status)
	if err != nil {
		return nil, err
	}

	series := &models.Series{
		Name:            name,
		Season:          season,
		Status:          status,
		Description:     input.Description,
		ParticipantsURL: input.ParticipantsURL,
	}
	if err := s.seriesRepo.Create(ctx, series); err != nil {
		if errors.Is(err, repositories.ErrSeriesNameConflict) {
			return nil, ErrSeriesNameConflict
		}
		return nil, err
	}

	s.publishSeriesUpdate(series.ID)
	return s.withLogoURL(series), nil
}

func (s *seriesService) GetByID(ctx context.Context, id int) (*models.Series, error) {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	return s.withLogoURL(series), nil
}

// GetDetail возвращает серию вместе с этапами (включая их гонки) и
// зачетами.
func (s *seriesService) GetDetail(ctx context.Context, id int) (*models.Series, error) {
	series, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListBySeries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for series %d: %w", id, err)
	}
	for i := range events {
		races, err := s.raceRepo.ListByEvent(ctx, events[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list races for event %d: %w", events[i].ID, err)
		}
		events[i].Races = races
	}
	series.Events = events

	contests, err := s.contestRepo.ListBySeries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests for series %d: %w", id, err)
	}
	series.Contests = contests

	return series, nil
}

func (s *seriesService) List(ctx context.Context) ([]models.Series, error) {
	all, err := s.seriesRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		s.withLogoURL(&all[i])
	}
	return all, nil
}

func (s *seriesService) Update(ctx context.Context, id int, input UpdateSeriesInput) (*models.Series, error) {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrSeriesNameRequired
		}
		series.Name = name
	}
	if input.Season != nil {
		season := strings.TrimSpace(*input.Season)
		if season == "" {
			return nil, ErrSeriesSeasonRequired
		}
		series.Season = season
	}
	if input.Status != nil {
		status, err := parseSeriesStatus(input.Status)
		if err != nil {
			return nil, err
		}
		series.Status = status
	}
	if input.Description != nil {
		series.Description = input.Description
	}
	if input.ParticipantsURL != nil {
		series.ParticipantsURL = input.ParticipantsURL
	}

	if err := s.seriesRepo.Update(ctx, series); err != nil {
		if errors.Is(err, repositories.ErrSeriesNameConflict) {
			return nil, ErrSeriesNameConflict
		}
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	s.publishSeriesUpdate(series.ID)
	return s.withLogoURL(series), nil
}

// Delete каскадно удаляет серию: участия, участники, гонки, зачеты,
// этапы и в конце сама серия — в одной транзакции.
func (s *seriesService) Delete(ctx context.Context, id int) error {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	contests, err := s.contestRepo.ListBySeries(ctx, id)
	if err != nil {
		return err
	}

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		for _, contest := range contests {
			if err := s.participationRepo.DeleteByContest(ctx, exec, contest.ID); err != nil {
				return err
			}
			if err := s.participantRepo.DeleteByContest(ctx, exec, contest.ID); err != nil {
				return err
			}
			if err := s.raceRepo.DeleteByContest(ctx, exec, contest.ID); err != nil {
				return err
			}
		}
		if err := s.contestRepo.DeleteBySeries(ctx, exec, id); err != nil {
			return err
		}
		if err := s.eventRepo.DeleteBySeries(ctx, exec, id); err != nil {
			return err
		}
		return s.seriesRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	if series.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *series.LogoKey); err != nil {
			// Висячий объект в хранилище не блокирует удаление серии.
			s.logger.Warn("failed to delete series logo from storage",
				slog.Int("series_id", id), slog.Any("error", err))
		}
	}

	s.publishSeriesUpdate(id)
	return nil
}

// UploadLogo загружает логотип в объектное хранилище и запоминает ключ.
// Прежний логотип удаляется после успешной загрузки нового.
func (s *seriesService) UploadLogo(ctx context.Context, id int, fileName, contentType string, file io.Reader) (*models.Series, error) {
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	ext := path.Ext(fileName)
	key := fmt.Sprintf("series/%d/logo-%d%s", id, time.Now().UnixNano(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload series logo: %w", err)
	}

	oldKey := series.LogoKey
	if err := s.seriesRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	series.LogoKey = &result.Key

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous series logo",
				slog.Int("series_id", id), slog.Any("error", err))
		}
	}

	s.publishSeriesUpdate(id)
	return s.withLogoURL(series), nil
}

func (s *seriesService) DeleteLogo(ctx context.Context, id int) (*models.Series, error) {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	if series.LogoKey == nil {
		return s.withLogoURL(series), nil
	}

	if err := s.seriesRepo.UpdateLogoKey(ctx, id, nil); err != nil {
		return nil, err
	}
	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, *series.LogoKey); err != nil {
			s.logger.Warn("failed to delete series logo from storage",
				slog.Int("series_id", id), slog.Any("error", err))
		}
	}
	series.LogoKey = nil

	s.publishSeriesUpdate(id)
	return s.withLogoURL(series), nil
}

// withLogoURL заполняет публичный URL логотипа из ключа хранилища.
func (s *seriesService) withLogoURL(series *models.Series) *models.Series {
	if series.LogoKey != nil && s.uploader != nil {
		if u := s.uploader.GetPublicURL(*series.LogoKey); u != "" {
			series.LogoURL = &u
		}
	} else {
		series.LogoURL = nil
	}
	return series
}

func (s *seriesService) publishSeriesUpdate(seriesID int) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(live.EventSeriesUpdated, map[string]int{"series_id": seriesID})
}
