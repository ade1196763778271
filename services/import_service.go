package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

// importUserAgent — RaceResult отдает JSON только браузерным клиентам.
const importUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// raceResultPayload — ответ listview-эндпоинта RaceResult: ключ описывает
// зачет ("#1_Jugend U15 2010 - 2012"), значение — строки участников, где
// последняя строка служебная (итоговый счетчик).
type raceResultPayload struct {
	Data map[string]json.RawMessage `json:"data"`
}

// ImportedContest — зачет, распознанный в данных RaceResult.
type ImportedContest struct {
	ExternalID       string `json:"external_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	BirthYearFrom    *int   `json:"birth_year_from,omitempty"`
	BirthYearTo      *int   `json:"birth_year_to,omitempty"`
	ParticipantCount int    `json:"participant_count"`
	Created          bool   `json:"created"`
}

// ImportSummary — итог одного прогона импорта.
type ImportSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ImportResult возвращается handler-у импорта.
type ImportResult struct {
	Contests []ImportedContest `json:"contests"`
	Summary  ImportSummary     `json:"summary"`
}

type ImportService interface {
	ImportContests(ctx context.Context, seriesID int, eventID *int, url string) (*ImportResult, error)
}

type importService struct {
	contestRepo repositories.ContestRepository
	seriesRepo  repositories.SeriesRepository
	eventRepo   repositories.EventRepository
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewImportService(
	contestRepo repositories.ContestRepository,
	seriesRepo repositories.SeriesRepository,
	eventRepo repositories.EventRepository,
	httpClient *http.Client,
	logger *slog.Logger,
) ImportService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &importService{
		contestRepo: contestRepo,
		seriesRepo:  seriesRepo,
		eventRepo:   eventRepo,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// ImportContests скачивает выгрузку RaceResult, распознает зачеты и
// апсертит их в серию по имени. Если указан eventID, на этапе ставится
// отметка о выполненном импорте.
func (s *importService) ImportContests(ctx context.Context, seriesID int, eventID *int, url string) (*ImportResult, error) {
	if _, err := s.seriesRepo.GetByID(ctx, seriesID); err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	if eventID != nil {
		if _, err := s.eventRepo.GetByID(ctx, *eventID); err != nil {
			return nil, mapNotFound(err, repositories.ErrEventNotFound, ErrEventNotFound)
		}
	}

	payload, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	contests := ParseRaceResultContests(payload)
	if len(contests) == 0 {
		return nil, ErrImportNoContests
	}

	result := &ImportResult{Contests: make([]ImportedContest, 0, len(contests))}
	for _, imported := range contests {
		created, err := s.upsertContest(ctx, seriesID, &imported)
		if err != nil {
			return nil, err
		}
		imported.Created = created
		if created {
			result.Summary.Created++
		} else {
			result.Summary.Updated++
		}
		result.Summary.Total++
		result.Contests = append(result.Contests, imported)
	}

	if eventID != nil {
		done := models.ImportStatusDone
		now := time.Now()
		if err := s.eventRepo.UpdateImportStatus(ctx, *eventID, &done, &now); err != nil {
			return nil, err
		}
	}

	s.logger.Info("raceresult import finished",
		slog.Int("series_id", seriesID),
		slog.Int("created", result.Summary.Created),
		slog.Int("updated", result.Summary.Updated))
	return result, nil
}

func (s *importService) fetch(ctx context.Context, url string) (*raceResultPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFetchFailed, err)
	}
	req.Header.Set("User-Agent", importUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrImportFetchFailed, resp.Status)
	}

	payload := &raceResultPayload{}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrImportFetchFailed, err)
	}
	return payload, nil
}

var (
	categoryRe   = regexp.MustCompile(`^([^0-9]+)`)
	yearRangeRe  = regexp.MustCompile(`(\d{4})\s*-\s*(\d{4})`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParseRaceResultContests распознает зачеты в выгрузке RaceResult.
// Формат ключа: "#<id>_<название>", где название начинается с категории
// и может содержать диапазон годов рождения "2010 - 2012". Ключи без
// названия пропускаются.
func ParseRaceResultContests(payload *raceResultPayload) []ImportedContest {
	if payload == nil || len(payload.Data) == 0 {
		return nil
	}

	contests := make([]ImportedContest, 0, len(payload.Data))
	for key, raw := range payload.Data {
		parts := strings.SplitN(key, "_", 2)
		if len(parts) < 2 {
			continue
		}
		externalID := strings.TrimPrefix(parts[0], "#")
		info := cleanWhitespace(parts[1])
		if info == "" {
			continue
		}

		contest := ImportedContest{
			ExternalID: externalID,
			Name:       info,
			Category:   "Unknown",
		}
		if m := categoryRe.FindStringSubmatch(info); m != nil {
			if category := cleanWhitespace(m[1]); category != "" {
				contest.Category = category
			}
		}
		if m := yearRangeRe.FindStringSubmatch(info); m != nil {
			from, _ := strconv.Atoi(m[1])
			to, _ := strconv.Atoi(m[2])
			contest.BirthYearFrom = &from
			contest.BirthYearTo = &to
		}

		// Последний элемент массива — служебный итоговый счетчик.
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
			contest.ParticipantCount = len(rows) - 1
		}

		contests = append(contests, contest)
	}
	return contests
}

func cleanWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// upsertContest ищет зачет серии по имени; найденному обновляет
// распознанные атрибуты, отсутствующий создает.
func (s *importService) upsertContest(ctx context.Context, seriesID int, imported *ImportedContest) (created bool, err error) {
	existing, err := s.contestRepo.FindBySeriesAndName(ctx, seriesID, imported.Name)
	if err != nil {
		return false, err
	}

	if existing != nil {
		changed := false
		if imported.BirthYearFrom != nil && (existing.BirthYearFrom == nil || *existing.BirthYearFrom != *imported.BirthYearFrom) {
			existing.BirthYearFrom = imported.BirthYearFrom
			changed = true
		}
		if imported.BirthYearTo != nil && (existing.BirthYearTo == nil || *existing.BirthYearTo != *imported.BirthYearTo) {
			existing.BirthYearTo = imported.BirthYearTo
			changed = true
		}
		if imported.Category != "Unknown" && (existing.Group == nil || *existing.Group != imported.Category) {
			existing.Group = &imported.Category
			changed = true
		}
		if changed {
			if err := s.contestRepo.Update(ctx, existing); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	contest := &models.Contest{
		SeriesID:      seriesID,
		Name:          imported.Name,
		BirthYearFrom: imported.BirthYearFrom,
		BirthYearTo:   imported.BirthYearTo,
	}
	if imported.Category != "Unknown" {
		contest.Group = &imported.Category
	}
	if err := s.contestRepo.Create(ctx, contest); err != nil {
		return false, err
	}
	return true, nil
}
