package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
	"golang.org/x/sync/errgroup"
)

// topParticipantsLimit — размер среза рейтинга в сводных представлениях.
const topParticipantsLimit = 10

// ContestRankingDetail — полный рейтинг зачета вместе с его метаданными.
type ContestRankingDetail struct {
	Contest  models.Contest              `json:"contest"`
	Series   models.Series               `json:"series"`
	Rankings []models.ParticipantRanking `json:"rankings"`
}

type RankingService interface {
	GetContestRankings(ctx context.Context, contestID int) ([]models.ParticipantRanking, error)
	GetContestRankingDetail(ctx context.Context, contestID int) (*ContestRankingDetail, error)
	GetSeriesRankings(ctx context.Context, seriesID int) (*models.SeriesRanking, error)
	GetAllSeriesRankings(ctx context.Context) ([]models.SeriesRanking, error)
	GetContestStatistics(ctx context.Context, contestID int) (*models.ContestStatistics, error)
}

type rankingService struct {
	seriesRepo        repositories.SeriesRepository
	contestRepo       repositories.ContestRepository
	participantRepo   repositories.ParticipantRepository
	participationRepo repositories.ParticipationRepository
	raceRepo          repositories.RaceRepository
}

func NewRankingService(
	seriesRepo repositories.SeriesRepository,
	contestRepo repositories.ContestRepository,
	participantRepo repositories.ParticipantRepository,
	participationRepo repositories.ParticipationRepository,
	raceRepo repositories.RaceRepository,
) RankingService {
	return &rankingService{
		seriesRepo:        seriesRepo,
		contestRepo:       contestRepo,
		participantRepo:   participantRepo,
		participationRepo: participationRepo,
		raceRepo:          raceRepo,
	}
}

// GetContestRankings строит упорядоченный рейтинг зачета. Рейтинг всегда
// пересчитывается на чтении, без кеширования.
func (s *rankingService) GetContestRankings(ctx context.Context, contestID int) ([]models.ParticipantRanking, error) {
	if _, err := s.contestRepo.GetByID(ctx, contestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	participants, err := s.participantRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants for contest %d: %w", contestID, err)
	}

	rankings := make([]models.ParticipantRanking, 0, len(participants))
	for _, participant := range participants {
		rows, err := s.participationRepo.ListByParticipantAndContest(ctx, participant.ID, contestID)
		if err != nil {
			return nil, fmt.Errorf("failed to load participations for participant %d: %w", participant.ID, err)
		}

		ranking := models.ParticipantRanking{
			ParticipantID:   participant.ID,
			ParticipantName: participant.Name,
			ParticipantClub: participant.Club,
			BibNumber:       participant.BibNumber,
			Participations:  make([]models.RankingParticipation, 0, len(rows)),
		}

		// Строки идут по возрастанию даты этапа, поэтому последнее
		// финишировавшее участие соответствует самой свежей гонке.
		for _, row := range rows {
			points := PointsForParticipation(row.Participation)
			ranking.TotalPoints += points

			if row.Participation.Finished() && row.Participation.Position != nil {
				ranking.LastRacePosition = row.Participation.Position
			}

			ranking.Participations = append(ranking.Participations, models.RankingParticipation{
				RaceID:    row.Participation.RaceID,
				EventName: row.EventName,
				EventDate: row.EventDate,
				Position:  row.Participation.Position,
				Points:    points,
			})
		}

		rankings = append(rankings, ranking)
	}

	sortRankings(rankings)
	return rankings, nil
}

// sortRankings сортирует по убыванию очков; при равенстве очков выше тот,
// у кого лучше (меньше) позиция в последней гонке, участники без позиции —
// после всех с позицией. Стабильная сортировка поверх порядка стартовых
// номеров дает детерминированный результат.
func sortRankings(rankings []models.ParticipantRanking) {
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		switch {
		case a.LastRacePosition == nil && b.LastRacePosition == nil:
			return false
		case a.LastRacePosition == nil:
			return false
		case b.LastRacePosition == nil:
			return true
		default:
			return *a.LastRacePosition < *b.LastRacePosition
		}
	})
}

func (s *rankingService) GetContestRankingDetail(ctx context.Context, contestID int) (*ContestRankingDetail, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	series, err := s.seriesRepo.GetByID(ctx, contest.SeriesID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}

	rankings, err := s.GetContestRankings(ctx, contestID)
	if err != nil {
		return nil, err
	}

	return &ContestRankingDetail{
		Contest:  *contest,
		Series:   *series,
		Rankings: rankings,
	}, nil
}

// GetSeriesRankings собирает рейтинги всех зачетов серии. Полные списки,
// без среза топ-N: это detail-представление.
func (s *rankingService) GetSeriesRankings(ctx context.Context, seriesID int) (*models.SeriesRanking, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrSeriesNotFound, ErrSeriesNotFound)
	}
	return s.buildSeriesRanking(ctx, series, 0)
}

// GetAllSeriesRankings строит сводку по всем сериям: для каждого зачета
// только топ-10.
func (s *rankingService) GetAllSeriesRankings(ctx context.Context) ([]models.SeriesRanking, error) {
	allSeries, err := s.seriesRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}

	result := make([]models.SeriesRanking, len(allSeries))
	for i := range allSeries {
		ranking, err := s.buildSeriesRanking(ctx, &allSeries[i], topParticipantsLimit)
		if err != nil {
			return nil, err
		}
		result[i] = *ranking
	}
	return result, nil
}

// buildSeriesRanking считает рейтинги зачетов серии параллельно; limit > 0
// обрезает каждый зачет до топ-N.
func (s *rankingService) buildSeriesRanking(ctx context.Context, series *models.Series, limit int) (*models.SeriesRanking, error) {
	contests, err := s.contestRepo.ListBySeries(ctx, series.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests for series %d: %w", series.ID, err)
	}

	contestRankings := make([]models.ContestRanking, len(contests))

	g, gCtx := errgroup.WithContext(ctx)
	for i := range contests {
		i := i
		contest := contests[i]
		g.Go(func() error {
			rankings, err := s.GetContestRankings(gCtx, contest.ID)
			if err != nil {
				return err
			}
			if limit > 0 && len(rankings) > limit {
				rankings = rankings[:limit]
			}

			cr := models.ContestRanking{
				ContestID:   contest.ID,
				ContestName: contest.Name,
				Gender:      contest.Gender,
				Rankings:    rankings,
			}
			if ageGroup := contest.AgeGroup(); ageGroup != "" {
				cr.AgeGroup = &ageGroup
			}
			contestRankings[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.SeriesRanking{
		SeriesID:     series.ID,
		SeriesName:   series.Name,
		SeriesSeason: series.Season,
		Contests:     contestRankings,
	}, nil
}

// GetContestStatistics возвращает число завершенных гонок зачета и ссылку
// на самую свежую из них по дате этапа.
func (s *rankingService) GetContestStatistics(ctx context.Context, contestID int) (*models.ContestStatistics, error) {
	if _, err := s.contestRepo.GetByID(ctx, contestID); err != nil {
		return nil, mapNotFound(err, repositories.ErrContestNotFound, ErrContestNotFound)
	}

	count, err := s.raceRepo.CountCompletedByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	latest, err := s.raceRepo.LatestCompletedByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	return &models.ContestStatistics{
		TotalCompletedRaces: count,
		LatestCompletedRace: latest,
	}, nil
}
