package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
)

type rankingFixture struct {
	ranking        RankingService
	series         *fakeSeriesRepo
	events         *fakeEventRepo
	contests       *fakeContestRepo
	races          *fakeRaceRepo
	participants   *fakeParticipantRepo
	participations *fakeParticipationRepo

	seriesID  int
	contestID int
	raceIDs   []int // по одному на этап, в порядке дат
}

// newRankingFixture строит серию с одним зачетом и тремя этапами
// (гонка на каждом).
func newRankingFixture(t *testing.T) *rankingFixture {
	t.Helper()
	ctx := context.Background()

	seriesRepo := newFakeSeriesRepo()
	eventRepo := newFakeEventRepo()
	contestRepo := newFakeContestRepo()
	raceRepo := newFakeRaceRepo(eventRepo)
	participantRepo := newFakeParticipantRepo()
	participationRepo := newFakeParticipationRepo(raceRepo, eventRepo, participantRepo)

	series := &models.Series{Name: "Stevens Cup", Season: "2025/2026", Status: models.SeriesStatusOngoing}
	if err := seriesRepo.Create(ctx, series); err != nil {
		t.Fatalf("create series: %v", err)
	}

	contest := &models.Contest{SeriesID: series.ID, Name: "U15 m"}
	if err := contestRepo.Create(ctx, contest); err != nil {
		t.Fatalf("create contest: %v", err)
	}

	f := &rankingFixture{
		ranking:        NewRankingService(seriesRepo, contestRepo, participantRepo, participationRepo, raceRepo),
		series:         seriesRepo,
		events:         eventRepo,
		contests:       contestRepo,
		races:          raceRepo,
		participants:   participantRepo,
		participations: participationRepo,
		seriesID:       series.ID,
		contestID:      contest.ID,
	}

	for i := 0; i < 3; i++ {
		event := &models.Event{
			SeriesID: series.ID,
			Name:     "Stage " + string(rune('1'+i)),
			Date:     time.Date(2025, time.October, 5+7*i, 0, 0, 0, 0, time.UTC),
		}
		if err := eventRepo.Create(ctx, event); err != nil {
			t.Fatalf("create event: %v", err)
		}
		race := &models.Race{EventID: event.ID, ContestID: contest.ID, Status: models.RaceStatusCompleted}
		if err := raceRepo.Create(ctx, race); err != nil {
			t.Fatalf("create race: %v", err)
		}
		f.raceIDs = append(f.raceIDs, race.ID)
	}
	return f
}

func (f *rankingFixture) addParticipant(t *testing.T, name string, bib int) int {
	t.Helper()
	p := &models.Participant{ContestID: f.contestID, Name: name, BibNumber: bib, BirthYear: 2011, Gender: "M"}
	if err := f.participants.Create(context.Background(), p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return p.ID
}

// result записывает участие: position == 0 означает "стартовал, не финишировал",
// position < 0 — "только записан".
func (f *rankingFixture) result(t *testing.T, participantID, raceID, position int) {
	t.Helper()
	p := &models.Participation{ParticipantID: participantID, RaceID: raceID}
	switch {
	case position > 0:
		p.Status = models.ParticipationFinished
		p.Position = &position
	case position == 0:
		p.Status = models.ParticipationStarted
	default:
		p.Status = models.ParticipationRegistered
	}
	if err := f.participations.Create(context.Background(), p); err != nil {
		t.Fatalf("create participation: %v", err)
	}
}

func TestContestRankingsAccumulatePoints(t *testing.T) {
	f := newRankingFixture(t)

	// A: победа (22) + старт без финиша (2) = 24
	// B: второе место (19) + только запись (0) = 19
	a := f.addParticipant(t, "Rider A", 1)
	b := f.addParticipant(t, "Rider B", 2)
	f.result(t, a, f.raceIDs[0], 1)
	f.result(t, a, f.raceIDs[1], 0)
	f.result(t, b, f.raceIDs[0], 2)
	f.result(t, b, f.raceIDs[1], -1)

	rankings, err := f.ranking.GetContestRankings(context.Background(), f.contestID)
	if err != nil {
		t.Fatalf("get rankings: %v", err)
	}
	if len(rankings) != 2 {
		t.Fatalf("got %d rankings, want 2", len(rankings))
	}

	if rankings[0].ParticipantName != "Rider A" || rankings[0].TotalPoints != 24 {
		t.Errorf("first place: %s with %d points, want Rider A with 24", rankings[0].ParticipantName, rankings[0].TotalPoints)
	}
	if rankings[1].ParticipantName != "Rider B" || rankings[1].TotalPoints != 19 {
		t.Errorf("second place: %s with %d points, want Rider B with 19", rankings[1].ParticipantName, rankings[1].TotalPoints)
	}
	if len(rankings[0].Participations) != 2 {
		t.Errorf("Rider A history has %d entries, want 2", len(rankings[0].Participations))
	}
}

// При равенстве очков выше стоит участник с лучшей позицией в последней
// гонке.
func TestContestRankingsTieBreakByLastRacePosition(t *testing.T) {
	f := newRankingFixture(t)

	a := f.addParticipant(t, "Rider A", 1)
	b := f.addParticipant(t, "Rider B", 2)

	// Этап 1: A второй (19), B первый (22).
	// Этап 2: A первый (22), B второй (19). Суммы равны: 41.
	f.result(t, a, f.raceIDs[0], 2)
	f.result(t, b, f.raceIDs[0], 1)
	f.result(t, a, f.raceIDs[1], 1)
	f.result(t, b, f.raceIDs[1], 2)

	rankings, err := f.ranking.GetContestRankings(context.Background(), f.contestID)
	if err != nil {
		t.Fatalf("get rankings: %v", err)
	}

	if rankings[0].ParticipantName != "Rider A" {
		t.Errorf("tie-break winner = %s, want Rider A (better last race position)", rankings[0].ParticipantName)
	}
	if rankings[0].LastRacePosition == nil || *rankings[0].LastRacePosition != 1 {
		t.Errorf("winner last race position = %v, want 1", rankings[0].LastRacePosition)
	}
}

// lastRacePosition берется из самой свежей по дате этапа гонки с финишем,
// а не из последней по порядку создания.
func TestLastRacePositionUsesMostRecentFinish(t *testing.T) {
	f := newRankingFixture(t)
	a := f.addParticipant(t, "Rider A", 1)

	f.result(t, a, f.raceIDs[0], 5)
	f.result(t, a, f.raceIDs[2], 3)
	f.result(t, a, f.raceIDs[1], 0) // средний этап без финиша

	rankings, err := f.ranking.GetContestRankings(context.Background(), f.contestID)
	if err != nil {
		t.Fatalf("get rankings: %v", err)
	}
	if rankings[0].LastRacePosition == nil || *rankings[0].LastRacePosition != 3 {
		t.Fatalf("last race position = %v, want 3 (latest stage)", rankings[0].LastRacePosition)
	}
}

// Участники без единого финиша идут после всех с позицией.
func TestRankingsParticipantsWithoutFinishRankLast(t *testing.T) {
	f := newRankingFixture(t)

	// Оба набрали по 2 очка, но у A есть финиш (вне таблицы очков).
	a := f.addParticipant(t, "Rider A", 1)
	b := f.addParticipant(t, "Rider B", 2)
	f.result(t, a, f.raceIDs[0], 25) // финиш за пределами очков: 2
	f.result(t, b, f.raceIDs[0], 0)  // старт без финиша: 2

	rankings, err := f.ranking.GetContestRankings(context.Background(), f.contestID)
	if err != nil {
		t.Fatalf("get rankings: %v", err)
	}
	if rankings[0].ParticipantName != "Rider A" {
		t.Errorf("first ranked rider = %s, want Rider A (has a finish)", rankings[0].ParticipantName)
	}
	if rankings[1].LastRacePosition != nil {
		t.Errorf("rider without finish has last race position %v, want nil", rankings[1].LastRacePosition)
	}
}

// Пересчет рейтинга на неизменных данных дает идентичный результат.
func TestContestRankingsIdempotent(t *testing.T) {
	f := newRankingFixture(t)

	a := f.addParticipant(t, "Rider A", 1)
	b := f.addParticipant(t, "Rider B", 2)
	c := f.addParticipant(t, "Rider C", 3)
	f.result(t, a, f.raceIDs[0], 1)
	f.result(t, b, f.raceIDs[0], 2)
	f.result(t, c, f.raceIDs[0], 0)
	f.result(t, a, f.raceIDs[1], 2)
	f.result(t, b, f.raceIDs[1], 1)

	ctx := context.Background()
	first, err := f.ranking.GetContestRankings(ctx, f.contestID)
	if err != nil {
		t.Fatalf("first computation: %v", err)
	}
	second, err := f.ranking.GetContestRankings(ctx, f.contestID)
	if err != nil {
		t.Fatalf("second computation: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rankings are not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSeriesRankingsSummaryTrimsToTopTen(t *testing.T) {
	f := newRankingFixture(t)

	for i := 1; i <= 12; i++ {
		id := f.addParticipant(t, "Rider", i)
		f.result(t, id, f.raceIDs[0], i)
	}

	all, err := f.ranking.GetAllSeriesRankings(context.Background())
	if err != nil {
		t.Fatalf("get all series rankings: %v", err)
	}
	if len(all) != 1 || len(all[0].Contests) != 1 {
		t.Fatalf("unexpected shape: %d series", len(all))
	}
	if got := len(all[0].Contests[0].Rankings); got != 10 {
		t.Errorf("summary rankings length = %d, want 10", got)
	}

	// Детальное представление не обрезается.
	detail, err := f.ranking.GetSeriesRankings(context.Background(), f.seriesID)
	if err != nil {
		t.Fatalf("get series rankings: %v", err)
	}
	if got := len(detail.Contests[0].Rankings); got != 12 {
		t.Errorf("detail rankings length = %d, want 12", got)
	}
}

func TestContestStatistics(t *testing.T) {
	f := newRankingFixture(t)

	stats, err := f.ranking.GetContestStatistics(context.Background(), f.contestID)
	if err != nil {
		t.Fatalf("get statistics: %v", err)
	}
	if stats.TotalCompletedRaces != 3 {
		t.Errorf("completed races = %d, want 3", stats.TotalCompletedRaces)
	}
	if stats.LatestCompletedRace == nil {
		t.Fatal("latest completed race is nil")
	}
	if stats.LatestCompletedRace.RaceID != f.raceIDs[2] {
		t.Errorf("latest completed race = %d, want %d (latest stage)", stats.LatestCompletedRace.RaceID, f.raceIDs[2])
	}
}
