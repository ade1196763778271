package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

// Обертки над фейками, фиксирующие порядок удалений внутри каскада.

type recordingParticipationRepo struct {
	*fakeParticipationRepo
	calls *[]string
}

func (r *recordingParticipationRepo) DeleteByContest(ctx context.Context, exec repositories.SQLExecutor, contestID int) error {
	*r.calls = append(*r.calls, "participations")
	return r.fakeParticipationRepo.DeleteByContest(ctx, exec, contestID)
}

type recordingParticipantRepo struct {
	*fakeParticipantRepo
	calls *[]string
}

func (r *recordingParticipantRepo) DeleteByContest(ctx context.Context, exec repositories.SQLExecutor, contestID int) error {
	*r.calls = append(*r.calls, "participants")
	return r.fakeParticipantRepo.DeleteByContest(ctx, exec, contestID)
}

type recordingRaceRepo struct {
	*fakeRaceRepo
	calls *[]string
}

func (r *recordingRaceRepo) DeleteByContest(ctx context.Context, exec repositories.SQLExecutor, contestID int) error {
	*r.calls = append(*r.calls, "races")
	return r.fakeRaceRepo.DeleteByContest(ctx, exec, contestID)
}

type recordingContestRepo struct {
	*fakeContestRepo
	calls *[]string
}

func (r *recordingContestRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	*r.calls = append(*r.calls, "contest")
	return r.fakeContestRepo.Delete(ctx, exec, id)
}

func TestContestDeleteCascadesInOrder(t *testing.T) {
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
	contest := &models.Contest{SeriesID: series.ID, Name: "U17 m"}
	if err := contestRepo.Create(ctx, contest); err != nil {
		t.Fatalf("create contest: %v", err)
	}
	event := &models.Event{SeriesID: series.ID, Name: "Stage 1", Date: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)}
	if err := eventRepo.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	race := &models.Race{EventID: event.ID, ContestID: contest.ID, Status: models.RaceStatusCompleted}
	if err := raceRepo.Create(ctx, race); err != nil {
		t.Fatalf("create race: %v", err)
	}
	rider := &models.Participant{ContestID: contest.ID, Name: "Rider", BibNumber: 12, BirthYear: 2009, Gender: "M"}
	if err := participantRepo.Create(ctx, rider); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	if err := participationRepo.Create(ctx, &models.Participation{ParticipantID: rider.ID, RaceID: race.ID, Status: models.ParticipationRegistered}); err != nil {
		t.Fatalf("create participation: %v", err)
	}

	var calls []string
	svc := NewContestService(
		nil,
		&recordingContestRepo{contestRepo, &calls},
		seriesRepo,
		&recordingRaceRepo{raceRepo, &calls},
		&recordingParticipantRepo{participantRepo, &calls},
		&recordingParticipationRepo{participationRepo, &calls},
		nil,
		testLogger(),
	)

	if err := svc.Delete(ctx, contest.ID); err != nil {
		t.Fatalf("delete contest: %v", err)
	}

	want := []string{"participations", "participants", "races", "contest"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("cascade order = %v, want %v", calls, want)
	}

	if _, err := contestRepo.GetByID(ctx, contest.ID); !errors.Is(err, repositories.ErrContestNotFound) {
		t.Fatalf("contest still present after delete: %v", err)
	}
	if _, err := raceRepo.GetByID(ctx, race.ID); !errors.Is(err, repositories.ErrRaceNotFound) {
		t.Fatalf("race still present after delete: %v", err)
	}
	if _, err := participantRepo.GetByID(ctx, rider.ID); !errors.Is(err, repositories.ErrParticipantNotFound) {
		t.Fatalf("participant still present after delete: %v", err)
	}
	if got, err := participationRepo.ListByRace(ctx, race.ID); err != nil || len(got) != 0 {
		t.Fatalf("participations still present after delete: %v %v", got, err)
	}
}

func TestContestDeleteNotFound(t *testing.T) {
	ctx := context.Background()

	eventRepo := newFakeEventRepo()
	raceRepo := newFakeRaceRepo(eventRepo)
	participantRepo := newFakeParticipantRepo()
	svc := NewContestService(
		nil,
		newFakeContestRepo(),
		newFakeSeriesRepo(),
		raceRepo,
		participantRepo,
		newFakeParticipationRepo(raceRepo, eventRepo, participantRepo),
		nil,
		testLogger(),
	)

	if err := svc.Delete(ctx, 42); !errors.Is(err, ErrContestNotFound) {
		t.Fatalf("err = %v, want ErrContestNotFound", err)
	}
}

func TestContestCreateRejectsInvalidYearRange(t *testing.T) {
	ctx := context.Background()

	seriesRepo := newFakeSeriesRepo()
	eventRepo := newFakeEventRepo()
	raceRepo := newFakeRaceRepo(eventRepo)
	participantRepo := newFakeParticipantRepo()
	svc := NewContestService(
		nil,
		newFakeContestRepo(),
		seriesRepo,
		raceRepo,
		participantRepo,
		newFakeParticipationRepo(raceRepo, eventRepo, participantRepo),
		nil,
		testLogger(),
	)

	series := &models.Series{Name: "Stevens Cup", Season: "2025/2026", Status: models.SeriesStatusOngoing}
	if err := seriesRepo.Create(ctx, series); err != nil {
		t.Fatalf("create series: %v", err)
	}

	from, to := 2012, 2010
	_, err := svc.Create(ctx, CreateContestInput{
		SeriesID:      series.ID,
		Name:          "U15 w",
		BirthYearFrom: &from,
		BirthYearTo:   &to,
	})
	if !errors.Is(err, ErrContestInvalidYearRange) {
		t.Fatalf("err = %v, want ErrContestInvalidYearRange", err)
	}
}
