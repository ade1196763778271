package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
)

type participationFixture struct {
	service        ParticipationService
	participations *fakeParticipationRepo
	participants   *fakeParticipantRepo
	races          *fakeRaceRepo
	events         *fakeEventRepo
	race           *models.Race
}

func newParticipationFixture(t *testing.T) *participationFixture {
	t.Helper()

	events := newFakeEventRepo()
	races := newFakeRaceRepo(events)
	participants := newFakeParticipantRepo()
	participations := newFakeParticipationRepo(races, events, participants)

	ctx := context.Background()
	event := &models.Event{SeriesID: 1, Name: "Stage 1", Date: time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)}
	if err := events.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	race := &models.Race{EventID: event.ID, ContestID: 1, Status: models.RaceStatusOngoing}
	if err := races.Create(ctx, race); err != nil {
		t.Fatalf("create race: %v", err)
	}

	service := NewParticipationService(nil, participations, participants, races, nil, testLogger())

	return &participationFixture{
		service:        service,
		participations: participations,
		participants:   participants,
		races:          races,
		events:         events,
		race:           race,
	}
}

func (f *participationFixture) addRider(t *testing.T, bib int) *models.Participation {
	t.Helper()
	ctx := context.Background()

	participant := &models.Participant{
		ContestID: f.race.ContestID,
		Name:      "Rider",
		BibNumber: bib,
		BirthYear: 2010,
		Gender:    "M",
	}
	if err := f.participants.Create(ctx, participant); err != nil {
		t.Fatalf("create participant: %v", err)
	}

	participation, err := f.service.Assign(ctx, f.race.ID, participant.ID)
	if err != nil {
		t.Fatalf("assign participant %d: %v", participant.ID, err)
	}
	return participation
}

func (f *participationFixture) cycle(t *testing.T, id int) *models.Participation {
	t.Helper()
	p, err := f.service.CycleStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("cycle status of %d: %v", id, err)
	}
	return p
}

func TestCycleStatusFullCircle(t *testing.T) {
	f := newParticipationFixture(t)
	p := f.addRider(t, 11)

	if p.Status != models.ParticipationRegistered {
		t.Fatalf("new participation status = %q, want registered", p.Status)
	}

	p = f.cycle(t, p.ID)
	if p.Status != models.ParticipationStarted || p.Position != nil {
		t.Fatalf("after first cycle: status=%q position=%v, want started/nil", p.Status, p.Position)
	}

	p = f.cycle(t, p.ID)
	if p.Status != models.ParticipationFinished {
		t.Fatalf("after second cycle: status=%q, want finished", p.Status)
	}
	if p.Position == nil || *p.Position != 1 {
		t.Fatalf("first finisher position = %v, want 1", p.Position)
	}

	p = f.cycle(t, p.ID)
	if p.Status != models.ParticipationRegistered || p.Position != nil {
		t.Fatalf("after third cycle: status=%q position=%v, want registered/nil", p.Status, p.Position)
	}
}

func TestFinishAssignsSequentialPositions(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	c := f.addRider(t, 3)

	for _, p := range []*models.Participation{a, b, c} {
		f.cycle(t, p.ID) // started
		f.cycle(t, p.ID) // finished
	}

	for i, p := range []*models.Participation{a, b, c} {
		got, err := f.participations.GetByID(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("get participation: %v", err)
		}
		if got.Position == nil || *got.Position != i+1 {
			t.Errorf("finisher %d position = %v, want %d", p.ID, got.Position, i+1)
		}
	}
}

// Снятие финиша освобождает позицию и уплотняет протокол: оставшиеся
// финишеры получают места 1..N без дыр.
func TestUnfinishRenumbersDensely(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	c := f.addRider(t, 3)
	for _, p := range []*models.Participation{a, b, c} {
		f.cycle(t, p.ID)
		f.cycle(t, p.ID)
	}

	// a финишировал первым; возвращаем его в registered
	f.cycle(t, a.ID)

	ctx := context.Background()
	gotA, _ := f.participations.GetByID(ctx, a.ID)
	if gotA.Status != models.ParticipationRegistered || gotA.Position != nil {
		t.Fatalf("unfinished rider: status=%q position=%v", gotA.Status, gotA.Position)
	}

	gotB, _ := f.participations.GetByID(ctx, b.ID)
	gotC, _ := f.participations.GetByID(ctx, c.ID)
	if gotB.Position == nil || *gotB.Position != 1 {
		t.Errorf("rider b position = %v, want 1", gotB.Position)
	}
	if gotC.Position == nil || *gotC.Position != 2 {
		t.Errorf("rider c position = %v, want 2", gotC.Position)
	}
}

func TestMoveUpSwapsWithNeighbor(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	for _, p := range []*models.Participation{a, b} {
		f.cycle(t, p.ID)
		f.cycle(t, p.ID)
	}

	moved, err := f.service.MoveUp(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("move up: %v", err)
	}
	if moved.Position == nil || *moved.Position != 1 {
		t.Fatalf("moved rider position = %v, want 1", moved.Position)
	}

	gotA, _ := f.participations.GetByID(context.Background(), a.ID)
	if gotA.Position == nil || *gotA.Position != 2 {
		t.Fatalf("displaced rider position = %v, want 2", gotA.Position)
	}
}

func TestMoveUpAtTopIsNoop(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	for _, p := range []*models.Participation{a, b} {
		f.cycle(t, p.ID)
		f.cycle(t, p.ID)
	}

	moved, err := f.service.MoveUp(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("move up at top: %v", err)
	}
	if moved.Position == nil || *moved.Position != 1 {
		t.Fatalf("top rider position = %v, want 1 (no-op)", moved.Position)
	}
}

func TestMoveDownAtBottomIsNoop(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	for _, p := range []*models.Participation{a, b} {
		f.cycle(t, p.ID)
		f.cycle(t, p.ID)
	}

	moved, err := f.service.MoveDown(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("move down at bottom: %v", err)
	}
	if moved.Position == nil || *moved.Position != 2 {
		t.Fatalf("bottom rider position = %v, want 2 (no-op)", moved.Position)
	}
}

func TestMoveRequiresFinishedStatus(t *testing.T) {
	f := newParticipationFixture(t)
	p := f.addRider(t, 1)

	if _, err := f.service.MoveUp(context.Background(), p.ID); !errors.Is(err, ErrOnlyFinishedReorder) {
		t.Fatalf("move up of registered participation: err = %v, want ErrOnlyFinishedReorder", err)
	}

	f.cycle(t, p.ID) // started
	if _, err := f.service.MoveDown(context.Background(), p.ID); !errors.Is(err, ErrOnlyFinishedReorder) {
		t.Fatalf("move down of started participation: err = %v, want ErrOnlyFinishedReorder", err)
	}
}

func TestAssignRejectsDuplicates(t *testing.T) {
	f := newParticipationFixture(t)
	p := f.addRider(t, 1)

	if _, err := f.service.Assign(context.Background(), f.race.ID, p.ParticipantID); !errors.Is(err, ErrAssignmentConflict) {
		t.Fatalf("duplicate assign: err = %v, want ErrAssignmentConflict", err)
	}
}

func TestAssignRejectsForeignContest(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()

	outsider := &models.Participant{ContestID: 99, Name: "Outsider", BibNumber: 7, BirthYear: 2009, Gender: "W"}
	if err := f.participants.Create(ctx, outsider); err != nil {
		t.Fatalf("create participant: %v", err)
	}

	if _, err := f.service.Assign(ctx, f.race.ID, outsider.ID); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("cross-contest assign: err = %v, want ErrValidationFailed", err)
	}
}

// Удаление участия не перенумеровывает оставшихся финишеров: дыра в
// протоколе остается до ручного вмешательства судьи.
func TestRemoveKeepsPositionsUntouched(t *testing.T) {
	f := newParticipationFixture(t)

	a := f.addRider(t, 1)
	b := f.addRider(t, 2)
	for _, p := range []*models.Participation{a, b} {
		f.cycle(t, p.ID)
		f.cycle(t, p.ID)
	}

	if err := f.service.Remove(context.Background(), f.race.ID, a.ParticipantID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	gotB, _ := f.participations.GetByID(context.Background(), b.ID)
	if gotB.Position == nil || *gotB.Position != 2 {
		t.Fatalf("remaining finisher position = %v, want 2 (no renumbering)", gotB.Position)
	}
}
