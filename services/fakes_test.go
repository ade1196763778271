package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// In-memory репозитории для тестов сервисного слоя. runInTx при nil-db
// выполняет функцию без транзакции, поэтому exec везде игнорируется.

type fakeSeriesRepo struct {
	nextID int
	items  map[int]*models.Series
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{items: map[int]*models.Series{}}
}

func (r *fakeSeriesRepo) Create(_ context.Context, s *models.Series) error {
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	copied := *s
	r.items[s.ID] = &copied
	return nil
}

func (r *fakeSeriesRepo) GetByID(_ context.Context, id int) (*models.Series, error) {
	s, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrSeriesNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSeriesRepo) List(_ context.Context) ([]models.Series, error) {
	ids := make([]int, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]models.Series, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.items[id])
	}
	return out, nil
}

func (r *fakeSeriesRepo) Update(_ context.Context, s *models.Series) error {
	if _, ok := r.items[s.ID]; !ok {
		return repositories.ErrSeriesNotFound
	}
	copied := *s
	r.items[s.ID] = &copied
	return nil
}

func (r *fakeSeriesRepo) UpdateLogoKey(_ context.Context, seriesID int, logoKey *string) error {
	s, ok := r.items[seriesID]
	if !ok {
		return repositories.ErrSeriesNotFound
	}
	s.LogoKey = logoKey
	return nil
}

func (r *fakeSeriesRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrSeriesNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeEventRepo struct {
	nextID int
	items  map[int]*models.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{items: map[int]*models.Event{}}
}

func (r *fakeEventRepo) Create(_ context.Context, e *models.Event) error {
	r.nextID++
	e.ID = r.nextID
	copied := *e
	r.items[e.ID] = &copied
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id int) (*models.Event, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEventRepo) ListBySeries(_ context.Context, seriesID int) ([]models.Event, error) {
	out := make([]models.Event, 0)
	for _, e := range r.items {
		if e.SeriesID == seriesID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, e *models.Event) error {
	if _, ok := r.items[e.ID]; !ok {
		return repositories.ErrEventNotFound
	}
	copied := *e
	r.items[e.ID] = &copied
	return nil
}

func (r *fakeEventRepo) UpdateImportStatus(_ context.Context, id int, status *models.ImportStatus, importedAt *time.Time) error {
	e, ok := r.items[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.ImportStatus = status
	e.LastImportAt = importedAt
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeEventRepo) DeleteBySeries(_ context.Context, _ repositories.SQLExecutor, seriesID int) error {
	for id, e := range r.items {
		if e.SeriesID == seriesID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeContestRepo struct {
	nextID int
	items  map[int]*models.Contest
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{items: map[int]*models.Contest{}}
}

func (r *fakeContestRepo) Create(_ context.Context, c *models.Contest) error {
	r.nextID++
	c.ID = r.nextID
	copied := *c
	r.items[c.ID] = &copied
	return nil
}

func (r *fakeContestRepo) GetByID(_ context.Context, id int) (*models.Contest, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrContestNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeContestRepo) ListBySeries(_ context.Context, seriesID int) ([]models.Contest, error) {
	out := make([]models.Contest, 0)
	ids := make([]int, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if r.items[id].SeriesID == seriesID {
			out = append(out, *r.items[id])
		}
	}
	return out, nil
}

func (r *fakeContestRepo) FindBySeriesAndName(_ context.Context, seriesID int, name string) (*models.Contest, error) {
	for _, c := range r.items {
		if c.SeriesID == seriesID && c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeContestRepo) Update(_ context.Context, c *models.Contest) error {
	if _, ok := r.items[c.ID]; !ok {
		return repositories.ErrContestNotFound
	}
	copied := *c
	r.items[c.ID] = &copied
	return nil
}

func (r *fakeContestRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrContestNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeContestRepo) DeleteBySeries(_ context.Context, _ repositories.SQLExecutor, seriesID int) error {
	for id, c := range r.items {
		if c.SeriesID == seriesID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeRaceRepo struct {
	nextID int
	items  map[int]*models.Race
	events *fakeEventRepo
}

func newFakeRaceRepo(events *fakeEventRepo) *fakeRaceRepo {
	return &fakeRaceRepo{items: map[int]*models.Race{}, events: events}
}

func (r *fakeRaceRepo) Create(_ context.Context, race *models.Race) error {
	r.nextID++
	race.ID = r.nextID
	copied := *race
	r.items[race.ID] = &copied
	return nil
}

func (r *fakeRaceRepo) GetByID(_ context.Context, id int) (*models.Race, error) {
	race, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrRaceNotFound
	}
	copied := *race
	return &copied, nil
}

func (r *fakeRaceRepo) sorted() []*models.Race {
	ids := make([]int, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*models.Race, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.items[id])
	}
	return out
}

func (r *fakeRaceRepo) ListByEvent(_ context.Context, eventID int) ([]models.Race, error) {
	out := make([]models.Race, 0)
	for _, race := range r.sorted() {
		if race.EventID == eventID {
			out = append(out, *race)
		}
	}
	return out, nil
}

func (r *fakeRaceRepo) ListByContest(_ context.Context, contestID int) ([]models.Race, error) {
	out := make([]models.Race, 0)
	for _, race := range r.sorted() {
		if race.ContestID == contestID {
			out = append(out, *race)
		}
	}
	return out, nil
}

func (r *fakeRaceRepo) Update(_ context.Context, race *models.Race) error {
	if _, ok := r.items[race.ID]; !ok {
		return repositories.ErrRaceNotFound
	}
	copied := *race
	r.items[race.ID] = &copied
	return nil
}

func (r *fakeRaceRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.RaceStatus) error {
	race, ok := r.items[id]
	if !ok {
		return repositories.ErrRaceNotFound
	}
	race.Status = status
	return nil
}

func (r *fakeRaceRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrRaceNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRaceRepo) DeleteByContest(_ context.Context, _ repositories.SQLExecutor, contestID int) error {
	for id, race := range r.items {
		if race.ContestID == contestID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeRaceRepo) DeleteByEvent(_ context.Context, _ repositories.SQLExecutor, eventID int) error {
	for id, race := range r.items {
		if race.EventID == eventID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeRaceRepo) CountCompletedByContest(_ context.Context, contestID int) (int, error) {
	count := 0
	for _, race := range r.items {
		if race.ContestID == contestID && race.Status == models.RaceStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeRaceRepo) LatestCompletedByContest(_ context.Context, contestID int) (*models.CompletedRaceRef, error) {
	var latest *models.CompletedRaceRef
	var latestDate time.Time
	for _, race := range r.items {
		if race.ContestID != contestID || race.Status != models.RaceStatusCompleted {
			continue
		}
		event, ok := r.events.items[race.EventID]
		if !ok {
			continue
		}
		if latest == nil || event.Date.After(latestDate) {
			latest = &models.CompletedRaceRef{RaceID: race.ID, EventName: event.Name, EventDate: event.Date}
			latestDate = event.Date
		}
	}
	return latest, nil
}

type fakeParticipantRepo struct {
	nextID int
	items  map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{items: map[int]*models.Participant{}}
}

func (r *fakeParticipantRepo) Create(_ context.Context, p *models.Participant) error {
	for _, existing := range r.items {
		if existing.ContestID == p.ContestID && existing.BibNumber == p.BibNumber {
			return repositories.ErrParticipantBibConflict
		}
	}
	r.nextID++
	p.ID = r.nextID
	copied := *p
	r.items[p.ID] = &copied
	return nil
}

func (r *fakeParticipantRepo) GetByID(_ context.Context, id int) (*models.Participant, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) ListByContest(_ context.Context, contestID int) ([]models.Participant, error) {
	out := make([]models.Participant, 0)
	for _, p := range r.items {
		if p.ContestID == contestID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BibNumber < out[j].BibNumber })
	return out, nil
}

func (r *fakeParticipantRepo) ListAvailableForRace(_ context.Context, contestID, raceID int) ([]models.Participant, error) {
	// Сервисные тесты, которым нужна фильтрация по участиям, строят
	// ожидания через fakeParticipationRepo; здесь достаточно списка зачета.
	return r.ListByContest(context.Background(), contestID)
}

func (r *fakeParticipantRepo) Update(_ context.Context, p *models.Participant) error {
	if _, ok := r.items[p.ID]; !ok {
		return repositories.ErrParticipantNotFound
	}
	copied := *p
	r.items[p.ID] = &copied
	return nil
}

func (r *fakeParticipantRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	p, ok := r.items[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipantRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeParticipantRepo) DeleteByContest(_ context.Context, _ repositories.SQLExecutor, contestID int) error {
	for id, p := range r.items {
		if p.ContestID == contestID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeParticipationRepo struct {
	nextID       int
	items        map[int]*models.Participation
	races        *fakeRaceRepo
	events       *fakeEventRepo
	participants *fakeParticipantRepo
}

func newFakeParticipationRepo(races *fakeRaceRepo, events *fakeEventRepo, participants *fakeParticipantRepo) *fakeParticipationRepo {
	return &fakeParticipationRepo{
		items:        map[int]*models.Participation{},
		races:        races,
		events:       events,
		participants: participants,
	}
}

func (r *fakeParticipationRepo) Create(_ context.Context, p *models.Participation) error {
	for _, existing := range r.items {
		if existing.ParticipantID == p.ParticipantID && existing.RaceID == p.RaceID {
			return repositories.ErrParticipationConflict
		}
	}
	r.nextID++
	p.ID = r.nextID
	if p.Status == "" {
		p.Status = models.ParticipationRegistered
	}
	copied := *p
	r.items[p.ID] = &copied
	return nil
}

func (r *fakeParticipationRepo) GetByID(_ context.Context, id int) (*models.Participation, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrParticipationNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipationRepo) ListByRace(_ context.Context, raceID int) ([]*models.Participation, error) {
	out := make([]*models.Participation, 0)
	for _, p := range r.items {
		if p.RaceID == raceID {
			copied := *p
			if pt, ok := r.participants.items[p.ParticipantID]; ok {
				ptCopy := *pt
				copied.Participant = &ptCopy
			}
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Participant, out[j].Participant
		if a != nil && b != nil {
			return a.BibNumber < b.BibNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeParticipationRepo) ListFinishedByRace(_ context.Context, _ repositories.SQLExecutor, raceID int) ([]*models.Participation, error) {
	out := make([]*models.Participation, 0)
	for _, p := range r.items {
		if p.RaceID == raceID && p.Status == models.ParticipationFinished {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Position == nil && b.Position == nil:
			return a.ID < b.ID
		case a.Position == nil:
			return false
		case b.Position == nil:
			return true
		case *a.Position != *b.Position:
			return *a.Position < *b.Position
		default:
			return a.ID < b.ID
		}
	})
	return out, nil
}

func (r *fakeParticipationRepo) ListByParticipantAndContest(_ context.Context, participantID, contestID int) ([]repositories.ContestParticipationRow, error) {
	out := make([]repositories.ContestParticipationRow, 0)
	for _, p := range r.items {
		if p.ParticipantID != participantID {
			continue
		}
		race, ok := r.races.items[p.RaceID]
		if !ok || race.ContestID != contestID {
			continue
		}
		event, ok := r.events.items[race.EventID]
		if !ok {
			continue
		}
		out = append(out, repositories.ContestParticipationRow{
			Participation: *p,
			EventName:     event.Name,
			EventDate:     event.Date,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].Participation.RaceID < out[j].Participation.RaceID
	})
	return out, nil
}

func (r *fakeParticipationRepo) UpdateState(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipationStatus, position *int) error {
	p, ok := r.items[id]
	if !ok {
		return repositories.ErrParticipationNotFound
	}
	p.Status = status
	p.Position = position
	return nil
}

func (r *fakeParticipationRepo) UpdatePosition(_ context.Context, _ repositories.SQLExecutor, id int, position *int) error {
	p, ok := r.items[id]
	if !ok {
		return repositories.ErrParticipationNotFound
	}
	if position == nil {
		p.Position = nil
	} else {
		v := *position
		p.Position = &v
	}
	return nil
}

func (r *fakeParticipationRepo) DeleteByParticipantAndRace(_ context.Context, participantID, raceID int) error {
	for id, p := range r.items {
		if p.ParticipantID == participantID && p.RaceID == raceID {
			delete(r.items, id)
			return nil
		}
	}
	return repositories.ErrParticipationNotFound
}

func (r *fakeParticipationRepo) DeleteByParticipant(_ context.Context, _ repositories.SQLExecutor, participantID int) error {
	for id, p := range r.items {
		if p.ParticipantID == participantID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeParticipationRepo) DeleteByRace(_ context.Context, _ repositories.SQLExecutor, raceID int) error {
	for id, p := range r.items {
		if p.RaceID == raceID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeParticipationRepo) DeleteByContest(_ context.Context, _ repositories.SQLExecutor, contestID int) error {
	for id, p := range r.items {
		race, ok := r.races.items[p.RaceID]
		if ok && race.ContestID == contestID {
			delete(r.items, id)
			continue
		}
		participant, ok := r.participants.items[p.ParticipantID]
		if ok && participant.ContestID == contestID {
			delete(r.items, id)
		}
	}
	return nil
}
