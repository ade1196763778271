package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/lib/pq"
)

var (
	ErrRaceNotFound       = errors.New("race not found")
	ErrRaceInvalidEvent   = errors.New("invalid event reference")
	ErrRaceInvalidContest = errors.New("invalid contest reference")
	ErrRaceInUse          = errors.New("race is in use (participations exist)")
)

type RaceRepository interface {
	Create(ctx context.Context, race *models.Race) error
	GetByID(ctx context.Context, id int) (*models.Race, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.Race, error)
	ListByContest(ctx context.Context, contestID int) ([]models.Race, error)
	Update(ctx context.Context, race *models.Race) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RaceStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error
	DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) error
	CountCompletedByContest(ctx context.Context, contestID int) (int, error)
	LatestCompletedByContest(ctx context.Context, contestID int) (*models.CompletedRaceRef, error)
}

type postgresRaceRepository struct {
	db *sql.DB
}

func NewPostgresRaceRepository(db *sql.DB) RaceRepository {
	return &postgresRaceRepository{db: db}
}

func (r *postgresRaceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const raceColumns = `id, event_id, contest_id, start_time, status, created_at, updated_at`

func (r *postgresRaceRepository) Create(ctx context.Context, race *models.Race) error {
	query := `
		INSERT INTO races (event_id, contest_id, start_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		race.EventID, race.ContestID, race.StartTime, race.Status,
	).Scan(&race.ID, &race.CreatedAt, &race.UpdatedAt)

	return r.handleRaceError(err)
}

func (r *postgresRaceRepository) scanRace(rowScanner interface {
	Scan(dest ...interface{}) error
}, race *models.Race) error {
	return rowScanner.Scan(
		&race.ID, &race.EventID, &race.ContestID, &race.StartTime,
		&race.Status, &race.CreatedAt, &race.UpdatedAt,
	)
}

func (r *postgresRaceRepository) GetByID(ctx context.Context, id int) (*models.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE id = $1`

	race := &models.Race{}
	err := r.scanRace(r.db.QueryRowContext(ctx, query, id), race)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRaceNotFound
		}
		return nil, fmt.Errorf("failed to get race %d: %w", id, err)
	}
	return race, nil
}

func (r *postgresRaceRepository) list(ctx context.Context, query string, arg int) ([]models.Race, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	races := make([]models.Race, 0)
	for rows.Next() {
		var race models.Race
		if scanErr := r.scanRace(rows, &race); scanErr != nil {
			return nil, scanErr
		}
		races = append(races, race)
	}
	return races, rows.Err()
}

func (r *postgresRaceRepository) ListByEvent(ctx context.Context, eventID int) ([]models.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE event_id = $1 ORDER BY start_time ASC NULLS LAST, id ASC`
	return r.list(ctx, query, eventID)
}

func (r *postgresRaceRepository) ListByContest(ctx context.Context, contestID int) ([]models.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE contest_id = $1 ORDER BY id ASC`
	return r.list(ctx, query, contestID)
}

func (r *postgresRaceRepository) Update(ctx context.Context, race *models.Race) error {
	query := `
		UPDATE races SET
			event_id = $1, contest_id = $2, start_time = $3, status = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		race.EventID, race.ContestID, race.StartTime, race.Status, race.ID,
	)
	if err != nil {
		return r.handleRaceError(err)
	}
	return checkAffectedRows(result, ErrRaceNotFound)
}

func (r *postgresRaceRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RaceStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE races SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return r.handleRaceError(err)
	}
	return checkAffectedRows(result, ErrRaceNotFound)
}

func (r *postgresRaceRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM races WHERE id = $1`, id)
	if err != nil {
		return r.handleRaceError(err)
	}
	return checkAffectedRows(result, ErrRaceNotFound)
}

func (r *postgresRaceRepository) DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM races WHERE contest_id = $1`, contestID)
	if err != nil {
		return fmt.Errorf("failed to delete races for contest %d: %w", contestID, err)
	}
	return nil
}

func (r *postgresRaceRepository) DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM races WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete races for event %d: %w", eventID, err)
	}
	return nil
}

func (r *postgresRaceRepository) CountCompletedByContest(ctx context.Context, contestID int) (int, error) {
	query := `SELECT COUNT(*) FROM races WHERE contest_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, contestID, models.RaceStatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed races for contest %d: %w", contestID, err)
	}
	return count, nil
}

func (r *postgresRaceRepository) LatestCompletedByContest(ctx context.Context, contestID int) (*models.CompletedRaceRef, error) {
	query := `
		SELECT r.id, e.name, e.date
		FROM races r
		INNER JOIN events e ON e.id = r.event_id
		WHERE r.contest_id = $1 AND r.status = $2
		ORDER BY e.date DESC
		LIMIT 1`

	ref := &models.CompletedRaceRef{}
	err := r.db.QueryRowContext(ctx, query, contestID, models.RaceStatusCompleted).
		Scan(&ref.RaceID, &ref.EventName, &ref.EventDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest completed race for contest %d: %w", contestID, err)
	}
	return ref, nil
}

func (r *postgresRaceRepository) handleRaceError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503":
			switch pqErr.Constraint {
			case "races_event_id_fkey":
				return ErrRaceInvalidEvent
			case "races_contest_id_fkey":
				return ErrRaceInvalidContest
			default:
				return ErrRaceInUse
			}
		}
	}
	return err
}
