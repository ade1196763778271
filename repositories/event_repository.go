package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventInvalidSeries = errors.New("invalid series reference")
	ErrEventInUse         = errors.New("event is in use (races exist)")
)

type EventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	ListBySeries(ctx context.Context, seriesID int) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	UpdateImportStatus(ctx context.Context, id int, status *models.ImportStatus, importedAt *time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteBySeries(ctx context.Context, exec SQLExecutor, seriesID int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `id, series_id, name, date, location, club, registration_url, import_status, last_import_at, created_at, updated_at`

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (series_id, name, date, location, club, registration_url, import_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		e.SeriesID, e.Name, e.Date, e.Location, e.Club, e.RegistrationURL, e.ImportStatus,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)

	return r.handleEventError(err)
}

func (r *postgresEventRepository) scanEvent(rowScanner interface {
	Scan(dest ...interface{}) error
}, e *models.Event) error {
	return rowScanner.Scan(
		&e.ID, &e.SeriesID, &e.Name, &e.Date, &e.Location, &e.Club,
		&e.RegistrationURL, &e.ImportStatus, &e.LastImportAt, &e.CreatedAt, &e.UpdatedAt,
	)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e := &models.Event{}
	err := r.scanEvent(r.db.QueryRowContext(ctx, query, id), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return e, nil
}

func (r *postgresEventRepository) ListBySeries(ctx context.Context, seriesID int) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE series_id = $1 ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for series %d: %w", seriesID, err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if scanErr := r.scanEvent(rows, &e); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events SET
			name = $1, date = $2, location = $3, club = $4,
			registration_url = $5, updated_at = NOW()
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		e.Name, e.Date, e.Location, e.Club, e.RegistrationURL, e.ID,
	)
	if err != nil {
		return r.handleEventError(err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateImportStatus(ctx context.Context, id int, status *models.ImportStatus, importedAt *time.Time) error {
	query := `UPDATE events SET import_status = $1, last_import_at = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, importedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update event import status: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return r.handleEventError(err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) DeleteBySeries(ctx context.Context, exec SQLExecutor, seriesID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM events WHERE series_id = $1`, seriesID)
	if err != nil {
		return fmt.Errorf("failed to delete events for series %d: %w", seriesID, err)
	}
	return nil
}

func (r *postgresEventRepository) handleEventError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503":
			if pqErr.Constraint == "events_series_id_fkey" {
				return ErrEventInvalidSeries
			}
			return ErrEventInUse
		}
	}
	return err
}
