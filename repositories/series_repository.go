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
	ErrSeriesNotFound     = errors.New("series not found")
	ErrSeriesNameConflict = errors.New("series name conflict for this season")
	ErrSeriesInUse        = errors.New("series is in use (events/contests exist)")
)

type SeriesRepository interface {
	Create(ctx context.Context, s *models.Series) error
	GetByID(ctx context.Context, id int) (*models.Series, error)
	List(ctx context.Context) ([]models.Series, error)
	Update(ctx context.Context, s *models.Series) error
	UpdateLogoKey(ctx context.Context, seriesID int, logoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresSeriesRepository struct {
	db *sql.DB
}

func NewPostgresSeriesRepository(db *sql.DB) SeriesRepository {
	return &postgresSeriesRepository{db: db}
}

func (r *postgresSeriesRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seriesColumns = `id, name, season, status, description, participants_url, logo_key, created_at, updated_at`

func (r *postgresSeriesRepository) Create(ctx context.Context, s *models.Series) error {
	query := `
		INSERT INTO series (name, season, status, description, participants_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.Name, s.Season, s.Status, s.Description, s.ParticipantsURL,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	return r.handleSeriesError(err)
}

func (r *postgresSeriesRepository) scanSeries(rowScanner interface {
	Scan(dest ...interface{}) error
}, s *models.Series) error {
	return rowScanner.Scan(
		&s.ID, &s.Name, &s.Season, &s.Status, &s.Description,
		&s.ParticipantsURL, &s.LogoKey, &s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *postgresSeriesRepository) GetByID(ctx context.Context, id int) (*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series WHERE id = $1`

	s := &models.Series{}
	err := r.scanSeries(r.db.QueryRowContext(ctx, query, id), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to get series %d: %w", id, err)
	}
	return s, nil
}

func (r *postgresSeriesRepository) List(ctx context.Context) ([]models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	result := make([]models.Series, 0)
	for rows.Next() {
		var s models.Series
		if scanErr := r.scanSeries(rows, &s); scanErr != nil {
			return nil, scanErr
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *postgresSeriesRepository) Update(ctx context.Context, s *models.Series) error {
	query := `
		UPDATE series SET
			name = $1, season = $2, status = $3, description = $4,
			participants_url = $5, updated_at = NOW()
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, s.Season, s.Status, s.Description, s.ParticipantsURL, s.ID,
	)
	if err != nil {
		return r.handleSeriesError(err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}

func (r *postgresSeriesRepository) UpdateLogoKey(ctx context.Context, seriesID int, logoKey *string) error {
	query := `UPDATE series SET logo_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, seriesID)
	if err != nil {
		return fmt.Errorf("failed to update series logo key: %w", err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}

func (r *postgresSeriesRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM series WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleSeriesError(err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}

func (r *postgresSeriesRepository) handleSeriesError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrSeriesNameConflict
		case "23503":
			// FK от events/contests при попытке удалить серию напрямую.
			return ErrSeriesInUse
		}
	}
	return err
}
