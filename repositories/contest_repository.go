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
	ErrContestNotFound      = errors.New("contest not found")
	ErrContestInvalidSeries = errors.New("invalid series reference")
	ErrContestInUse         = errors.New("contest is in use (participants/races exist)")
)

type ContestRepository interface {
	Create(ctx context.Context, c *models.Contest) error
	GetByID(ctx context.Context, id int) (*models.Contest, error)
	ListBySeries(ctx context.Context, seriesID int) ([]models.Contest, error)
	FindBySeriesAndName(ctx context.Context, seriesID int, name string) (*models.Contest, error)
	Update(ctx context.Context, c *models.Contest) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteBySeries(ctx context.Context, exec SQLExecutor, seriesID int) error
}

type postgresContestRepository struct {
	db *sql.DB
}

func NewPostgresContestRepository(db *sql.DB) ContestRepository {
	return &postgresContestRepository{db: db}
}

func (r *postgresContestRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const contestColumns = `id, series_id, name, gender, birth_year_from, birth_year_to,
	participation_points, group_name, comment, duration_minutes, created_at, updated_at`

func (r *postgresContestRepository) Create(ctx context.Context, c *models.Contest) error {
	query := `
		INSERT INTO contests (
			series_id, name, gender, birth_year_from, birth_year_to,
			participation_points, group_name, comment, duration_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		c.SeriesID, c.Name, c.Gender, c.BirthYearFrom, c.BirthYearTo,
		c.ParticipationPoints, c.Group, c.Comment, c.DurationMinutes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	return r.handleContestError(err)
}

func (r *postgresContestRepository) scanContest(rowScanner interface {
	Scan(dest ...interface{}) error
}, c *models.Contest) error {
	return rowScanner.Scan(
		&c.ID, &c.SeriesID, &c.Name, &c.Gender, &c.BirthYearFrom, &c.BirthYearTo,
		&c.ParticipationPoints, &c.Group, &c.Comment, &c.DurationMinutes,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *postgresContestRepository) GetByID(ctx context.Context, id int) (*models.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`

	c := &models.Contest{}
	err := r.scanContest(r.db.QueryRowContext(ctx, query, id), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresContestRepository) ListBySeries(ctx context.Context, seriesID int) ([]models.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE series_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests for series %d: %w", seriesID, err)
	}
	defer rows.Close()

	contests := make([]models.Contest, 0)
	for rows.Next() {
		var c models.Contest
		if scanErr := r.scanContest(rows, &c); scanErr != nil {
			return nil, scanErr
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

func (r *postgresContestRepository) FindBySeriesAndName(ctx context.Context, seriesID int, name string) (*models.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE series_id = $1 AND name = $2`

	c := &models.Contest{}
	err := r.scanContest(r.db.QueryRowContext(ctx, query, seriesID, name), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to find contest %q in series %d: %w", name, seriesID, err)
	}
	return c, nil
}

func (r *postgresContestRepository) Update(ctx context.Context, c *models.Contest) error {
	query := `
		UPDATE contests SET
			name = $1, gender = $2, birth_year_from = $3, birth_year_to = $4,
			participation_points = $5, group_name = $6, comment = $7,
			duration_minutes = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Gender, c.BirthYearFrom, c.BirthYearTo,
		c.ParticipationPoints, c.Group, c.Comment, c.DurationMinutes, c.ID,
	)
	if err != nil {
		return r.handleContestError(err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id)
	if err != nil {
		return r.handleContestError(err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) DeleteBySeries(ctx context.Context, exec SQLExecutor, seriesID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM contests WHERE series_id = $1`, seriesID)
	if err != nil {
		return fmt.Errorf("failed to delete contests for series %d: %w", seriesID, err)
	}
	return nil
}

func (r *postgresContestRepository) handleContestError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503":
			if pqErr.Constraint == "contests_series_id_fkey" {
				return ErrContestInvalidSeries
			}
			// FK от participants/races при удалении без каскада.
			return ErrContestInUse
		}
	}
	return err
}
