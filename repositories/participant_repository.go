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
	ErrParticipantNotFound       = errors.New("participant not found")
	ErrParticipantBibConflict    = errors.New("bib number already taken in this contest")
	ErrParticipantInvalidContest = errors.New("invalid contest reference")
	ErrParticipantInUse          = errors.New("participant is in use (participations exist)")
)

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByContest(ctx context.Context, contestID int) ([]models.Participant, error)
	ListAvailableForRace(ctx context.Context, contestID, raceID int) ([]models.Participant, error)
	Update(ctx context.Context, p *models.Participant) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, contest_id, name, bib_number, birth_year, gender,
	club, team, license_number, status, created_at, updated_at`

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (
			contest_id, name, bib_number, birth_year, gender, club, team, license_number, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ContestID, p.Name, p.BibNumber, p.BirthYear, p.Gender,
		p.Club, p.Team, p.LicenseNumber, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participant) error {
	return rowScanner.Scan(
		&p.ID, &p.ContestID, &p.Name, &p.BibNumber, &p.BirthYear, &p.Gender,
		&p.Club, &p.Team, &p.LicenseNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`

	p := &models.Participant{}
	err := r.scanParticipant(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := r.scanParticipant(rows, &p); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) ListByContest(ctx context.Context, contestID int) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE contest_id = $1 ORDER BY bib_number ASC`
	return r.list(ctx, query, contestID)
}

// ListAvailableForRace возвращает участников зачета, еще не назначенных на гонку.
func (r *postgresParticipantRepository) ListAvailableForRace(ctx context.Context, contestID, raceID int) ([]models.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		WHERE contest_id = $1
		  AND id NOT IN (SELECT participant_id FROM participations WHERE race_id = $2)
		ORDER BY bib_number ASC`
	return r.list(ctx, query, contestID, raceID)
}

func (r *postgresParticipantRepository) Update(ctx context.Context, p *models.Participant) error {
	query := `
		UPDATE participants SET
			name = $1, bib_number = $2, birth_year = $3, gender = $4,
			club = $5, team = $6, license_number = $7, status = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.BibNumber, p.BirthYear, p.Gender,
		p.Club, p.Team, p.LicenseNumber, p.Status, p.ID,
	)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE participants SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM participants WHERE contest_id = $1`, contestID)
	if err != nil {
		return fmt.Errorf("failed to delete participants for contest %d: %w", contestID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "participants_contest_id_bib_number_key" {
				return ErrParticipantBibConflict
			}
		case "23503":
			if pqErr.Constraint == "participants_contest_id_fkey" {
				return ErrParticipantInvalidContest
			}
			return ErrParticipantInUse
		}
	}
	return err
}
