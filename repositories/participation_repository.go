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
	ErrParticipationNotFound           = errors.New("participation not found")
	ErrParticipationConflict           = errors.New("participant is already assigned to this race")
	ErrParticipationInvalidParticipant = errors.New("invalid participant reference")
	ErrParticipationInvalidRace        = errors.New("invalid race reference")
)

// ContestParticipationRow — участие, обогащенное данными этапа для
// агрегатора рейтинга. Строки упорядочены по дате этапа, поэтому последняя
// финишировавшая запись соответствует самой свежей гонке.
type ContestParticipationRow struct {
	Participation models.Participation
	EventName     string
	EventDate     time.Time
}

type ParticipationRepository interface {
	Create(ctx context.Context, p *models.Participation) error
	GetByID(ctx context.Context, id int) (*models.Participation, error)
	ListByRace(ctx context.Context, raceID int) ([]*models.Participation, error)
	ListFinishedByRace(ctx context.Context, exec SQLExecutor, raceID int) ([]*models.Participation, error)
	ListByParticipantAndContest(ctx context.Context, participantID, contestID int) ([]ContestParticipationRow, error)
	UpdateState(ctx context.Context, exec SQLExecutor, id int, status models.ParticipationStatus, position *int) error
	UpdatePosition(ctx context.Context, exec SQLExecutor, id int, position *int) error
	DeleteByParticipantAndRace(ctx context.Context, participantID, raceID int) error
	DeleteByParticipant(ctx context.Context, exec SQLExecutor, participantID int) error
	DeleteByRace(ctx context.Context, exec SQLExecutor, raceID int) error
	DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error
}

type postgresParticipationRepository struct {
	db *sql.DB
}

func NewPostgresParticipationRepository(db *sql.DB) ParticipationRepository {
	return &postgresParticipationRepository{db: db}
}

func (r *postgresParticipationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipationRepository) Create(ctx context.Context, p *models.Participation) error {
	registered, started, finished := p.StatusFlags()
	query := `
		INSERT INTO participations (participant_id, race_id, registered, started, finished, position, is_provisional)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ParticipantID, p.RaceID, registered, started, finished, p.Position, p.IsProvisional,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	return r.handleParticipationError(err)
}

func (r *postgresParticipationRepository) scanParticipation(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participation) error {
	var registered, started, finished sql.NullBool
	err := rowScanner.Scan(
		&p.ID, &p.ParticipantID, &p.RaceID,
		&registered, &started, &finished,
		&p.Position, &p.IsProvisional, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.Status = models.ParticipationStatusFromFlags(registered.Bool, started.Bool, finished.Bool)
	return nil
}

const participationColumns = `id, participant_id, race_id, registered, started, finished, position, is_provisional, created_at, updated_at`

func (r *postgresParticipationRepository) GetByID(ctx context.Context, id int) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE id = $1`

	p := &models.Participation{}
	err := r.scanParticipation(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipationNotFound
		}
		return nil, fmt.Errorf("failed to get participation %d: %w", id, err)
	}
	return p, nil
}

// ListByRace возвращает участия гонки вместе с участниками, сортировка по
// стартовому номеру.
func (r *postgresParticipationRepository) ListByRace(ctx context.Context, raceID int) ([]*models.Participation, error) {
	query := `
		SELECT
			pn.id, pn.participant_id, pn.race_id, pn.registered, pn.started, pn.finished,
			pn.position, pn.is_provisional, pn.created_at, pn.updated_at,
			pt.id, pt.contest_id, pt.name, pt.bib_number, pt.birth_year, pt.gender,
			pt.club, pt.team, pt.license_number, pt.status, pt.created_at, pt.updated_at
		FROM participations pn
		INNER JOIN participants pt ON pt.id = pn.participant_id
		WHERE pn.race_id = $1
		ORDER BY pt.bib_number ASC`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations for race %d: %w", raceID, err)
	}
	defer rows.Close()

	participations := make([]*models.Participation, 0)
	for rows.Next() {
		var (
			p                             models.Participation
			pt                            models.Participant
			registered, started, finished sql.NullBool
		)
		err := rows.Scan(
			&p.ID, &p.ParticipantID, &p.RaceID, &registered, &started, &finished,
			&p.Position, &p.IsProvisional, &p.CreatedAt, &p.UpdatedAt,
			&pt.ID, &pt.ContestID, &pt.Name, &pt.BibNumber, &pt.BirthYear, &pt.Gender,
			&pt.Club, &pt.Team, &pt.LicenseNumber, &pt.Status, &pt.CreatedAt, &pt.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Status = models.ParticipationStatusFromFlags(registered.Bool, started.Bool, finished.Bool)
		p.Participant = &pt
		participations = append(participations, &p)
	}
	return participations, rows.Err()
}

// ListFinishedByRace возвращает финишировавшие участия гонки по возрастанию
// позиции. Принимает executor: вызывается внутри транзакций перенумерации.
func (r *postgresParticipationRepository) ListFinishedByRace(ctx context.Context, exec SQLExecutor, raceID int) ([]*models.Participation, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE race_id = $1 AND finished = TRUE
		ORDER BY position ASC NULLS LAST, id ASC`

	rows, err := executor.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished participations for race %d: %w", raceID, err)
	}
	defer rows.Close()

	participations := make([]*models.Participation, 0)
	for rows.Next() {
		p := &models.Participation{}
		if scanErr := r.scanParticipation(rows, p); scanErr != nil {
			return nil, scanErr
		}
		participations = append(participations, p)
	}
	return participations, rows.Err()
}

// ListByParticipantAndContest возвращает участия участника в гонках данного
// зачета, по возрастанию даты этапа. Участия вне зачета отсекаются join-ом.
func (r *postgresParticipationRepository) ListByParticipantAndContest(ctx context.Context, participantID, contestID int) ([]ContestParticipationRow, error) {
	query := `
		SELECT
			pn.id, pn.participant_id, pn.race_id, pn.registered, pn.started, pn.finished,
			pn.position, pn.is_provisional, pn.created_at, pn.updated_at,
			e.name, e.date
		FROM participations pn
		INNER JOIN races r ON r.id = pn.race_id
		INNER JOIN events e ON e.id = r.event_id
		WHERE pn.participant_id = $1 AND r.contest_id = $2
		ORDER BY e.date ASC, r.id ASC`

	rows, err := r.db.QueryContext(ctx, query, participantID, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations for participant %d in contest %d: %w", participantID, contestID, err)
	}
	defer rows.Close()

	result := make([]ContestParticipationRow, 0)
	for rows.Next() {
		var (
			row                           ContestParticipationRow
			registered, started, finished sql.NullBool
		)
		err := rows.Scan(
			&row.Participation.ID, &row.Participation.ParticipantID, &row.Participation.RaceID,
			&registered, &started, &finished,
			&row.Participation.Position, &row.Participation.IsProvisional,
			&row.Participation.CreatedAt, &row.Participation.UpdatedAt,
			&row.EventName, &row.EventDate,
		)
		if err != nil {
			return nil, err
		}
		row.Participation.Status = models.ParticipationStatusFromFlags(registered.Bool, started.Bool, finished.Bool)
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *postgresParticipationRepository) UpdateState(ctx context.Context, exec SQLExecutor, id int, status models.ParticipationStatus, position *int) error {
	executor := r.getExecutor(exec)

	p := models.Participation{Status: status}
	registered, started, finished := p.StatusFlags()

	query := `
		UPDATE participations SET
			registered = $1, started = $2, finished = $3, position = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, registered, started, finished, position, id)
	if err != nil {
		return fmt.Errorf("failed to update participation state: %w", err)
	}
	return checkAffectedRows(result, ErrParticipationNotFound)
}

func (r *postgresParticipationRepository) UpdatePosition(ctx context.Context, exec SQLExecutor, id int, position *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participations SET position = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, position, id)
	if err != nil {
		return fmt.Errorf("failed to update participation position: %w", err)
	}
	return checkAffectedRows(result, ErrParticipationNotFound)
}

func (r *postgresParticipationRepository) DeleteByParticipantAndRace(ctx context.Context, participantID, raceID int) error {
	query := `DELETE FROM participations WHERE participant_id = $1 AND race_id = $2`
	result, err := r.db.ExecContext(ctx, query, participantID, raceID)
	if err != nil {
		return fmt.Errorf("failed to delete participation: %w", err)
	}
	return checkAffectedRows(result, ErrParticipationNotFound)
}

func (r *postgresParticipationRepository) DeleteByParticipant(ctx context.Context, exec SQLExecutor, participantID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM participations WHERE participant_id = $1`, participantID)
	if err != nil {
		return fmt.Errorf("failed to delete participations for participant %d: %w", participantID, err)
	}
	return nil
}

func (r *postgresParticipationRepository) DeleteByRace(ctx context.Context, exec SQLExecutor, raceID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM participations WHERE race_id = $1`, raceID)
	if err != nil {
		return fmt.Errorf("failed to delete participations for race %d: %w", raceID, err)
	}
	return nil
}

// DeleteByContest удаляет участия, привязанные к зачету через его гонки либо
// через его участников. Первый шаг каскадного удаления зачета.
func (r *postgresParticipationRepository) DeleteByContest(ctx context.Context, exec SQLExecutor, contestID int) error {
	executor := r.getExecutor(exec)
	query := `
		DELETE FROM participations
		WHERE race_id IN (SELECT id FROM races WHERE contest_id = $1)
		   OR participant_id IN (SELECT id FROM participants WHERE contest_id = $1)`
	_, err := executor.ExecContext(ctx, query, contestID)
	if err != nil {
		return fmt.Errorf("failed to delete participations for contest %d: %w", contestID, err)
	}
	return nil
}

func (r *postgresParticipationRepository) handleParticipationError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "participations_participant_id_race_id_unique" {
				return ErrParticipationConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "participations_participant_id_participants_id_fk":
				return ErrParticipationInvalidParticipant
			case "participations_race_id_races_id_fk":
				return ErrParticipationInvalidRace
			}
		}
	}
	return err
}
