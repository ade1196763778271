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
	ErrUserNotFound      = errors.New("admin user not found")
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrSessionNotFound   = errors.New("session not found")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.AdminUser) error
	GetByID(ctx context.Context, id int) (*models.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	CreateSession(ctx context.Context, s *models.AdminSession) error
	GetSessionByToken(ctx context.Context, token string, now time.Time) (*models.AdminSession, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, u *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) scanUser(rowScanner interface {
	Scan(dest ...interface{}) error
}, u *models.AdminUser) error {
	return rowScanner.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
}

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.AdminUser, error) {
	query := `SELECT ` + userColumns + ` FROM admin_users WHERE id = $1`

	u := &models.AdminUser{}
	err := r.scanUser(r.db.QueryRowContext(ctx, query, id), u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get admin user %d: %w", id, err)
	}
	return u, nil
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := `SELECT ` + userColumns + ` FROM admin_users WHERE email = $1`

	u := &models.AdminUser{}
	err := r.scanUser(r.db.QueryRowContext(ctx, query, email), u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get admin user by email: %w", err)
	}
	return u, nil
}

func (r *postgresUserRepository) CreateSession(ctx context.Context, s *models.AdminSession) error {
	query := `
		INSERT INTO admin_sessions (user_id, session_token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, s.UserID, s.SessionToken, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create admin session: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetSessionByToken(ctx context.Context, token string, now time.Time) (*models.AdminSession, error) {
	query := `
		SELECT id, user_id, session_token, expires_at, created_at
		FROM admin_sessions
		WHERE session_token = $1 AND expires_at > $2`

	s := &models.AdminSession{}
	err := r.db.QueryRowContext(ctx, query, token, now).
		Scan(&s.ID, &s.UserID, &s.SessionToken, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *postgresUserRepository) DeleteSession(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE session_token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}

func (r *postgresUserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
