package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/repositories"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost — стоимость хеширования паролей администраторов.
const bcryptCost = 12

// sessionTTL — срок жизни админской сессии.
const sessionTTL = 7 * 24 * time.Hour

// sessionClaims — полезная нагрузка токена сессии.
type sessionClaims struct {
	UserID int    `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.AdminUser, error)
	Login(ctx context.Context, email, password string) (*models.AdminUser, string, error)
	ValidateSession(ctx context.Context, token string) (*models.AdminUser, error)
	Logout(ctx context.Context, token string) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// Register создает администратора. Используется сидированием и CLI,
// публичной регистрации нет.
func (s *authService) Register(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email and a password of at least 8 characters are required", ErrValidationFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, err
	}
	return user, nil
}

// Login проверяет учетные данные и создает сессию. Токен сессии — JWT,
// он же хранится строкой в admin_sessions: подпись отсекает мусорные
// токены до похода в БД, а строка в БД дает серверный logout.
func (s *authService) Login(ctx context.Context, email, password string) (*models.AdminUser, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrAuthInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrAuthInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrAuthInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)

	claims := sessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &models.AdminSession{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    expiresAt,
	}
	if err := s.userRepo.CreateSession(ctx, session); err != nil {
		return nil, "", err
	}

	s.logger.Info("admin logged in", slog.Int("user_id", user.ID))
	return user, token, nil
}

// ValidateSession проверяет подпись токена, затем наличие живой сессии
// в БД. Сессия, удаленная logout-ом, невалидна даже при валидном JWT.
func (s *authService) ValidateSession(ctx context.Context, token string) (*models.AdminUser, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrAuthSessionInvalid
	}

	session, err := s.userRepo.GetSessionByToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrAuthSessionInvalid
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthSessionInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAuthSessionInvalid
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.userRepo.DeleteSession(ctx, token); err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil // уже разлогинен
		}
		return err
	}
	return nil
}

// CleanupExpiredSessions удаляет протухшие сессии; вызывается фоновым
// тикером.
func (s *authService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired admin sessions removed", slog.Int64("count", n))
	}
	return n, nil
}
