// Package auth отвечает за регистрацию, вход и сессии пользователей.
//
// Сессия это JWT (sub = uid аккаунта, jti = id сессии), который действителен,
// только пока запись сессии есть в хранилище сессий. Logout удаляет запись.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/audioia/internal/cache"
	"github.com/magabrotheeeer/audioia/internal/lib/jwt"
	"github.com/magabrotheeeer/audioia/internal/lib/password"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

var (
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound токен недействителен, истёк или сессия отозвана.
	ErrSessionNotFound = errors.New("session not found")
)

// AccountRepository хранилище аккаунтов.
type AccountRepository interface {
	CreateAccount(ctx context.Context, email, passwordHash string, now time.Time) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// SessionStore хранилище активных сессий.
type SessionStore interface {
	SaveSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Service сервис аутентификации.
type Service struct {
	accounts AccountRepository
	sessions SessionStore
	jwtMaker jwt.Maker
	log      *slog.Logger
	now      func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(accounts AccountRepository, sessions SessionStore, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		jwtMaker: jwtMaker,
		log:      log,
		now:      time.Now,
	}
}

// Register создает аккаунт на бесплатном тарифе. Если email занят, возвращает storage.ErrAccountExists.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*models.Account, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	acc, err := s.accounts.CreateAccount(ctx, normalizeEmail(email), hashed, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// Login проверяет пароль, открывает сессию и возвращает её токен.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.Session, error) {
	const op = "auth.Login"

	acc, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(acc.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.jwtMaker.GenerateToken(acc.UID, acc.Email, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	session := &models.Session{
		ID:         sessionID,
		AccountUID: acc.UID,
		Email:      acc.Email,
		ExpiresAt:  expiresAt,
	}
	if err := s.sessions.SaveSession(ctx, *session); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("session opened", sl.Op(op), slog.String("account_uid", acc.UID))
	return token, session, nil
}

// Authenticate проверяет токен и возвращает его сессию.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	const op = "auth.Authenticate"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrSessionNotFound, err)
	}
	session, err := s.sessions.GetSession(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session.AccountUID != claims.AccountUID() {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	return session, nil
}

// Logout отзывает сессию токена. Недействительный токен не считается ошибкой.
func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "auth.Logout"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, claims.SessionID()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("session closed", sl.Op(op), slog.String("account_uid", claims.AccountUID()))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
