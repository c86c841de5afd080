package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audioia/internal/cache"
	customjwt "github.com/magabrotheeeer/audioia/internal/lib/jwt"
	"github.com/magabrotheeeer/audioia/internal/lib/password"
	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/services/auth"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type AccountRepoMock struct {
	mock.Mock
}

func (m *AccountRepoMock) CreateAccount(ctx context.Context, email, passwordHash string, now time.Time) (*models.Account, error) {
	args := m.Called(ctx, email, passwordHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type SessionStoreMock struct {
	mock.Mock
}

func (m *SessionStoreMock) SaveSession(ctx context.Context, session models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *SessionStoreMock) GetSession(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *SessionStoreMock) DeleteSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

const testSecret = "test-secret"

func newService(repo *AccountRepoMock, sessions *SessionStoreMock) (*auth.Service, *customjwt.MakerImpl) {
	maker := customjwt.NewJWTMaker(testSecret, time.Hour)
	return auth.NewService(repo, sessions, maker, newNoopLogger()), maker
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		setupMocks func(r *AccountRepoMock)
		wantErr    error
	}{
		{
			name:  "successful registration normalizes email",
			email: "  User@Example.com ",
			setupMocks: func(r *AccountRepoMock) {
				r.On("CreateAccount", mock.Anything, "user@example.com",
					mock.MatchedBy(func(hash string) bool {
						return password.CompareHash(hash, "password123") == nil
					}), mock.Anything).
					Return(&models.Account{UID: "acc-1", Email: "user@example.com", Entitlement: models.EntitlementFree}, nil).Once()
			},
		},
		{
			name:  "duplicate account",
			email: "user@example.com",
			setupMocks: func(r *AccountRepoMock) {
				r.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, storage.ErrAccountExists).Once()
			},
			wantErr: storage.ErrAccountExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AccountRepoMock)
			svc, _ := newService(repo, new(SessionStoreMock))
			tt.setupMocks(repo)

			acc, err := svc.Register(context.Background(), tt.email, "password123")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acc-1", acc.UID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("correct")
	require.NoError(t, err)
	account := &models.Account{UID: "acc-1", Email: "user@example.com", PasswordHash: hash}

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *AccountRepoMock, s *SessionStoreMock)
		wantErr    error
	}{
		{
			name:     "success",
			password: "correct",
			setupMocks: func(r *AccountRepoMock, s *SessionStoreMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").Return(account, nil).Once()
				s.On("SaveSession", mock.Anything, mock.MatchedBy(func(sess models.Session) bool {
					return sess.AccountUID == "acc-1" && sess.ID != "" && sess.ExpiresAt.After(time.Now())
				})).Return(nil).Once()
			},
		},
		{
			name:     "wrong password",
			password: "wrong",
			setupMocks: func(r *AccountRepoMock, _ *SessionStoreMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").Return(account, nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			password: "correct",
			setupMocks: func(r *AccountRepoMock, _ *SessionStoreMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").Return(nil, storage.ErrAccountNotFound).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "session store down",
			password: "correct",
			setupMocks: func(r *AccountRepoMock, s *SessionStoreMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").Return(account, nil).Once()
				s.On("SaveSession", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
			},
			wantErr: errors.New("redis down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AccountRepoMock)
			sessions := new(SessionStoreMock)
			svc, maker := newService(repo, sessions)
			tt.setupMocks(repo, sessions)

			token, session, err := svc.Login(context.Background(), "User@example.com", tt.password)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				claims, err := maker.ParseToken(token)
				require.NoError(t, err)
				assert.Equal(t, "acc-1", claims.AccountUID())
				assert.Equal(t, session.ID, claims.SessionID())
			case errors.Is(tt.wantErr, auth.ErrInvalidCredentials):
				assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			default:
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			}
			repo.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	maker := customjwt.NewJWTMaker(testSecret, time.Hour)
	token, _, err := maker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		setupMocks func(s *SessionStoreMock)
		wantErr    bool
	}{
		{
			name:  "active session",
			token: token,
			setupMocks: func(s *SessionStoreMock) {
				s.On("GetSession", mock.Anything, "sess-1").
					Return(&models.Session{ID: "sess-1", AccountUID: "acc-1"}, nil).Once()
			},
		},
		{
			name:  "revoked session",
			token: token,
			setupMocks: func(s *SessionStoreMock) {
				s.On("GetSession", mock.Anything, "sess-1").Return(nil, cache.ErrSessionNotFound).Once()
			},
			wantErr: true,
		},
		{
			name:  "session belongs to another account",
			token: token,
			setupMocks: func(s *SessionStoreMock) {
				s.On("GetSession", mock.Anything, "sess-1").
					Return(&models.Session{ID: "sess-1", AccountUID: "acc-2"}, nil).Once()
			},
			wantErr: true,
		},
		{
			name:       "garbage token",
			token:      "not.a.token",
			setupMocks: func(*SessionStoreMock) {},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(SessionStoreMock)
			svc := auth.NewService(new(AccountRepoMock), sessions, maker, newNoopLogger())
			tt.setupMocks(sessions)

			session, err := svc.Authenticate(context.Background(), tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrSessionNotFound)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acc-1", session.AccountUID)
			}
			sessions.AssertExpectations(t)
		})
	}
}

func TestService_Logout(t *testing.T) {
	maker := customjwt.NewJWTMaker(testSecret, time.Hour)
	token, _, err := maker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)

	sessions := new(SessionStoreMock)
	sessions.On("DeleteSession", mock.Anything, "sess-1").Return(nil).Once()
	svc := auth.NewService(new(AccountRepoMock), sessions, maker, newNoopLogger())

	require.NoError(t, svc.Logout(context.Background(), token))
	require.NoError(t, svc.Logout(context.Background(), "garbage"))
	sessions.AssertExpectations(t)
}
