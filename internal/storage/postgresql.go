// Package storage реализует хранилище учётных записей на PostgreSQL.
//
// Все изменения счётчика квоты и тарифа выполняются в транзакции с
// блокировкой строки аккаунта (SELECT ... FOR UPDATE), поэтому конкурентные
// запросы одного аккаунта сериализуются, а разные аккаунты не мешают друг другу.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/audioia/internal/models"
)

var (
	// ErrAccountExists аккаунт с таким email уже зарегистрирован.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound аккаунт не найден.
	ErrAccountNotFound = errors.New("account not found")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

const accountColumns = `uid, email, password_hash, entitlement, quota_window_start, uploads_in_window, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// mapLookupErr сводит отсутствие строки и некорректный uuid к ErrAccountNotFound.
func mapLookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return ErrAccountNotFound
	}
	return err
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acc models.Account
	var entitlement string
	err := row.Scan(&acc.UID, &acc.Email, &acc.PasswordHash, &entitlement,
		&acc.QuotaWindowStart, &acc.UploadsInWindow, &acc.CreatedAt)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	acc.Entitlement = models.Entitlement(entitlement)
	return &acc, nil
}

// CreateAccount регистрирует аккаунт на бесплатном тарифе с пустым окном квоты, начатым в now.
func (s *Storage) CreateAccount(ctx context.Context, email, passwordHash string, now time.Time) (*models.Account, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accounts (email, password_hash, entitlement, quota_window_start, uploads_in_window, created_at)
			  VALUES ($1, $2, $3, $4, 0, $4)
			  RETURNING ` + accountColumns
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query,
		strings.TrimSpace(email), passwordHash, string(models.EntitlementFree), now.UTC()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// GetAccountByEmail ищет аккаунт по email без учёта регистра.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// GetAccount возвращает аккаунт по uid.
func (s *Storage) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// UpdateQuota выполняет read-modify-write состояния квоты под блокировкой строки.
//
// fn получает текущее состояние аккаунта и может изменить QuotaWindowStart и
// UploadsInWindow. Изменения сохраняются, только если fn вернула nil и что-то
// поменялось. Возвращается состояние после fn.
func (s *Storage) UpdateQuota(ctx context.Context, uid string, fn func(acc *models.Account) error) (*models.Account, error) {
	const op = "storage.UpdateQuota"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1 FOR UPDATE`
	acc, err := scanAccount(tx.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	before := *acc
	if err := fn(acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !acc.QuotaWindowStart.Equal(before.QuotaWindowStart) || acc.UploadsInWindow != before.UploadsInWindow {
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET quota_window_start = $1, uploads_in_window = $2 WHERE uid = $3`,
			acc.QuotaWindowStart.UTC(), acc.UploadsInWindow, uid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// SetPremium переводит аккаунт на premium и записывает активацию в журнал.
//
// Возвращает true, только если тариф действительно изменился. Повторный вызов
// для premium-аккаунта ничего не меняет.
func (s *Storage) SetPremium(ctx context.Context, uid, trigger, reference string, now time.Time) (bool, error) {
	const op = "storage.SetPremium"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var entitlement string
	err = tx.QueryRowContext(ctx, `SELECT entitlement FROM accounts WHERE uid = $1 FOR UPDATE`, uid).Scan(&entitlement)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}
	if models.Entitlement(entitlement) == models.EntitlementPremium {
		return false, nil
	}

	if _, err = tx.ExecContext(ctx, `UPDATE accounts SET entitlement = $1 WHERE uid = $2`,
		string(models.EntitlementPremium), uid); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO premium_activations (account_uid, trigger, reference, activated_at) VALUES ($1, $2, $3, $4)`,
		uid, trigger, reference, now.UTC()); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
