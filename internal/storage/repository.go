package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateEmail indicates a user with the given email already exists.
	ErrDuplicateEmail = errors.New("storage: email already registered")
)

const (
	alertColumns = `id, user_id, telegram_chat_id, base_currency, target_currency,
        target_rate, condition, rate_type, is_active, created_at, updated_at`

	insertAlertSQL = `INSERT INTO alerts (
        id, user_id, telegram_chat_id, base_currency, target_currency,
        target_rate, condition, rate_type, is_active
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING ` + alertColumns + `;`

	getAlertSQL = `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1;`

	listAlertsByOwnerSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE user_id = $1
      AND ($2::boolean IS NULL OR is_active = $2)
    ORDER BY created_at DESC;`

	listActiveAlertsByBaseSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE base_currency = $1
      AND is_active = TRUE
    ORDER BY created_at;`

	countActiveAlertsSQL = `SELECT COUNT(*) FROM alerts
    WHERE base_currency = $1 AND is_active = TRUE;`

	deleteAlertSQL = `DELETE FROM alerts WHERE id = $1;`

	insertUserSQL = `INSERT INTO users (
        id, email, password_hash, telegram_chat_id
    ) VALUES ($1,$2,$3,$4)
    RETURNING id, email, password_hash, telegram_chat_id, created_at;`

	getUserSQL = `SELECT id, email, password_hash, telegram_chat_id, created_at
    FROM users WHERE id = $1;`

	getUserByEmailSQL = `SELECT id, email, password_hash, telegram_chat_id, created_at
    FROM users WHERE email = $1;`
)

// AlertStore defines the persistence operations for alert records. The
// evaluator only uses ListActiveAlertsByBase; the rest belongs to the CRUD
// surface.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert Alert) (Alert, error)
	GetAlert(ctx context.Context, id string) (Alert, error)
	ListAlertsByOwner(ctx context.Context, userID string, isActive *bool) ([]Alert, error)
	ListActiveAlertsByBase(ctx context.Context, baseCurrency string) ([]Alert, error)
	CountActiveAlerts(ctx context.Context, baseCurrency string) (int64, error)
	UpdateAlertFields(ctx context.Context, id string, patch AlertPatch) (Alert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// UserStore defines the persistence operations for user records.
type UserStore interface {
	InsertUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Store aggregates access to alert and user records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists a new alert record.
func (s *Store) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ID,
		alert.UserID,
		alert.TelegramChatID,
		alert.BaseCurrency,
		alert.TargetCurrency,
		alert.TargetRate.String(),
		string(alert.Condition),
		string(alert.RateType),
		alert.IsActive,
	)

	rec, err := scanAlert(row)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return rec, nil
}

// GetAlert fetches one alert by ID.
func (s *Store) GetAlert(ctx context.Context, id string) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	rec, err := scanAlert(pool.QueryRow(ctx, getAlertSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrNotFound
		}
		return Alert{}, fmt.Errorf("get alert: %w", err)
	}
	return rec, nil
}

// ListAlertsByOwner lists alerts belonging to a user, optionally filtered by
// active status.
func (s *Store) ListAlertsByOwner(ctx context.Context, userID string, isActive *bool) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsByOwnerSQL, userID, isActive)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts by owner: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// ListActiveAlertsByBase lists every active alert watching the given base
// currency. This is the read snapshot one evaluation pass runs against.
func (s *Store) ListActiveAlertsByBase(ctx context.Context, baseCurrency string) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveAlertsByBaseSQL, strings.ToUpper(baseCurrency))
	if queryErr != nil {
		return nil, fmt.Errorf("list active alerts by base: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// CountActiveAlerts counts active alerts for a base currency.
func (s *Store) CountActiveAlerts(ctx context.Context, baseCurrency string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var count int64
	if scanErr := pool.QueryRow(ctx, countActiveAlertsSQL, strings.ToUpper(baseCurrency)).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count active alerts: %w", scanErr)
	}
	return count, nil
}

// UpdateAlertFields applies a partial update and returns the stored record.
// updated_at is maintained here, not by callers.
func (s *Store) UpdateAlertFields(ctx context.Context, id string, patch AlertPatch) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	assignments := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	args = append(args, id)

	addAssignment := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.TargetRate != nil {
		addAssignment("target_rate", patch.TargetRate.String())
	}
	if patch.Condition != nil {
		addAssignment("condition", string(*patch.Condition))
	}
	if patch.RateType != nil {
		addAssignment("rate_type", string(*patch.RateType))
	}
	if patch.IsActive != nil {
		addAssignment("is_active", *patch.IsActive)
	}

	if len(assignments) == 0 {
		return s.GetAlert(ctx, id)
	}
	assignments = append(assignments, "updated_at = NOW()")

	query := fmt.Sprintf(
		"UPDATE alerts SET %s WHERE id = $1 RETURNING %s;",
		strings.Join(assignments, ", "),
		alertColumns,
	)

	rec, err := scanAlert(pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrNotFound
		}
		return Alert{}, fmt.Errorf("update alert: %w", err)
	}
	return rec, nil
}

// DeleteAlert removes an alert record.
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cmdTag, execErr := pool.Exec(ctx, deleteAlertSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertUser persists a new user record.
func (s *Store) InsertUser(ctx context.Context, user User) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	row := pool.QueryRow(ctx, insertUserSQL,
		user.ID,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.TelegramChatID,
	)

	rec, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return rec, nil
}

// GetUser fetches one user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	rec, err := scanUser(pool.QueryRow(ctx, getUserSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

// GetUserByEmail fetches one user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	rec, err := scanUser(pool.QueryRow(ctx, getUserByEmailSQL, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return rec, nil
}

func collectAlerts(rows pgx.Rows) ([]Alert, error) {
	alerts := make([]Alert, 0)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		rec           Alert
		targetRateStr string
		condition     string
		rateType      string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TelegramChatID,
		&rec.BaseCurrency,
		&rec.TargetCurrency,
		&targetRateStr,
		&condition,
		&rateType,
		&rec.IsActive,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return Alert{}, err
	}

	targetRate, err := decimal.NewFromString(targetRateStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse target rate: %w", err)
	}
	rec.TargetRate = targetRate
	rec.Condition = rates.Condition(condition)
	rec.RateType = rates.RateType(rateType)

	return rec, nil
}

func scanUser(row pgx.Row) (User, error) {
	var rec User
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.TelegramChatID,
		&rec.CreatedAt,
	); err != nil {
		return User{}, err
	}
	return rec, nil
}

var (
	_ AlertStore = (*Store)(nil)
	_ UserStore  = (*Store)(nil)
)
