// Package postgres implements the credential store on PostgreSQL via the
// pgx driver. Schema management runs through goose with embedded
// migrations; recovery-code replacement is a single transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dawmanager/authgate"
	"github.com/dawmanager/authgate/internal/dbx"
	"github.com/dawmanager/authgate/store/postgres/migrations"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed [authgate.CredentialStore].
type Store struct {
	db *sql.DB
}

var _ authgate.CredentialStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RunMigrations applies the embedded goose migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for maintenance jobs.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) CreateUser(ctx context.Context, input authgate.CreateUserInput) (authgate.UserRecord, error) {
	record := authgate.UserRecord{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Status:       authgate.AccountActive,
		Role:         input.Role,
		Profile:      input.Profile,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, status, role, first_name, last_name, company, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Email, record.PasswordHash,
		record.Status.String(), string(record.Role),
		record.Profile.FirstName, record.Profile.LastName,
		record.Profile.Company, record.Profile.Phone,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authgate.UserRecord{}, authgate.ErrAccountExists
		}
		return authgate.UserRecord{}, storeErr(err)
	}

	return record, nil
}

const userColumns = `id, email, password_hash, status, role, two_factor_status, two_factor_secret,
	first_name, last_name, company, phone, created_at`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authgate.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (authgate.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) scanUser(row *sql.Row) (authgate.UserRecord, error) {
	var (
		record          authgate.UserRecord
		status          string
		role            string
		twoFactorStatus string
	)
	err := row.Scan(
		&record.ID, &record.Email, &record.PasswordHash,
		&status, &role, &twoFactorStatus, &record.TwoFactorSecret,
		&record.Profile.FirstName, &record.Profile.LastName,
		&record.Profile.Company, &record.Profile.Phone,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authgate.UserRecord{}, authgate.ErrUserNotFound
		}
		return authgate.UserRecord{}, storeErr(err)
	}
	record.Status = authgate.ParseAccountStatus(status)
	record.Role = authgate.Role(role)
	record.TwoFactorStatus = authgate.ParseTwoFactorStatus(twoFactorStatus)
	return record, nil
}

func (s *Store) SetTwoFactorSecret(ctx context.Context, userID, secret string) error {
	query := `
		UPDATE users
		SET two_factor_secret = $2, two_factor_status = 'PENDING'
		WHERE id = $1`
	return s.updateUser(ctx, query, userID, secret)
}

func (s *Store) ActivateTwoFactor(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET two_factor_status = 'ACTIVE'
		WHERE id = $1`
	return s.updateUser(ctx, query, userID)
}

func (s *Store) updateUser(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}

func (s *Store) ReplaceRecoveryCodes(ctx context.Context, userID string, codes []string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
			return storeErr(err)
		}
		now := time.Now().UTC()
		for _, code := range codes {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO recovery_codes (id, user_id, code, created_at) VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), userID, code, now,
			)
			if err != nil {
				return storeErr(err)
			}
		}
		return nil
	})
}

func (s *Store) RecoveryCodes(ctx context.Context, userID string) ([]authgate.RecoveryCodeRecord, error) {
	query := `
		SELECT id, user_id, code, created_at
		FROM recovery_codes
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var records []authgate.RecoveryCodeRecord
	for rows.Next() {
		var r authgate.RecoveryCodeRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Code, &r.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return records, nil
}

func (s *Store) RecordLoginAttempt(ctx context.Context, ip, userAgent, email string, success bool, at, expiresAt time.Time) error {
	query := `
		INSERT INTO login_attempts (ip, user_agent, email, success, attempted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, query, ip, userAgent, email, success, at, expiresAt); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) CountFailedAttempts(ctx context.Context, ip string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE ip = $1 AND success = FALSE AND attempted_at >= $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, ip, since).Scan(&count); err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

func (s *Store) OldestFailedAttempt(ctx context.Context, ip string, since time.Time) (time.Time, bool, error) {
	query := `
		SELECT attempted_at
		FROM login_attempts
		WHERE ip = $1 AND success = FALSE AND attempted_at >= $2
		ORDER BY attempted_at
		LIMIT 1`

	var at time.Time
	err := s.db.QueryRowContext(ctx, query, ip, since).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, storeErr(err)
	}
	return at, true, nil
}

func (s *Store) LastAttemptTime(ctx context.Context, ip string) (time.Time, bool, error) {
	query := `
		SELECT attempted_at
		FROM login_attempts
		WHERE ip = $1
		ORDER BY attempted_at DESC
		LIMIT 1`

	var at time.Time
	err := s.db.QueryRowContext(ctx, query, ip).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, storeErr(err)
	}
	return at, true, nil
}

func (s *Store) PurgeAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, storeErr(err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr(err)
	}
	return purged, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
}
