package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"expressconnect/internal/models"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token expired")
)

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository reads and writes the accounts table. Every email passed
// in is expected to be normalized by the caller.
type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, email, first_name, last_name, role, password_hash, password_set,
	reset_token, reset_token_expiry, host_id, attendee_company_id, created_at, updated_at
`

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account models.Account
		role    string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&role,
		&account.PasswordHash,
		&account.PasswordSet,
		&account.ResetToken,
		&account.ResetTokenExpiry,
		&account.HostID,
		&account.AttendeeCompanyID,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	account.Role = models.Role(role)
	return account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	return scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, email string, passwordHash string) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2,
		    password_set = TRUE,
		    updated_at = NOW()
		WHERE email = $1
	`
	return r.execOne(ctx, query, email, passwordHash)
}

// InvalidatePassword disables the password channel after a one-time code has
// been sent.
func (r *AccountRepository) InvalidatePassword(ctx context.Context, email string) error {
	const query = `
		UPDATE accounts
		SET password_hash = NULL,
		    password_set = FALSE,
		    updated_at = NOW()
		WHERE email = $1
	`
	return r.execOne(ctx, query, email)
}

// UpdateResetToken overwrites token and expiry in one statement, so the last
// writer's pair is the only live token.
func (r *AccountRepository) UpdateResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET reset_token = $2,
		    reset_token_expiry = $3,
		    updated_at = NOW()
		WHERE email = $1
	`
	return r.execOne(ctx, query, email, token, expiresAt)
}

// ConsumeResetToken sets the new password and clears the token pair in a
// single conditional update. It returns the account id on success.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (string, error) {
	const query = `
		UPDATE accounts
		SET password_hash = $2,
		    password_set = TRUE,
		    reset_token = NULL,
		    reset_token_expiry = NULL,
		    updated_at = NOW()
		WHERE reset_token = $1 AND reset_token_expiry > $3
		RETURNING id
	`

	var id string
	err := r.db.QueryRow(ctx, query, token, passwordHash, now).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	return "", r.classifyResetToken(ctx, token)
}

func (r *AccountRepository) classifyResetToken(ctx context.Context, token string) error {
	const query = `SELECT reset_token_expiry FROM accounts WHERE reset_token = $1`

	var expiry *time.Time
	if err := r.db.QueryRow(ctx, query, token).Scan(&expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenNotFound
		}
		return err
	}
	if expiry == nil {
		return ErrResetTokenNotFound
	}
	return ErrResetTokenExpired
}

// ClearExpiredResetTokens drops every token whose expiry has passed.
func (r *AccountRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE accounts
		SET reset_token = NULL,
		    reset_token_expiry = NULL,
		    updated_at = NOW()
		WHERE reset_token IS NOT NULL AND reset_token_expiry <= $1
	`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
