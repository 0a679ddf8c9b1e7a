package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/pkg/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const accountColumns = `id, email, password_hash, first_name, last_name, role, status,
		       email_verified, email_verification_token, password_reset_token,
		       password_reset_expires_at, refresh_token_hash, last_login_at,
		       created_at, updated_at`

// accountRepository implements AccountRepository on PostgreSQL.
type accountRepository struct {
	db *database.Postgres
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, status,
		                      email_verified, email_verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Role,
		account.Status,
		account.EmailVerified,
		account.EmailVerificationToken,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		// The unique constraint is the backstop for two registrations racing
		// past the pre-insert existence check.
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("account with email %s already exists: %w", account.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account by email
func (r *accountRepository) GetByEmail(ctx context.Context, email string, filter domain.StatusFilter) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1` + statusCondition(filter)

	account, err := r.scanOne(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id string, filter domain.StatusFilter) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1` + statusCondition(filter)

	account, err := r.scanOne(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// GetByVerificationToken retrieves the account holding a verification token.
// Verification tokens only exist on active accounts; deactivation clears them.
func (r *accountRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email_verification_token = $1`

	account, err := r.scanOne(r.db.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with verification token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by verification token: %w", err)
	}

	return account, nil
}

// GetByResetToken retrieves the account holding a password reset token.
// Expiry is checked by the caller against password_reset_expires_at.
func (r *accountRepository) GetByResetToken(ctx context.Context, token string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE password_reset_token = $1`

	account, err := r.scanOne(r.db.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with reset token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by reset token: %w", err)
	}

	return account, nil
}

// UpdateLastLogin updates the last login timestamp for an account
func (r *accountRepository) UpdateLastLogin(ctx context.Context, accountID string) error {
	query := `UPDATE accounts SET last_login_at = $1, updated_at = $1 WHERE id = $2`

	return r.execExpectingRow(ctx, query, time.Now(), accountID)
}

// SetRefreshToken unconditionally replaces the stored refresh token hash
func (r *accountRepository) SetRefreshToken(ctx context.Context, accountID string, tokenHash *string) error {
	query := `UPDATE accounts SET refresh_token_hash = $1, updated_at = $2 WHERE id = $3`

	return r.execExpectingRow(ctx, query, tokenHash, time.Now(), accountID)
}

// RotateRefreshToken swaps the stored hash only if it still matches. The
// single UPDATE is the atomic compare-and-swap that resolves concurrent
// refresh calls racing on the same token.
func (r *accountRepository) RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $1, updated_at = $2
		WHERE id = $3 AND refresh_token_hash = $4 AND status = 'active'
	`

	result, err := r.db.DB.ExecContext(ctx, query, newHash, time.Now(), accountID, currentHash)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("refresh token for account %s superseded or cleared: %w", accountID, ErrStaleRefreshToken)
	}

	return nil
}

// UpdatePassword stores a new hash and clears refresh and reset state
func (r *accountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1,
		    refresh_token_hash = NULL,
		    password_reset_token = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = $2
		WHERE id = $3
	`

	return r.execExpectingRow(ctx, query, passwordHash, time.Now(), accountID)
}

// SetResetToken stores a password reset token with its expiry
func (r *accountRepository) SetResetToken(ctx context.Context, accountID, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET password_reset_token = $1, password_reset_expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	return r.execExpectingRow(ctx, query, token, expiresAt, time.Now(), accountID)
}

// SetVerificationToken stores a fresh email verification token, overwriting
// (and so invalidating) any previous one
func (r *accountRepository) SetVerificationToken(ctx context.Context, accountID, token string) error {
	query := `UPDATE accounts SET email_verification_token = $1, updated_at = $2 WHERE id = $3`

	return r.execExpectingRow(ctx, query, token, time.Now(), accountID)
}

// MarkEmailVerified flips the verified flag and consumes the token
func (r *accountRepository) MarkEmailVerified(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET email_verified = TRUE, email_verification_token = NULL, updated_at = $1
		WHERE id = $2
	`

	return r.execExpectingRow(ctx, query, time.Now(), accountID)
}

// Deactivate soft-deletes an account and clears every outstanding token
func (r *accountRepository) Deactivate(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET status = 'deactivated',
		    email_verification_token = NULL,
		    password_reset_token = NULL,
		    password_reset_expires_at = NULL,
		    refresh_token_hash = NULL,
		    updated_at = $1
		WHERE id = $2
	`

	return r.execExpectingRow(ctx, query, time.Now(), accountID)
}

func (r *accountRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account not found: %w", ErrNotFound)
	}

	return nil
}

func (r *accountRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	var verificationToken, resetToken, refreshTokenHash sql.NullString
	var resetExpiresAt, lastLoginAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Role,
		&account.Status,
		&account.EmailVerified,
		&verificationToken,
		&resetToken,
		&resetExpiresAt,
		&refreshTokenHash,
		&lastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if verificationToken.Valid {
		account.EmailVerificationToken = &verificationToken.String
	}
	if resetToken.Valid {
		account.PasswordResetToken = &resetToken.String
	}
	if resetExpiresAt.Valid {
		account.PasswordResetExpiresAt = &resetExpiresAt.Time
	}
	if refreshTokenHash.Valid {
		account.RefreshTokenHash = &refreshTokenHash.String
	}
	if lastLoginAt.Valid {
		account.LastLoginAt = &lastLoginAt.Time
	}

	return account, nil
}

func statusCondition(filter domain.StatusFilter) string {
	switch filter {
	case domain.FilterActive:
		return ` AND status = 'active'`
	case domain.FilterDeactivated:
		return ` AND status = 'deactivated'`
	default:
		return ``
	}
}
