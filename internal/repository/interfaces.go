package repository

import (
	"context"
	"time"

	"github.com/censoparroquial/auth-service/internal/domain"
)

// AccountRepository defines methods for account operations. Every read takes
// an explicit status filter; there is no implicit soft-delete scope to
// bypass by accident. Every mutation is a single atomic read-modify-write
// statement against the store.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string, filter domain.StatusFilter) (*domain.Account, error)
	GetByID(ctx context.Context, id string, filter domain.StatusFilter) (*domain.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	GetByResetToken(ctx context.Context, token string) (*domain.Account, error)

	UpdateLastLogin(ctx context.Context, accountID string) error

	// SetRefreshToken unconditionally replaces the stored refresh token hash.
	// A nil hash clears it (logout).
	SetRefreshToken(ctx context.Context, accountID string, tokenHash *string) error

	// RotateRefreshToken swaps currentHash for newHash only if currentHash is
	// still the stored value. Returns ErrStaleRefreshToken when it is not.
	RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error

	// UpdatePassword stores a new password hash and, in the same statement,
	// clears the refresh token and any outstanding reset token.
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error

	SetResetToken(ctx context.Context, accountID, token string, expiresAt time.Time) error
	SetVerificationToken(ctx context.Context, accountID, token string) error

	// MarkEmailVerified flips email_verified and clears the verification
	// token in one statement, so a consumed token can never be replayed.
	MarkEmailVerified(ctx context.Context, accountID string) error

	// Deactivate soft-deletes the account and clears every outstanding token
	// (verification, reset, refresh) in one statement.
	Deactivate(ctx context.Context, accountID string) error
}
