package service

import (
	"context"
	"sync"
	"time"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/repository"
	"github.com/google/uuid"
)

// memoryAccountRepo is an in-memory AccountRepository with the same atomic
// update semantics as the postgres implementation, mutex instead of SQL.
type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memoryAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memoryAccountRepo) GetByEmail(ctx context.Context, email string, filter domain.StatusFilter) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == email && matchesFilter(a, filter) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) GetByID(ctx context.Context, id string, filter domain.StatusFilter) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || !matchesFilter(a, filter) {
		return nil, repository.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *memoryAccountRepo) GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.EmailVerificationToken != nil && *a.EmailVerificationToken == token {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) GetByResetToken(ctx context.Context, token string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.PasswordResetToken != nil && *a.PasswordResetToken == token {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) UpdateLastLogin(ctx context.Context, accountID string) error {
	return r.update(accountID, func(a *domain.Account) {
		now := time.Now()
		a.LastLoginAt = &now
	})
}

func (r *memoryAccountRepo) SetRefreshToken(ctx context.Context, accountID string, tokenHash *string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.RefreshTokenHash = tokenHash
	})
}

func (r *memoryAccountRepo) RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != domain.StatusActive || a.RefreshTokenHash == nil || *a.RefreshTokenHash != currentHash {
		return repository.ErrStaleRefreshToken
	}

	a.RefreshTokenHash = &newHash
	return nil
}

func (r *memoryAccountRepo) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.PasswordHash = passwordHash
		a.RefreshTokenHash = nil
		a.PasswordResetToken = nil
		a.PasswordResetExpiresAt = nil
	})
}

func (r *memoryAccountRepo) SetResetToken(ctx context.Context, accountID, token string, expiresAt time.Time) error {
	return r.update(accountID, func(a *domain.Account) {
		a.PasswordResetToken = &token
		a.PasswordResetExpiresAt = &expiresAt
	})
}

func (r *memoryAccountRepo) SetVerificationToken(ctx context.Context, accountID, token string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.EmailVerificationToken = &token
	})
}

func (r *memoryAccountRepo) MarkEmailVerified(ctx context.Context, accountID string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.EmailVerified = true
		a.EmailVerificationToken = nil
	})
}

func (r *memoryAccountRepo) Deactivate(ctx context.Context, accountID string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.Status = domain.StatusDeactivated
		a.EmailVerificationToken = nil
		a.PasswordResetToken = nil
		a.PasswordResetExpiresAt = nil
		a.RefreshTokenHash = nil
	})
}

func (r *memoryAccountRepo) update(accountID string, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now()
	return nil
}

func matchesFilter(a *domain.Account, filter domain.StatusFilter) bool {
	switch filter {
	case domain.FilterActive:
		return a.Status == domain.StatusActive
	case domain.FilterDeactivated:
		return a.Status == domain.StatusDeactivated
	default:
		return true
	}
}

// recordingMailer captures the last token sent per address instead of
// delivering anything.
type recordingMailer struct {
	mu                 sync.Mutex
	verificationTokens map[string]string
	resetTokens        map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		verificationTokens: make(map[string]string),
		resetTokens:        make(map[string]string),
	}
}

func (m *recordingMailer) SendVerification(ctx context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTokens[to] = token
	return nil
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens[to] = token
	return nil
}

func (m *recordingMailer) lastVerificationToken(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationTokens[to]
}

func (m *recordingMailer) lastResetToken(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetTokens[to]
}
