package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/dto"
	"github.com/censoparroquial/auth-service/internal/mail"
	"github.com/censoparroquial/auth-service/internal/repository"
	"github.com/censoparroquial/auth-service/internal/utils"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	accounts      repository.AccountRepository
	tokens        *utils.TokenManager
	hasher        *utils.PasswordHasher
	mailer        mail.Mailer
	logger        *zap.Logger
	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	accounts repository.AccountRepository,
	tokens *utils.TokenManager,
	hasher *utils.PasswordHasher,
	mailer mail.Mailer,
	logger *zap.Logger,
	resetTokenTTL time.Duration,
) AuthService {
	return &authService{
		accounts:      accounts,
		tokens:        tokens,
		hasher:        hasher,
		mailer:        mailer,
		logger:        logger,
		resetTokenTTL: resetTokenTTL,
		now:           time.Now,
	}
}

// Register creates a new unverified account and issues a token pair. The
// pair is usable immediately even though Login gates on verification; that
// matches the original behavior and is preserved deliberately.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := utils.SanitizeEmail(req.Email)

	if !utils.ValidateEmail(email) {
		return nil, domain.ValidationError("invalid email format")
	}

	if !utils.ValidatePassword(req.Password) {
		return nil, domain.ValidationError("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, domain.ValidationError("unknown role")
	}

	// Existence pre-check; the unique constraint backstops the race where
	// two registrations pass this simultaneously.
	_, err := s.accounts.GetByEmail(ctx, email, domain.FilterAny)
	if err == nil {
		return nil, domain.ConflictError("account with this email already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check account existence: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	account := &domain.Account{
		Email:                  email,
		PasswordHash:           passwordHash,
		FirstName:              req.FirstName,
		LastName:               req.LastName,
		Role:                   role,
		Status:                 domain.StatusActive,
		EmailVerified:          false,
		EmailVerificationToken: &verificationToken,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ConflictError("account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, account.Email, verificationToken); err != nil {
		s.logger.Warn("failed to send verification mail",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	return s.issueSession(ctx, account)
}

// Login authenticates an account by email and password
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, utils.SanitizeEmail(req.Email), domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		return nil, domain.ErrAuthenticationFailed
	}

	// Only disclosed after the credentials checked out, so this error never
	// works as an account-existence oracle for guessed passwords.
	if !account.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("failed to update last login",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	return s.issueSession(ctx, account)
}

// Refresh verifies a refresh token, rotates it, and issues a fresh pair.
// The stored-value compare-and-swap is what actually revokes superseded and
// logged-out tokens; cryptographic validity alone is not enough.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	claims, err := s.tokens.Verify(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID, domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	newRefreshToken, err := s.tokens.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	err = s.accounts.RotateRefreshToken(ctx, account.ID, utils.HashToken(refreshToken), utils.HashToken(newRefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrStaleRefreshToken) || errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	accessToken, err := s.tokens.IssueAccessToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return s.authResponse(account, accessToken, newRefreshToken), nil
}

// Logout clears the stored refresh token. Idempotent: logging out twice, or
// with no live session, is not an error.
func (s *authService) Logout(ctx context.Context, accountID string) error {
	err := s.accounts.SetRefreshToken(ctx, accountID, nil)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// ChangePassword re-hashes the password and clears the refresh token,
// forcing re-authentication. Outstanding access tokens stay valid until
// their own expiry since they are stateless.
func (s *authService) ChangePassword(ctx context.Context, accountID string, req *dto.ChangePasswordRequest) error {
	account, err := s.accounts.GetByID(ctx, accountID, domain.FilterAny)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrAuthenticationFailed
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if account.Status == domain.StatusDeactivated {
		return domain.ErrAccountDeactivated
	}

	if !s.hasher.Verify(req.CurrentPassword, account.PasswordHash) {
		return domain.ErrAuthenticationFailed
	}

	if req.NewPassword == req.CurrentPassword {
		return domain.ValidationError("new password must differ from the current one")
	}

	if !utils.ValidatePassword(req.NewPassword) {
		return domain.ValidationError("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// ForgotPassword stores a reset token for the account, if one exists. The
// response shape is identical either way; nothing here may leak whether the
// email is registered.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, utils.SanitizeEmail(email), domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	token, err := utils.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.resetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, account.Email, token); err != nil {
		s.logger.Warn("failed to send password reset mail",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ResetPassword consumes a reset token. The token must match exactly and be
// unexpired; success clears it along with the refresh token, so every
// existing session is invalidated.
func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if !utils.ValidatePassword(req.NewPassword) {
		return domain.ValidationError("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	account, err := s.accounts.GetByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if account.Status == domain.StatusDeactivated {
		return domain.ErrInvalidOrExpiredToken
	}

	if account.PasswordResetExpiresAt == nil || !s.now().Before(*account.PasswordResetExpiresAt) {
		return domain.ErrInvalidOrExpiredToken
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// VerifyEmail consumes an email verification token. The token is cleared in
// the same update that sets the flag, so a replay degrades to not-found.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	account, err := s.accounts.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	// Unreachable once the token has been consumed; kept so a stored token
	// on an already-verified row degrades cleanly instead of re-verifying.
	if account.EmailVerified {
		return domain.ConflictError("email address is already verified")
	}

	if err := s.accounts.MarkEmailVerified(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	return nil
}

// ResendVerification regenerates the verification token; the previous one
// is invalidated by the overwrite.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, utils.SanitizeEmail(email), domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if account.EmailVerified {
		return domain.ConflictError("email address is already verified")
	}

	token, err := utils.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.accounts.SetVerificationToken(ctx, account.ID, token); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, account.Email, token); err != nil {
		s.logger.Warn("failed to send verification mail",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	return nil
}

// Authenticate resolves an access token into a principal. A missing or
// deactivated account yields the same invalid-token error as a bad
// signature, so a stale token holder learns nothing about account lifecycle.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	claims, err := s.tokens.Verify(accessToken, domain.TokenKindAccess)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID, domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &domain.Principal{
		AccountID: account.ID,
		Role:      account.Role,
	}, nil
}

// GetAccount returns the profile of an account
func (s *authService) GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID, domain.FilterActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	response := &dto.AccountResponse{
		ID:            account.ID,
		Email:         account.Email,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		Role:          string(account.Role),
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     account.UpdatedAt.Format(time.RFC3339),
	}

	if account.LastLoginAt != nil {
		lastLogin := account.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}

	return response, nil
}

// Deactivate soft-deletes an account. All outstanding tokens are cleared by
// the same statement, so no session or reset flow survives it. Reversal is
// an administrative restore outside this service.
func (s *authService) Deactivate(ctx context.Context, accountID string) error {
	if err := s.accounts.Deactivate(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	return nil
}
