package service

import (
	"context"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/dto"
)

// AuthService defines the authentication and session lifecycle operations.
// Every failure is one of the typed *domain.Error values; anything else is
// an unexpected store failure the transport layer turns into a generic 500.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID string, req *dto.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error

	// Authenticate resolves an access token into the principal attached to
	// authenticated requests.
	Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error)

	GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error)
	Deactivate(ctx context.Context, accountID string) error
}
