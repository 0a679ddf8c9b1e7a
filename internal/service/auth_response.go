package service

import (
	"context"
	"fmt"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/dto"
	"github.com/censoparroquial/auth-service/internal/utils"
)

// issueSession mints a fresh access+refresh pair and stores the refresh
// token hash, overwriting whatever was there. The overwrite is the implicit
// revocation of any previous session.
func (s *authService) issueSession(ctx context.Context, account *domain.Account) (*dto.AuthResponse, error) {
	accessToken, err := s.tokens.IssueAccessToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	tokenHash := utils.HashToken(refreshToken)
	if err := s.accounts.SetRefreshToken(ctx, account.ID, &tokenHash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return s.authResponse(account, accessToken, refreshToken), nil
}

func (s *authService) authResponse(account *domain.Account, accessToken, refreshToken string) *dto.AuthResponse {
	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokens.AccessTokenExpiry(),
		Account: dto.AccountInfo{
			ID:            account.ID,
			Email:         account.Email,
			FirstName:     account.FirstName,
			LastName:      account.LastName,
			Role:          string(account.Role),
			EmailVerified: account.EmailVerified,
		},
	}
}
