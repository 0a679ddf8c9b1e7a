package utils

import (
	"fmt"
	"time"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and verifies the two JWT kinds. Each kind has its own
// secret and expiry, so an access token can never stand in for a refresh
// token or vice versa.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenManager creates a new token manager.
func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// IssueAccessToken mints a short-lived access token for an account.
func (m *TokenManager) IssueAccessToken(accountID string) (string, error) {
	return m.issue(accountID, domain.TokenKindAccess)
}

// IssueRefreshToken mints a long-lived refresh token for an account.
func (m *TokenManager) IssueRefreshToken(accountID string) (string, error) {
	return m.issue(accountID, domain.TokenKindRefresh)
}

func (m *TokenManager) issue(accountID string, kind domain.TokenKind) (string, error) {
	secret, expiry := m.context(kind)
	now := time.Now()

	claims := jwt.MapClaims{
		"account_id": accountID,
		"type":       string(kind),
		"exp":        now.Add(expiry).Unix(),
		"iat":        now.Unix(),
		"jti":        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify validates a token against the expected kind's secret and returns
// its claims. It fails when the signature is invalid, the token is expired
// or malformed, or the type claim does not match the expected kind.
func (m *TokenManager) Verify(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	secret, _ := m.context(kind)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims["type"] != string(kind) {
		return nil, fmt.Errorf("unexpected token type")
	}

	accountID, ok := claims["account_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid account_id in token")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	if time.Now().Unix() > int64(exp) {
		return nil, fmt.Errorf("token is expired")
	}

	return &domain.TokenClaims{
		AccountID: accountID,
		Kind:      kind,
		Exp:       int64(exp),
		Iat:       int64(iat),
	}, nil
}

// AccessTokenExpiry returns the access token expiry in seconds, as reported
// in auth responses.
func (m *TokenManager) AccessTokenExpiry() int {
	return int(m.accessExpiry.Seconds())
}

func (m *TokenManager) context(kind domain.TokenKind) ([]byte, time.Duration) {
	if kind == domain.TokenKindRefresh {
		return m.refreshSecret, m.refreshExpiry
	}
	return m.accessSecret, m.accessExpiry
}
