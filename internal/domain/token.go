package domain

// TokenKind distinguishes the two signing contexts. A token minted for one
// kind never verifies as the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims represents the decoded payload of a verified JWT.
type TokenClaims struct {
	AccountID string    `json:"account_id"`
	Kind      TokenKind `json:"type"`
	Exp       int64     `json:"exp"`
	Iat       int64     `json:"iat"`
}
