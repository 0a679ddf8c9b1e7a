package domain

import "time"

// Role is the fixed set of roles an account can hold.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// IsValid reports whether the role is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of an account. A deactivated account is
// soft-deleted: the row stays, but every authentication path must treat it
// as non-existent.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

// StatusFilter makes the soft-delete scope explicit on every repository
// query instead of relying on an implicit default scope.
type StatusFilter int

const (
	FilterAny StatusFilter = iota
	FilterActive
	FilterDeactivated
)

// Account represents a census account in the system
type Account struct {
	ID                     string     `json:"id" db:"id"`
	Email                  string     `json:"email" db:"email"`
	PasswordHash           string     `json:"-" db:"password_hash"`
	FirstName              string     `json:"first_name" db:"first_name"`
	LastName               string     `json:"last_name" db:"last_name"`
	Role                   Role       `json:"role" db:"role"`
	Status                 Status     `json:"-" db:"status"`
	EmailVerified          bool       `json:"email_verified" db:"email_verified"`
	EmailVerificationToken *string    `json:"-" db:"email_verification_token"`
	PasswordResetToken     *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpiresAt *time.Time `json:"-" db:"password_reset_expires_at"`
	RefreshTokenHash       *string    `json:"-" db:"refresh_token_hash"`
	LastLoginAt            *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// Principal is the resolved identity attached to authenticated requests.
type Principal struct {
	AccountID string
	Role      Role
}

// IsSelfOr reports whether the principal owns targetID or holds one of the
// given roles.
func (p Principal) IsSelfOr(targetID string, roles ...Role) bool {
	if p.AccountID == targetID {
		return true
	}
	return p.HasRole(roles...)
}

// HasRole reports whether the principal holds one of the given roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
