package domain

// Error is a terminal, typed auth failure. The set below is closed: every
// failure the service or middleware can produce is one of these values,
// and the handler layer maps each code to a stable HTTP status.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrValidation covers malformed input rejected before any state is touched.
	ErrValidation = &Error{Code: "validation_error", Message: "invalid request"}

	// ErrAuthenticationFailed is deliberately generic: it never distinguishes
	// an unknown email from a wrong password.
	ErrAuthenticationFailed = &Error{Code: "authentication_failed", Message: "invalid email or password"}

	// ErrEmailNotVerified does reveal the account exists. Intentional UX
	// trade-off so clients can offer a resend.
	ErrEmailNotVerified = &Error{Code: "email_not_verified", Message: "email address is not verified"}

	// ErrAccountDeactivated is only surfaced on paths where disclosure is
	// acceptable (change-password on an already-authenticated account).
	ErrAccountDeactivated = &Error{Code: "account_deactivated", Message: "account is deactivated"}

	// ErrConflict covers duplicate email on registration and
	// already-verified on resend.
	ErrConflict = &Error{Code: "conflict", Message: "resource already exists"}

	// ErrInvalidToken covers any access-token failure: bad signature,
	// expired, malformed, wrong kind, or a holder whose account is gone.
	ErrInvalidToken = &Error{Code: "invalid_token", Message: "invalid or expired token"}

	// ErrInvalidRefreshToken covers every refresh failure: cryptographic,
	// unknown account, deactivated account, or a superseded token.
	ErrInvalidRefreshToken = &Error{Code: "invalid_refresh_token", Message: "invalid refresh token"}

	// ErrInvalidOrExpiredToken is the reset-token failure: no account holds
	// a matching, unexpired reset token.
	ErrInvalidOrExpiredToken = &Error{Code: "invalid_or_expired_token", Message: "invalid or expired reset token"}

	// ErrForbidden means authenticated but not authorized.
	ErrForbidden = &Error{Code: "forbidden", Message: "insufficient permissions"}

	// ErrNotFound is used only where existence disclosure is acceptable
	// (resend-verification).
	ErrNotFound = &Error{Code: "not_found", Message: "account not found"}
)

// ValidationError returns ErrValidation carrying a human-readable detail.
func ValidationError(msg string) *Error {
	return &Error{Code: ErrValidation.Code, Message: msg}
}

// ConflictError returns ErrConflict carrying a human-readable detail.
func ConflictError(msg string) *Error {
	return &Error{Code: ErrConflict.Code, Message: msg}
}

// Is makes errors.Is match two *Error values by code, so the detail-carrying
// variants above compare equal to their sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
