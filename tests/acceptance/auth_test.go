package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/censoparroquial/auth-service/internal/dto"
)

func (s *Suite) postJSON(path string, payload interface{}) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	return resp
}

func (s *Suite) doAuthed(method, path, accessToken string, payload interface{}) *http.Response {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) decode(resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

// register creates an account and returns its auth response.
func (s *Suite) register(email string) dto.AuthResponse {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     email,
		Password:  "Password123",
		FirstName: "Ana",
		LastName:  "Morales",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var authResp dto.AuthResponse
	s.decode(resp, &authResp)
	return authResp
}

// registerVerified registers, consumes the mailed verification token, and
// logs in.
func (s *Suite) registerVerified(email string) dto.AuthResponse {
	s.register(email)

	resp := s.postJSON("/api/v1/auth/verify-email", dto.VerifyEmailRequest{
		Token: s.Mailer.verificationToken(email),
	})
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	return s.login(email, "Password123")
}

func (s *Suite) login(email, password string) dto.AuthResponse {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	s.decode(resp, &authResp)
	return authResp
}

func (s *Suite) TestRegister_Success() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     "test@example.com",
		Password:  "Password123",
		FirstName: "Ana",
		LastName:  "Morales",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var authResp dto.AuthResponse
	cookies := resp.Cookies()
	s.decode(resp, &authResp)

	s.NotEmpty(authResp.AccessToken)
	s.NotEmpty(authResp.RefreshToken)
	s.Equal("Bearer", authResp.TokenType)
	s.NotZero(authResp.ExpiresIn)
	s.Equal("test@example.com", authResp.Account.Email)
	s.Equal("user", authResp.Account.Role)
	s.False(authResp.Account.EmailVerified)
	s.NotEmpty(authResp.Account.ID)

	// Refresh tokens travel in the body, never in cookies.
	s.Empty(cookies)

	s.NotEmpty(s.Mailer.verificationToken("test@example.com"))
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com")

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:     "duplicate@example.com",
		Password:  "Password123",
		FirstName: "Ana",
		LastName:  "Morales",
	})
	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.decode(resp, &errResp)
	s.Equal("conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidInput() {
	cases := []dto.RegisterRequest{
		{Email: "invalid-email", Password: "Password123", FirstName: "Ana", LastName: "Morales"},
		{Email: "test@example.com", Password: "short", FirstName: "Ana", LastName: "Morales"},
		{Email: "test@example.com", Password: "alllowercase1", FirstName: "Ana", LastName: "Morales"},
		{Email: "test@example.com", Password: "Password123", FirstName: "", LastName: "Morales"},
		{Email: "test@example.com", Password: "Password123", FirstName: "Ana", LastName: "Morales", Role: "bishop"},
	}

	for _, req := range cases {
		resp := s.postJSON("/api/v1/auth/register", req)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode, "request %+v", req)
	}
}

func (s *Suite) TestLogin_RequiresVerifiedEmail() {
	s.register("unverified@example.com")

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "unverified@example.com",
		Password: "Password123",
	})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.decode(resp, &errResp)
	s.Equal("email_not_verified", errResp.Error)

	verifyResp := s.postJSON("/api/v1/auth/verify-email", dto.VerifyEmailRequest{
		Token: s.Mailer.verificationToken("unverified@example.com"),
	})
	verifyResp.Body.Close()
	s.Equal(http.StatusOK, verifyResp.StatusCode)

	s.login("unverified@example.com", "Password123")
}

func (s *Suite) TestLogin_InvalidCredentials() {
	s.registerVerified("login@example.com")

	for _, req := range []dto.LoginRequest{
		{Email: "nonexistent@example.com", Password: "Password123"},
		{Email: "login@example.com", Password: "WrongPassword123"},
	} {
		resp := s.postJSON("/api/v1/auth/login", req)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)

		var errResp dto.ErrorResponse
		s.decode(resp, &errResp)
		s.Equal("authentication_failed", errResp.Error)
	}
}

func (s *Suite) TestVerifyEmail_InvalidToken() {
	resp := s.postJSON("/api/v1/auth/verify-email", dto.VerifyEmailRequest{Token: "no-such-token"})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestResendVerification() {
	resp := s.postJSON("/api/v1/auth/resend-verification", dto.ResendVerificationRequest{
		Email: "nobody@example.com",
	})
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)

	s.register("resend@example.com")
	first := s.Mailer.verificationToken("resend@example.com")

	resp = s.postJSON("/api/v1/auth/resend-verification", dto.ResendVerificationRequest{
		Email: "resend@example.com",
	})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	second := s.Mailer.verificationToken("resend@example.com")
	s.NotEqual(first, second)

	// The superseded token is dead.
	resp = s.postJSON("/api/v1/auth/verify-email", dto.VerifyEmailRequest{Token: first})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/verify-email", dto.VerifyEmailRequest{Token: second})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// Resending for an already verified address is a conflict.
	resp = s.postJSON("/api/v1/auth/resend-verification", dto.ResendVerificationRequest{
		Email: "resend@example.com",
	})
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestRefresh_RotatesToken() {
	auth := s.registerVerified("refresh@example.com")

	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	s.Equal(http.StatusOK, resp.StatusCode)

	var rotated dto.AuthResponse
	s.decode(resp, &rotated)
	s.NotEmpty(rotated.AccessToken)
	s.NotEqual(auth.RefreshToken, rotated.RefreshToken)

	// Replaying the superseded token fails; the rotated one still works.
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestRefresh_MissingToken() {
	resp := s.postJSON("/api/v1/auth/refresh", map[string]string{})
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogout() {
	auth := s.registerVerified("logout@example.com")

	resp := s.doAuthed("POST", "/api/v1/auth/logout", auth.AccessToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var successResp dto.SuccessResponse
	s.decode(resp, &successResp)
	s.NotEmpty(successResp.Message)

	// Logout is idempotent.
	resp = s.doAuthed("POST", "/api/v1/auth/logout", auth.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// The refresh token issued before logout is revoked.
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_NoToken() {
	resp := s.doAuthed("POST", "/api/v1/auth/logout", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestChangePassword() {
	auth := s.registerVerified("changepass@example.com")

	resp := s.doAuthed("POST", "/api/v1/auth/change-password", auth.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: "WrongPassword123",
		NewPassword:     "NewPassword123",
	})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.doAuthed("POST", "/api/v1/auth/change-password", auth.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: "Password123",
		NewPassword:     "NewPassword123",
	})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// All sessions are revoked on password change.
	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	refreshResp.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)

	s.login("changepass@example.com", "NewPassword123")
}

func (s *Suite) TestForgotAndResetPassword() {
	auth := s.registerVerified("reset@example.com")

	// Unknown addresses get the same success response as known ones.
	resp := s.postJSON("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "nobody@example.com"})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "reset@example.com"})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	token := s.Mailer.resetToken("reset@example.com")
	s.Require().NotEmpty(token)

	resp = s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{
		Token:       token,
		NewPassword: "NewPassword123",
	})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// The token is single use.
	resp = s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{
		Token:       token,
		NewPassword: "AnotherPass123",
	})
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	// Existing sessions are revoked and only the new password works.
	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	refreshResp.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)

	loginResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "reset@example.com",
		Password: "Password123",
	})
	loginResp.Body.Close()
	s.Equal(http.StatusUnauthorized, loginResp.StatusCode)

	s.login("reset@example.com", "NewPassword123")
}

func (s *Suite) TestGetMe() {
	auth := s.registerVerified("getme@example.com")

	resp := s.doAuthed("GET", "/api/v1/auth/me", auth.AccessToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var account dto.AccountResponse
	s.decode(resp, &account)
	s.Equal(auth.Account.ID, account.ID)
	s.Equal("getme@example.com", account.Email)
	s.Equal("user", account.Role)
	s.True(account.EmailVerified)
	s.NotEmpty(account.CreatedAt)
	s.NotNil(account.LastLoginAt)
}

func (s *Suite) TestGetMe_Unauthenticated() {
	for _, token := range []string{"", "invalid-token"} {
		resp := s.doAuthed("GET", "/api/v1/auth/me", token, nil)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func (s *Suite) TestGetAccount_SelfAndRoles() {
	alice := s.registerVerified("alice@example.com")
	bob := s.registerVerified("bob@example.com")

	// Self access is allowed.
	resp := s.doAuthed("GET", "/api/v1/accounts/"+alice.Account.ID, alice.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// A plain user cannot read another account.
	resp = s.doAuthed("GET", "/api/v1/accounts/"+bob.Account.ID, alice.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	// Moderators can. Role checks read the database, so promotion takes
	// effect without reissuing the token.
	s.promoteToRole("alice@example.com", "moderator")
	resp = s.doAuthed("GET", "/api/v1/accounts/"+bob.Account.ID, alice.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestDeactivateAccount_AdminOnly() {
	admin := s.registerVerified("admin@example.com")
	victim := s.registerVerified("victim@example.com")

	resp := s.doAuthed("DELETE", "/api/v1/accounts/"+victim.Account.ID, victim.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	s.promoteToRole("admin@example.com", "admin")

	resp = s.doAuthed("DELETE", "/api/v1/accounts/"+victim.Account.ID, admin.AccessToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// Deactivated accounts cannot log in or use outstanding tokens.
	loginResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "victim@example.com",
		Password: "Password123",
	})
	loginResp.Body.Close()
	s.Equal(http.StatusUnauthorized, loginResp.StatusCode)

	meResp := s.doAuthed("GET", "/api/v1/auth/me", victim.AccessToken, nil)
	meResp.Body.Close()
	s.Equal(http.StatusUnauthorized, meResp.StatusCode)

	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: victim.RefreshToken})
	refreshResp.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)
}

func (s *Suite) TestCompleteFlow() {
	auth := s.registerVerified("complete@example.com")

	meResp := s.doAuthed("GET", "/api/v1/auth/me", auth.AccessToken, nil)
	meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)

	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	s.Equal(http.StatusOK, refreshResp.StatusCode)

	var rotated dto.AuthResponse
	s.decode(refreshResp, &rotated)

	logoutResp := s.doAuthed("POST", "/api/v1/auth/logout", rotated.AccessToken, nil)
	logoutResp.Body.Close()
	s.Equal(http.StatusOK, logoutResp.StatusCode)

	// Access tokens stay valid until expiry; only the refresh token dies.
	meResp2 := s.doAuthed("GET", "/api/v1/auth/me", rotated.AccessToken, nil)
	meResp2.Body.Close()
	s.Equal(http.StatusOK, meResp2.StatusCode)

	refreshResp2 := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	refreshResp2.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp2.StatusCode)
}
