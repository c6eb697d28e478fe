package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpulse/jobpulse-api/services/auth-service/usecase"
	"github.com/jobpulse/jobpulse-api/shared/auth"
	"github.com/jobpulse/jobpulse-api/shared/validation"
)

// --- stubs ---

type stubAccounts struct {
	registerToken string
	registerErr   error
	confirmErr    error
	authToken     string
	authErr       error
	changeErr     error
	confirmChange error
}

func (s *stubAccounts) Register(context.Context, string, string, int64) (string, error) {
	return s.registerToken, s.registerErr
}

func (s *stubAccounts) ConfirmRegistration(context.Context, string) error { return s.confirmErr }

func (s *stubAccounts) Authenticate(context.Context, string, string) (string, error) {
	return s.authToken, s.authErr
}

func (s *stubAccounts) RequestLoginChange(context.Context, string, string) error { return s.changeErr }

func (s *stubAccounts) ConfirmLoginChange(context.Context, string) error { return s.confirmChange }

type stubPasswordReset struct {
	requested  []string
	requestErr error
	confirmErr error
}

func (s *stubPasswordReset) RequestPasswordReset(_ context.Context, login string) error {
	s.requested = append(s.requested, login)
	return s.requestErr
}

func (s *stubPasswordReset) ConfirmPasswordReset(context.Context, string, string, string) error {
	return s.confirmErr
}

func newTestHandler(t *testing.T, accounts *stubAccounts, reset *stubPasswordReset) *AuthHTTPHandler {
	t.Helper()

	validator, err := validation.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	codec := auth.NewTokenCodec([]byte("test-secret"), "jobpulse")

	return NewAuthHTTPHandler(accounts, reset, codec, validator, &logger)
}

func doRequest(h *AuthHTTPHandler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for key, values := range header {
		req.Header[key] = values
	}

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	return rec
}

// --- tests ---

func TestLogin_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid credentials", usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{"disabled account", usecase.ErrAccountDisabled, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t, &stubAccounts{authErr: tc.err}, &stubPasswordReset{})
			rec := doRequest(h, http.MethodPost, "/login", `{"login":"a@x.com","password":"pw"}`, nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRegister_ValidationFailure(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{}, &stubPasswordReset{})

	rec := doRequest(h, http.MethodPost, "/register", `{"login":"not-an-email","password":"pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "Login")
	assert.Contains(t, body.Fields, "Password")
}

func TestRegister_DuplicateLogin(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{registerErr: usecase.ErrLoginAlreadyExists}, &stubPasswordReset{})

	rec := doRequest(h, http.MethodPost, "/register", `{"login":"a@x.com","password":"password1"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirm_MissingToken(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{}, &stubPasswordReset{})

	rec := doRequest(h, http.MethodGet, "/confirm", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_ExpiredToken(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{confirmErr: auth.ErrTokenExpired}, &stubPasswordReset{})

	rec := doRequest(h, http.MethodGet, "/confirm?token=whatever", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPassword_IdenticalResponseForUnknownLogin(t *testing.T) {
	t.Parallel()

	reset := &stubPasswordReset{}
	h := newTestHandler(t, &stubAccounts{}, reset)

	known := doRequest(h, http.MethodPost, "/forgot-password", `{"login":"a@x.com"}`, nil)
	unknown := doRequest(h, http.MethodPost, "/forgot-password", `{"login":"unknown@x.com"}`, nil)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, []string{"a@x.com", "unknown@x.com"}, reset.requested)
}

func TestChangeLogin_RequiresBearerToken(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{}, &stubPasswordReset{})

	rec := doRequest(h, http.MethodPut, "/profile/change-login", `{"new_login":"b@x.com"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangeLogin_UsesSessionSubject(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubAccounts{}, &stubPasswordReset{})

	session, err := auth.NewTokenCodec([]byte("test-secret"), "jobpulse").Issue("a@x.com", 2, time.Hour)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+session)

	rec := doRequest(h, http.MethodPut, "/profile/change-login", `{"new_login":"b@x.com"}`, header)
	assert.Equal(t, http.StatusOK, rec.Code)
}
