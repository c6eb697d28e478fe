package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jobpulse/jobpulse-api/services/auth-service/model"
	"github.com/jobpulse/jobpulse-api/services/auth-service/payload"
	"github.com/jobpulse/jobpulse-api/services/auth-service/usecase"
	"github.com/jobpulse/jobpulse-api/shared/auth"
	"github.com/jobpulse/jobpulse-api/shared/middleware"
	"github.com/jobpulse/jobpulse-api/shared/validation"
)

// AuthHTTPHandler exposes the account lifecycle over HTTP. Confirmation
// endpoints are GETs taking the token as a query parameter, matching the
// links the notification service embeds in emails.
type AuthHTTPHandler struct {
	accountUsecase       usecase.AccountUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	codec                *auth.TokenCodec
	validator            *validation.Validator
	logger               *zerolog.Logger
}

// NewAuthHTTPHandler creates an AuthHTTPHandler.
func NewAuthHTTPHandler(
	accountUsecase usecase.AccountUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	codec *auth.TokenCodec,
	validator *validation.Validator,
	logger *zerolog.Logger,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		accountUsecase:       accountUsecase,
		passwordResetUsecase: passwordResetUsecase,
		codec:                codec,
		validator:            validator,
		logger:               logger,
	}
}

// Router mounts the auth routes.
func (h *AuthHTTPHandler) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.register)
	r.Get("/confirm", h.confirmRegistration)
	r.Post("/login", h.login)
	r.Get("/confirm-email-change", h.confirmLoginChange)
	r.Post("/forgot-password", h.requestPasswordReset)
	r.Post("/confirm-reset-password", h.confirmPasswordReset)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.codec))
		r.Put("/profile/change-login", h.requestLoginChange)
	})

	return r
}

func (h *AuthHTTPHandler) register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	roleID := req.RoleID
	if roleID == 0 {
		roleID = model.RoleUser
	}

	token, err := h.accountUsecase.Register(r.Context(), req.Login, req.Password, roleID)
	if err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	// The account is not authenticated-capable until the emailed link is
	// opened; the token is returned for the caller's convenience only.
	h.respondJSON(w, http.StatusCreated, payload.RegisterResponse{Token: token})
}

func (h *AuthHTTPHandler) confirmRegistration(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.accountUsecase.ConfirmRegistration(r.Context(), token); err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "account confirmed"})
}

func (h *AuthHTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.accountUsecase.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, payload.LoginResponse{Token: token})
}

func (h *AuthHTTPHandler) requestLoginChange(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "missing session claims")
		return
	}

	var req payload.ChangeLoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountUsecase.RequestLoginChange(r.Context(), claims.Subject, req.NewLogin); err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "confirmation email sent"})
}

func (h *AuthHTTPHandler) confirmLoginChange(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.accountUsecase.ConfirmLoginChange(r.Context(), token); err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "login changed"})
}

func (h *AuthHTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if fields := h.validator.ValidateStruct(req); fields != nil {
		h.respondJSON(w, http.StatusBadRequest, payload.ErrorResponse{
			Error:  "validation failed",
			Fields: fields,
		})
		return false
	}

	return true
}

func (h *AuthHTTPHandler) respondUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrLoginAlreadyExists):
		h.respondError(w, http.StatusConflict, "login already exists")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		h.respondError(w, http.StatusUnauthorized, "invalid login or password")
	case errors.Is(err, usecase.ErrAccountDisabled):
		h.respondError(w, http.StatusForbidden, "account is not confirmed, check your email")
	case errors.Is(err, usecase.ErrAccountNotFound):
		h.respondError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, usecase.ErrStaleConfirmation):
		h.respondError(w, http.StatusConflict, "confirmation link is no longer valid")
	case errors.Is(err, usecase.ErrPasswordMismatch):
		h.respondError(w, http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, auth.ErrTokenExpired):
		h.respondError(w, http.StatusUnauthorized, "token has expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		h.respondError(w, http.StatusUnauthorized, "token is invalid")
	default:
		h.logger.Error().Err(err).Msg("unexpected usecase error")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func (h *AuthHTTPHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response body")
	}
}

func (h *AuthHTTPHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, payload.ErrorResponse{Error: message})
}
