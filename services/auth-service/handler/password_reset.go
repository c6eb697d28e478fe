package handler

import (
	"net/http"

	"github.com/jobpulse/jobpulse-api/services/auth-service/payload"
)

func (h *AuthHTTPHandler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Login); err != nil {
		h.logger.Error().Err(err).Msg("failed to request password reset")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	// The response is identical whether or not the login exists.
	h.respondJSON(w, http.StatusOK, payload.MessageResponse{
		Message: "if the account exists, a reset email has been sent",
	})
}

func (h *AuthHTTPHandler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	var req payload.ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.passwordResetUsecase.ConfirmPasswordReset(r.Context(), token, req.NewPassword, req.RepeatPassword)
	if err != nil {
		h.respondUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "password updated"})
}
