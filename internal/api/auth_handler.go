package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rswarnkar/converse/internal/services"
)

type AuthHandler struct {
	auth     *services.AuthService
	validate *validator.Validate
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validator.New()}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send-otp", h.sendOtp)
	r.Post("/verify-otp", h.verifyOtp)
	return r
}

type sendOtpRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

func (h *AuthHandler) sendOtp(w http.ResponseWriter, r *http.Request) {
	var req sendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.auth.SendOtp(r.Context(), req.Phone); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send otp")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent successfully"})
}

type verifyOtpRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Otp   string `json:"otp" validate:"required,len=6,numeric"`
}

func (h *AuthHandler) verifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.auth.VerifyOtp(r.Context(), req.Phone, req.Otp)
	if errors.Is(err, services.ErrOtpExpired) || errors.Is(err, services.ErrInvalidOtp) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify otp")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":        resp.User,
		"accessToken": resp.AccessToken,
		"expiresAt":   resp.ExpiresAt,
	})
}
