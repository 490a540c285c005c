package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/service"
	"facilitymonitor/internal/utils"
)

// Authenticator is the part of service.AuthService the HTTP layer uses.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.LoginResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthController handles login and password-reset requests.
type AuthController struct {
	auth   Authenticator
	logger *slog.Logger
}

func NewAuthController(auth Authenticator, logger *slog.Logger) *AuthController {
	return &AuthController{auth: auth, logger: logger}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "Invalid request payload", err.Error(), http.StatusBadRequest))
		return false
	}
	return true
}

// HandleLogin exchanges credentials for a session token.
func (c *AuthController) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := c.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			c.logger.Error("login failed", "error", err)
		}
		respondWithServiceError(w, err, "Server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// HandleForgotPassword mails a reset link when the email belongs to an account.
func (c *AuthController) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := c.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		c.logger.Error("forgot password failed", "error", err)
		respondWithServiceError(w, err, "Failed to process password reset request")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.MessageResponse{Message: service.ForgotPasswordMessage})
}

// HandleResetPassword completes a reset with the token from the email.
func (c *AuthController) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := c.auth.ResetPassword(r.Context(), req.Token, req.Secret()); err != nil {
		if !errors.Is(err, service.ErrResetTokenInvalid) {
			c.logger.Error("reset password failed", "error", err)
		}
		respondWithServiceError(w, err, "Failed to reset password")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.MessageResponse{Message: "Password has been reset successfully"})
}
