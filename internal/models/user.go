package models

import "time"

type User struct {
	ID                int64      `json:"id" db:"id"`
	Username          string     `json:"username" db:"username"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	ResetTokenHash    *string    `json:"-" db:"reset_token"`
	ResetTokenExpires *time.Time `json:"-" db:"reset_token_expires"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// PublicUser is the part of a user returned to clients.
type PublicUser struct {
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest accepts "password" as an alias of "newPassword".
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
	Password    string `json:"password,omitempty"`
}

// Secret returns the requested new password whichever field carried it.
func (r ResetPasswordRequest) Secret() string {
	if r.NewPassword != "" {
		return r.NewPassword
	}
	return r.Password
}

type MessageResponse struct {
	Message string `json:"message"`
}
