package service

import "errors"

var (
	// ErrInvalidInput wraps every request validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrResetTokenInvalid covers unknown, used and expired reset tokens.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)
