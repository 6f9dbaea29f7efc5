package service

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidCode          = errors.New("invalid or expired code")
	ErrNoPasswordConfigured = errors.New("no password configured")
	ErrTokenExpired         = errors.New("reset token expired")
	ErrTokenNotFound        = errors.New("reset token not found")
	ErrNotificationFailed   = errors.New("notification failed")

	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordAlreadySet = errors.New("password already set")
)
