package users

import "errors"

var (
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("users: email already registered")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("users: invalid credentials")

	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("users: not found")
)
