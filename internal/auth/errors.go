package auth

import "errors"

var (
	// ErrForbidden indicates the caller may not access the resource.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("auth: resource not found")
)
