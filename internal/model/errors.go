package model

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail indicates a unique constraint violation on users.email.
	ErrDuplicateEmail = errors.New("email already registered")
)
