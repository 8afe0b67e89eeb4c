package util

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotSupported       = errors.New("operation not supported by auth provider")

	ErrInvalidChange  = errors.New("invalid change")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrStaleChange    = errors.New("change is older than server state")
	ErrTooManyChanges = errors.New("too many changes in one sync batch")
	ErrInvalidCursor  = errors.New("invalid last_sync cursor")
)
