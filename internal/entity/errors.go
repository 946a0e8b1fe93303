package entity

import "errors"

// Domain errors shared by the backup and collaboration engines.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrDictionaryNotFound     = errors.New("dictionary not found")
	ErrWordNotFound           = errors.New("word not found")
	ErrUserNotAuthenticated   = errors.New("user not authenticated")
	ErrDictionaryLimitReached = errors.New("shared dictionary limit reached")
	ErrNetwork                = errors.New("network error")
	ErrSyncFailed             = errors.New("sync failed")
)

// IsValidationError reports whether err is detected locally before any
// network call. Such errors are never retried.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrDictionaryNotFound) ||
		errors.Is(err, ErrWordNotFound) ||
		errors.Is(err, ErrUserNotAuthenticated) ||
		errors.Is(err, ErrDictionaryLimitReached)
}
