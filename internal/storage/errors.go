package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNotFound means no document object is stored under the key.
	ErrNotFound = errors.New("object not found")

	// ErrKeyExists is returned by Put without Overwrite when the key is taken.
	ErrKeyExists = errors.New("object already exists at this key")

	// ErrInvalidKey rejects empty keys, absolute paths and keys that climb
	// out of the storage root.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge is returned once an upload streams past PutOptions.MaxSize.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied means the bucket refused the request.
	ErrAccessDenied = errors.New("access denied")
)

// =============================================================================
// StorageError
// =============================================================================

// StorageError records the operation and key of a failed storage call.
// Callers classify it with the Is helpers below.
type StorageError struct {
	Op  string // Put, Get, Delete, URL
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Classification
// =============================================================================

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsKeyExists(err error) bool    { return errors.Is(err, ErrKeyExists) }
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }
func IsInvalidKey(err error) bool   { return errors.Is(err, ErrInvalidKey) }
func IsTooLarge(err error) bool     { return errors.Is(err, ErrTooLarge) }

// Reason is a short label for err, used in logs and job error messages.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsKeyExists(err):
		return "key_exists"
	case IsAccessDenied(err):
		return "access_denied"
	case IsInvalidKey(err):
		return "invalid_key"
	case IsTooLarge(err):
		return "too_large"
	default:
		return "unknown"
	}
}
