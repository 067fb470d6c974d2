package auth

import (
	"errors"
	"fmt"
)

// IncorrectCredentialsMessage is the only text a caller sees for a failed credential check.
const IncorrectCredentialsMessage = "Wrong username or password"

// IncorrectCredentialsError is returned for unknown, inactive and mismatched credentials alike.
// It carries no cause so callers cannot tell which factor failed.
type IncorrectCredentialsError struct{}

func (IncorrectCredentialsError) Error() string { return IncorrectCredentialsMessage }

var (
	ErrIncorrectCredentials error = IncorrectCredentialsError{}

	// ErrBackingStoreUnavailable marks genuine storage faults, never "no such account".
	ErrBackingStoreUnavailable = errors.New("auth: backing store unavailable")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
)

// StoreUnavailable wraps a storage fault so that both ErrBackingStoreUnavailable and the cause match errors.Is.
func StoreUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrBackingStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackingStoreUnavailable, err)
}
