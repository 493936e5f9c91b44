// Package apperr holds the error kinds shared by every layer of the site API.
// Layers wrap these with fmt.Errorf("...: %w", ...) and the HTTP boundary
// classifies them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrMalformedID   = errors.New("malformed id")
	ErrNotFound      = errors.New("not found")
	ErrUpload        = errors.New("upload failed")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrTokenNotFound = errors.New("verification token not found")
	ErrTokenExpired  = errors.New("verification token expired")
	ErrTokenUsed     = errors.New("verification token already used")
	ErrPersistence   = errors.New("persistence failure")
)

// Persistence marks err as a store failure while keeping the cause in the chain.
// Sentinel kinds already present in err are left as they are.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedID) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Upload marks err as a blob write failure.
func Upload(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpload, err)
}
