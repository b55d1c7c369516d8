package services

import "errors"

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidAlias  = errors.New("invalid alias")
	ErrInvalidExpiry = errors.New("expiry must be in the future")
	ErrAliasTaken    = errors.New("alias already taken")
	ErrNotFound      = errors.New("link not found")
	ErrForbidden     = errors.New("forbidden")

	// ErrCodeSpaceExhausted means every generated code collided within the
	// retry budget. With 62^8 codes this signals an operational problem,
	// not a full keyspace.
	ErrCodeSpaceExhausted = errors.New("could not allocate a free short code")

	// ErrStoreUnavailable wraps transient store or cache transport failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err describes rejected user input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrInvalidAlias) || errors.Is(err, ErrInvalidExpiry)
}
