package paginator

import (
	"errors"
	"fmt"
)

// MaxTotalPages bounds the page count derived from a first page. Larger
// counts are rejected with ErrPaginationFields before any slot is reserved.
const MaxTotalPages = 1 << 20

// Errors returned by the paginator.
var (
	// ErrLoginFailed is matched by every *LoginError: the login endpoint was
	// unreachable, answered non-2xx, or returned no token.
	ErrLoginFailed = errors.New("login failed")

	// ErrAuthenticationFailed is matched when a page request rejected the token.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDataFetchFailed is matched by every *FetchError.
	ErrDataFetchFailed = errors.New("data fetch failed")

	// ErrPaginationFields is wrapped when a page lacks usable pagination metadata.
	ErrPaginationFields = errors.New("pagination fields missing or invalid")

	// ErrTokenMissing is wrapped when the login response carries no token.
	ErrTokenMissing = errors.New("token missing from login response")

	// ErrInvalidState is returned when an operation is not valid in the current state.
	ErrInvalidState = errors.New("invalid paginator state")

	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("invalid paginator config")
)

// LoginError describes a failed login exchange.
type LoginError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *LoginError) Error() string {
	msg := fmt.Sprintf("login failed (url %s", e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *LoginError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrLoginFailed.
func (e *LoginError) Is(target error) bool {
	return target == ErrLoginFailed
}

// FetchError describes the page that failed a run.
type FetchError struct {
	Page       int
	Kind       OutcomeKind
	StatusCode int
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch page %d (%s", e.Page, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += fmt.Sprintf(", url %s)", e.URL)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrDataFetchFailed, and ErrAuthenticationFailed for rejected tokens.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrDataFetchFailed:
		return true
	case ErrAuthenticationFailed:
		return e.Kind == OutcomeAuthError
	default:
		return false
	}
}
