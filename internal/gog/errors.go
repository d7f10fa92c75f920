package gog

import (
	"errors"
	"fmt"
	"net/url"
)

// Remote failure kinds. Handlers branch on these with errors.Is; every
// other error from this package is a plain network failure.
var (
	// ErrUnauthorized: HTTP 403 — the user does not own the game, or the
	// token is no longer accepted.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict: HTTP 409 — a posted leaderboard score is stale.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrOffline: connect or timeout failure before an HTTP status was
	// received.
	ErrOffline = errors.New("service unreachable")
)

// StatusError carries an unexpected HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.Code)
}

// HTTPStatus extracts the status code to mirror into header field 101.
// Returns 0 when the error carries no status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return 403
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func statusError(code int) error {
	switch code {
	case 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	default:
		return &StatusError{Code: code}
	}
}

// transportError wraps a failure from the HTTP round trip. Anything that
// died before a status line counts as offline.
func transportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	return err
}
