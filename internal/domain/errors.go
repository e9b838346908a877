package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream signals that the catalog returned no continuation
	// cursor. It terminates a walk normally.
	ErrEndOfStream = errors.New("no more cursor")
	// ErrMalformedDocument is returned for JSON documents that do not have
	// the expected shape.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidParams is returned for request parameters the API would reject.
	ErrInvalidParams = errors.New("invalid page parameters")
)

// TransportError is a non-success HTTP response.
type TransportError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// DecodeError wraps a failure to turn fetched bytes into an image.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image decode error for %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
