package model

import (
	"errors"
	"fmt"
)

// Custom error types shared by the upstream clients and the pipeline.
var (
	ErrLocationNotFound = errors.New("location not found")
	ErrAPIKeyMissing    = errors.New("API key missing")
	ErrRunTimedOut      = errors.New("prediction run timed out")
)

// TransportError is a non-success HTTP status from an upstream service. It
// carries the status code and, where retrievable, the response body.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// AuthError means the narrative service rejected the supplied API key.
type AuthError struct {
	Body string
}

func (e *AuthError) Error() string {
	return "unauthorized: the API key was rejected"
}

// RateLimitError means the narrative service reported too many requests.
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return "too many requests: the service is rate limiting this key"
}

// MalformedResponseError means an upstream response decoded successfully but
// lacks the field the consumer needs.
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("upstream response is missing %s", e.Field)
}
