package api

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError means the credentials are missing or were rejected. Never retried.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Status == 0 {
		return "authentication failed: " + e.Message
	}
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Status, e.Message)
}

// TransientError covers rate limiting, server errors and network failures.
type TransientError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Status == 0 {
		return "transient API error: " + e.Message
	}
	return fmt.Sprintf("transient API error (HTTP %d): %s", e.Status, e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// RequestError is a rejected query (bad syntax, invalid parameters).
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected (HTTP %d): %s", e.Status, e.Message)
}

// IsRetryable reports whether err is transient and the call may succeed on a later attempt.
func IsRetryable(err error) bool {
	var tErr *TransientError
	return errors.As(err, &tErr)
}

// RetryAfter returns the server supplied wait for a transient error, or zero.
func RetryAfter(err error) time.Duration {
	var tErr *TransientError
	if errors.As(err, &tErr) {
		return tErr.RetryAfter
	}
	return 0
}
