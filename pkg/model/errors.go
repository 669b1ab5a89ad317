package model

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when an item is not found
	ErrNotFound = errors.New("item not found")
	// ErrInvalidArgument is returned when a caller-supplied value cannot be interpreted
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueryFailed is returned when the store fails while serving a search
	ErrQueryFailed = errors.New("query failed")
	// ErrStoreFailed is returned when the store fails on a single-item or bulk operation
	ErrStoreFailed = errors.New("store failed")
	// ErrSourceUnavailable is returned when the external source cannot be read
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// WrapError wraps storage errors to model errors.
// It converts context.Canceled and context.DeadlineExceeded to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from MongoDB driver).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
