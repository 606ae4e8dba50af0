package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/repository"
)

var (
	// ErrInvalidInput is returned for empty usernames or passwords.
	ErrInvalidInput = auth.ErrInvalidInput
	// ErrOperationCanceled is returned when the caller abandoned a store call.
	ErrOperationCanceled = errors.New("operation canceled")
	// ErrStoreUnavailable is a transient user store failure. Callers may retry.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// storeError classifies a user store failure. ErrNotFound is not a failure and
// must be handled before calling this.
func storeError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrOperationCanceled, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// withStoreTimeout bounds one store call. A zero timeout leaves ctx untouched.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
