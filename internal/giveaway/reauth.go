package giveaway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"givegram/internal/failure"
	"givegram/internal/session"
)

// ErrLoginRequired is matched by errors returned when recovery from an
// expired session failed and the user must log in again.
var ErrLoginRequired = errors.New("login required")

// LoginRequiredError carries the reason recovery failed.
type LoginRequiredError struct {
	Reason session.Reason
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("login required: %s", e.Reason)
}

func (e *LoginRequiredError) Is(target error) bool { return target == ErrLoginRequired }

// Recoverer is the part of the session manager the controller depends on.
type Recoverer interface {
	Handle() string
	HandleUnauthorized(ctx context.Context) session.Recovery
}

// WithReauth runs op with the current handle. If op reports Unauthorized the
// session is recovered and op is run exactly once more with the new handle.
// A second Unauthorized is returned as is.
func WithReauth[T any](ctx context.Context, sessions Recoverer, op func(ctx context.Context, handle string) (T, error)) (T, error) {
	result, err := op(ctx, sessions.Handle())
	if !failure.IsUnauthorized(err) {
		return result, err
	}

	rec := sessions.HandleUnauthorized(ctx)
	if !rec.Reauthenticated {
		var zero T
		return zero, &LoginRequiredError{Reason: rec.Reason}
	}

	logger.Infof("Retrying after re-authentication")
	return op(ctx, sessions.Handle())
}
