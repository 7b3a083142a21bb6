package dbx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/tourmate-app/backend/internal/common"
)

const (
	retryBaseDelay   = 100 * time.Millisecond
	retryMaxAttempts = 3
)

// IsTransient reports whether err looks like a temporary storage failure
// worth retrying: connection-class Postgres errors, serialization failures
// and deadlocks.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"57P03", // cannot_connect_now
			"53300", // too_many_connections
			"08000", "08003", "08006": // connection exceptions
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// WithRetry runs fn with fibonacci backoff, retrying only transient storage
// failures. After the attempt budget is exhausted the last error is wrapped
// in common.ErrUnavailable so callers can distinguish infrastructure faults
// from business errors.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(retryMaxAttempts, retry.NewFibonacci(retryBaseDelay))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && IsTransient(err) {
		return errors.Join(common.ErrUnavailable, err)
	}
	return err
}
