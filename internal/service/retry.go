package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/retry"
)

// storageRetrier re-runs storage operations that failed with domain.ErrStorageUnavailable.
// Any other outcome, success or failure, ends the loop. An operation runs at
// most maxAttempts times; zero leaves the limit to the retrier.
type storageRetrier struct {
	retrier     *retry.Retrier
	maxAttempts int
	logger      *slog.Logger
}

func newStorageRetrier(maxAttempts *int, logger *slog.Logger) (*storageRetrier, error) {
	retrierOpts := make([]retry.Option, 0)
	if maxAttempts != nil {
		retrierOpts = append(retrierOpts, retry.WithMaxAttemps(*maxAttempts))
	}
	retrier, err := retry.New(retrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}
	r := &storageRetrier{retrier: retrier, logger: logger}
	if maxAttempts != nil {
		r.maxAttempts = *maxAttempts
	}
	return r, nil
}

func (s *storageRetrier) do(ctx context.Context, op string, fn func() error) error {
	var (
		err      error
		attempts int
	)
	retryFunc := func(attempt int) (terminate bool) {
		attempts++
		err = fn()
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			return true
		}
		if s.maxAttempts > 0 && attempts >= s.maxAttempts {
			return true
		}
		s.logger.Warn("storage unavailable, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			"error", err.Error())
		return false
	}

	ok := <-s.retrier.Retry(ctx, retryFunc, true)
	if !ok || errors.Is(err, domain.ErrStorageUnavailable) {
		if err == nil {
			if err = ctx.Err(); err == nil {
				err = domain.ErrStorageUnavailable
			}
		}
		s.logger.Error("storage operation failed after retries", slog.String("op", op), "error", err.Error())
	}
	return err
}
