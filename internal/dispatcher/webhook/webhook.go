package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/retry"
	"github.com/google/uuid"
)

type Dispatcher struct {
	url        string
	retrier    *retry.Retrier
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a dispatcher posting batches to the given webhook url
func New(url string, maxRetry *int, logger *slog.Logger) (*Dispatcher, error) {
	// initialize retrier
	retrierOpts := make([]retry.Option, 0)
	if maxRetry != nil {
		retrierOpts = append(retrierOpts, retry.WithMaxAttemps(*maxRetry))
	}
	retrier, err := retry.New(retrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	return &Dispatcher{
		url:     url,
		retrier: retrier,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: time.Second * 5,
		},
	}, nil
}

// Dispatch posts the batch to the webhook. 5XX responses and transport errors
// are retried, 4XX responses are final. The returned error wraps
// dispatcher.ErrRejected unless some attempt may have reached the webhook
// without an answer, e.g. a client timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, req dispatcher.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatcher.ErrRejected, err)
	}

	batchLogger := d.logger.With(slog.String("batchId", req.BatchID))

	var (
		lastErr   error
		uncertain bool
	)
	retryFunc := func(attempt int) (terminate bool) {
		retryLogger := batchLogger.With(slog.Int("attempt", attempt))

		resp, err := d.doRequest(ctx, payload)
		if err != nil {
			retryLogger.Error("failed to send request", "error", err.Error())
			lastErr = err
			if !neverSent(err) {
				uncertain = true
			}
			return false
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
			retryLogger.Info("batch handed off", "requestId", resp.Header.Get("X-Request-ID"))
			lastErr = nil
		case resp.StatusCode >= http.StatusInternalServerError:
			// 5XX status code indicates server error, try retry
			retryLogger.Error("response indicates error",
				"requestId", resp.Header.Get("X-Request-ID"),
				"statusCode", resp.StatusCode)
			lastErr = fmt.Errorf("%w: webhook responded with status %d", dispatcher.ErrRejected, resp.StatusCode)
			return false
		default:
			// anything else is a client error, no need to retry
			retryLogger.Error("response indicates error",
				"requestId", resp.Header.Get("X-Request-ID"),
				"statusCode", resp.StatusCode)
			lastErr = fmt.Errorf("%w: webhook responded with status %d", dispatcher.ErrRejected, resp.StatusCode)
		}

		return true
	}

	if retrySuccess := <-d.retrier.Retry(ctx, retryFunc, true); !retrySuccess {
		if lastErr == nil {
			lastErr = ctx.Err()
		}
		if uncertain {
			return fmt.Errorf("dispatch outcome unknown after retries: %v", lastErr)
		}
		if !errors.Is(lastErr, dispatcher.ErrRejected) {
			lastErr = fmt.Errorf("%w: %w", dispatcher.ErrRejected, lastErr)
		}
		return fmt.Errorf("dispatch failed after retries: %w", lastErr)
	}

	return lastErr
}

// neverSent reports whether the request failed before a connection was made.
func neverSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (d *Dispatcher) doRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("X-Request-ID", uuid.NewString())

	return d.httpClient.Do(req)
}
