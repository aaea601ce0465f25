package sat

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetries   = 2
	initialBackoff   = 600 * time.Millisecond
	minimumWindowGap = 2 * time.Second
)

// NormalizeParams applies the protocol's query constraints:
//
//   - the window end must be strictly after start by at least two seconds,
//     otherwise it is pushed to start + 2s;
//   - a received-direction CFDI query with no status filter is disallowed by
//     the service and is narrowed to active documents only.
func NormalizeParams(p QueryParams, logger *zap.Logger) QueryParams {
	if !p.End.After(p.Start) || p.End.Sub(p.Start) < minimumWindowGap {
		p.End = p.Start.Add(minimumWindowGap)
	}

	if p.Direction == DirectionReceived && p.RequestType == RequestTypeCFDI && p.StatusFilter == StatusFilterAll {
		logger.Warn("narrowing received CFDI query to active documents",
			zap.String("rfc", p.RFC),
			zap.Time("start", p.Start),
			zap.Time("end", p.End),
		)
		p.StatusFilter = StatusFilterActive
	}

	return p
}

// RetryingClient wraps a Client with the acquisition retry policy: transient
// faults are retried with a doubling sleep starting at 600ms, for a total of
// retries+1 attempts. Rejections and exhausted retries propagate to the
// caller, which applies state-machine-level failure handling.
type RetryingClient struct {
	inner   Client
	retries int
	backoff time.Duration
	logger  *zap.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryingClient(inner Client, retries int, logger *zap.Logger) *RetryingClient {
	if retries < 0 {
		retries = defaultRetries
	}
	return &RetryingClient{
		inner:   inner,
		retries: retries,
		backoff: initialBackoff,
		logger:  logger,
		sleep:   sleepContext,
	}
}

func (c *RetryingClient) CreateQuery(ctx context.Context, params QueryParams) (string, error) {
	params = NormalizeParams(params, c.logger)

	var remoteID string
	err := c.do(ctx, "CreateQuery", []zap.Field{
		zap.String("rfc", params.RFC),
		zap.String("direction", string(params.Direction)),
		zap.Time("start", params.Start),
		zap.Time("end", params.End),
	}, func() error {
		var err error
		remoteID, err = c.inner.CreateQuery(ctx, params)
		return err
	})
	return remoteID, err
}

func (c *RetryingClient) VerifyQuery(ctx context.Context, remoteRequestID string) (*VerifyResult, error) {
	var result *VerifyResult
	err := c.do(ctx, "VerifyQuery", []zap.Field{
		zap.String("remote_request_id", remoteRequestID),
	}, func() error {
		var err error
		result, err = c.inner.VerifyQuery(ctx, remoteRequestID)
		return err
	})
	return result, err
}

func (c *RetryingClient) DownloadPackage(ctx context.Context, remoteRequestID, packageID string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, "DownloadPackage", []zap.Field{
		zap.String("remote_request_id", remoteRequestID),
		zap.String("package_id", packageID),
	}, func() error {
		var err error
		data, err = c.inner.DownloadPackage(ctx, remoteRequestID, packageID)
		return err
	})
	return data, err
}

// do runs fn up to retries+1 times, sleeping between transient failures.
func (c *RetryingClient) do(ctx context.Context, op string, fields []zap.Field, fn func() error) error {
	delay := c.backoff

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info("remote call recovered",
					append([]zap.Field{zap.String("op", op), zap.Int("attempt", attempt)}, fields...)...)
			}
			return nil
		}

		retryable := IsRetryable(err)
		c.logger.Warn("remote call failed",
			append([]zap.Field{
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			}, fields...)...)

		if !retryable || attempt > c.retries {
			return err
		}

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// sleepContext waits for d, treating in-flight backoff as a cooperative
// cancellation point.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
