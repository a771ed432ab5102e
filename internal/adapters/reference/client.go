// Package reference implements the best-effort reference-service clients used
// by the checkers. Every failure is reported as ports.ErrServiceUnavailable so
// callers can treat it as inconclusive.
package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rwadirectory/internal/metrics"
	"rwadirectory/internal/ports"
	"rwadirectory/internal/retry"
)

const maxBodyBytes = 1 << 20

// Options configures the shared HTTP behavior of a reference client.
type Options struct {
	HTTPClient *http.Client
	// RatePerSecond limits outbound calls; zero disables limiting.
	RatePerSecond float64
	Burst         int
	Retry         *retry.Config
	Logger        *zap.Logger
}

type clientBase struct {
	service string
	http    *http.Client
	limiter *rate.Limiter
	retry   *retry.Config
	logger  *zap.Logger
}

func newClientBase(service string, opts Options) clientBase {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return clientBase{
		service: service,
		http:    httpClient,
		limiter: limiter,
		retry:   opts.Retry,
		logger:  logger.Named(service),
	}
}

// do sends the request built by newReq, retrying on transport errors, 429 and
// 5xx. Each attempt gets a fresh request so bodies can be replayed.
func (c clientBase) do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordReferenceCall(c.service, "unavailable")
		return nil, fmt.Errorf("%w: %s rate limit wait: %v", ports.ErrServiceUnavailable, c.service, err)
	}

	body, err := retry.Do(ctx, c.retry, func() ([]byte, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, retry.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return data, nil
	})
	if err != nil {
		metrics.RecordReferenceCall(c.service, "unavailable")
		c.logger.Debug("reference call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrServiceUnavailable, c.service, err)
	}
	metrics.RecordReferenceCall(c.service, "ok")
	return body, nil
}

func missingCredentials(service string) error {
	metrics.RecordReferenceCall(service, "unavailable")
	return fmt.Errorf("%w: %s credentials not configured", ports.ErrServiceUnavailable, service)
}
