// Package reportapi provides a client for the production reports API that
// shift records are uploaded to.
package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hongsheng-mining/mill-cli/internal/model"
)

// Client defines the reports API operations.
type Client interface {
	// Submit posts one shift report. Non-2xx responses are errors.
	Submit(ctx context.Context, report model.ReportPayload) error
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithMaxRetries sets how many times transient failures are retried.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRateLimit caps submissions per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL    string
	hc         *http.Client
	maxRetries int
	limiter    *rate.Limiter
}

// NewClient creates a reports API client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		hc:         &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		limiter:    rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Submit(ctx context.Context, report model.ReportPayload) error {
	body, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "reportapi: marshal report")
	}

	endpoint := c.baseURL + "/api/reports"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			zap.L().Warn("reportapi: retrying submit",
				zap.Int("attempt", attempt),
				zap.String("date", report.ShiftDate),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "reportapi: submit cancelled")
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "reportapi: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "reportapi: build request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "reportapi: post report")
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = eris.Errorf("reportapi: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		default:
			// Client errors are not retryable.
			return eris.Errorf("reportapi: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
	}

	return eris.Wrapf(lastErr, "reportapi: submit %s %s failed after %d attempts",
		report.ShiftDate, report.ShiftType, c.maxRetries+1)
}
