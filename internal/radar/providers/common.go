package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// RetryConfig controls the step-back retry behaviour.
type RetryConfig struct {
	Attempts int           // total attempts per snapshot
	Pause    time.Duration // wait between attempts
	StepBack time.Duration // how much earlier each retry asks for
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client   *http.Client
	Retry    RetryConfig
	MaxBytes int64 // 0 = unlimited
}

var (
	errClientStatus  = errors.New("client error status")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errTooLarge      = errors.New("response body too large")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

func (c HTTPClientConfig) validate() error {
	if c.Client == nil {
		return errNoHTTPClient
	}
	if c.Retry.Attempts <= 0 || c.Retry.Pause < 0 || c.Retry.StepBack <= 0 {
		return errInvalidConfig
	}
	return nil
}

// newBreaker trips on transport and 5xx failures only. Missing snapshots
// (4xx) are a normal part of stepping back and must not open the circuit.
func newBreaker(name string, tripAfter uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     1 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClientStatus)
		},
	})
}

// doRequest executes a single attempt through the circuit breaker and returns
// the full response body. Non-2xx statuses are errors.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) ([]byte, error) {
	req, err := buildRequest()
	if err != nil {
		return nil, err
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: %d", errClientStatus, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		var body io.Reader = resp.Body
		if cfg.MaxBytes > 0 {
			body = io.LimitReader(resp.Body, cfg.MaxBytes+1)
		}
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return nil, readErr
		}
		if cfg.MaxBytes > 0 && int64(len(data)) > cfg.MaxBytes {
			return nil, fmt.Errorf("%w: limit %d bytes", errTooLarge, cfg.MaxBytes)
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return data, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
