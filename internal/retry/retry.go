// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts. The playlist fetch and the asset downloads share it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 3 * time.Second
)

// Policy describes how an operation is retried.
// Attempts is the total number of calls, including the first one.
type Policy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
	// OnRetry is called before sleeping; attempt is the 1-based attempt that failed.
	OnRetry func(err error, attempt int, wait time.Duration)
}

// Default returns the 3 attempts / 3 s policy with IsTransient as predicate.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay, Retryable: IsTransient}
}

// Do calls op until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last error is returned in the latter case.
func Do(ctx context.Context, p Policy, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, wait)
		}
	}
	return backoff.RetryNotify(operation, b, notify)
}

// HTTPStatusError is returned when a server answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// CheckStatus returns an *HTTPStatusError unless code is 2xx.
func CheckStatus(code int, rawURL string) error {
	if code < 200 || code > 299 {
		return &HTTPStatusError{StatusCode: code, URL: rawURL}
	}
	return nil
}

// IsTransient reports whether err is an HTTP status error or a
// connection-level failure. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
