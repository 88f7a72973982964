package llmclient

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxElapsed = 2 * time.Minute

// newBackOff returns a factory for the exponential policy shared by all adapters.
func newBackOff(maxElapsed time.Duration) func() backoff.BackOff {
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxElapsed
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = maxElapsed
		b.MaxInterval = 30 * time.Second
		return b
	}
}

// retryableStatus reports whether a completion endpoint status is transient.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return true
	}
	return false
}
