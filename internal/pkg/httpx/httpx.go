// Package httpx classifies HTTP failures for retry decisions.
package httpx

import (
	"context"
	"errors"
	"net"
)

// IsRetryableHTTPStatus reports whether a status code indicates a
// transient condition. 408 and 429 are explicit retry hints; 5xx means
// the server, not the request, is at fault.
func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether a transport-level error is worth
// retrying. Context cancellation is not: the caller gave up. Network
// errors (timeouts, refused connections, resets) are transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
