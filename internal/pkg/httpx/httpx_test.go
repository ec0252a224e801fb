package httpx

import (
	"context"
	"fmt"
	"net"
	"testing"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{302, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{599, true},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatal("nil error classified retryable")
	}
	if IsRetryableError(context.Canceled) {
		t.Fatal("cancellation classified retryable")
	}
	if IsRetryableError(fmt.Errorf("call: %w", context.DeadlineExceeded)) {
		t.Fatal("wrapped deadline classified retryable")
	}
	dial := &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}
	if !IsRetryableError(dial) {
		t.Fatal("dial failure classified permanent")
	}
	if !IsRetryableError(fmt.Errorf("post: %w", dial)) {
		t.Fatal("wrapped network error classified permanent")
	}
	if IsRetryableError(fmt.Errorf("malformed response")) {
		t.Fatal("plain error classified retryable")
	}
}
