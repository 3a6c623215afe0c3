package httpx

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(context.Canceled) {
		t.Fatalf("canceled must not be retryable")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if !IsRetryableError(fmt.Errorf("wrap: %w", statusErr(503))) {
		t.Fatalf("503 should be retryable")
	}
	if IsRetryableError(statusErr(400)) {
		t.Fatalf("400 must not be retryable")
	}
}

func TestBackoff_Caps(t *testing.T) {
	if got := Backoff(100*time.Millisecond, time.Second, 1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: got %s", got)
	}
	if got := Backoff(100*time.Millisecond, time.Second, 3); got != 400*time.Millisecond {
		t.Fatalf("attempt 3: got %s", got)
	}
	if got := Backoff(100*time.Millisecond, time.Second, 10); got != time.Second {
		t.Fatalf("attempt 10: got %s", got)
	}
}

func TestSleep_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected context error")
	}
}
