package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/openplag/internal/core/domain"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 5
	cfg.RetryInitialBackoff = time.Second
	cfg.RetryMaxBackoff = time.Second
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(ctx, "embed", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected last attempt error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt before deadline, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "search", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}

	// Breakers are per operation.
	if err := exec.Execute(context.Background(), "embed", func(context.Context) error { return nil }, classifier); err != nil {
		t.Fatalf("expected independent breaker for embed, got %v", err)
	}
}

func TestCallReturnsValue(t *testing.T) {
	exec := NewExecutor(fastConfig())

	got, err := Call(context.Background(), exec, "embed", func(context.Context) ([]float32, error) {
		return []float32{1, 2}, nil
	}, nil)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected vector, got %v (%v)", got, err)
	}
}

func TestNilExecutorRunsOnce(t *testing.T) {
	var exec *Executor
	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errors.New("boom")
	}, nil)
	if err == nil || attempts != 1 {
		t.Fatalf("expected single failing attempt, got %d (%v)", attempts, err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := Config{RetryInitialBackoff: 100 * time.Millisecond, RetryMaxBackoff: 300 * time.Millisecond, RetryMultiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d): expected %v, got %v", i+1, w, got)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"rate limited", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"bad gateway", fmt.Errorf("wrapped: %w", &HTTPStatusError{StatusCode: http.StatusBadGateway}), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"not found", &HTTPStatusError{StatusCode: http.StatusNotFound}, ErrorClassification{}},
		{"network", timeoutErr{}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"canceled", context.Canceled, ErrorClassification{}},
		{"decode", errors.New("bad json"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := ClassifyHTTPError(tc.err); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestWrapTemporary(t *testing.T) {
	err := WrapTemporary("search", &HTTPStatusError{Service: "searxng", Operation: "search", StatusCode: 503, Status: "503 Service Unavailable"}, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	err = WrapTemporary("search", &HTTPStatusError{StatusCode: 400}, nil)
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 400 to stay permanent, got %v", err)
	}
	if WrapTemporary("search", nil, nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
