package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{name: "nil", err: nil, want: resilience.ErrorClassification{}},
		{name: "canceled", err: context.Canceled, want: resilience.ErrorClassification{}},
		{name: "no servers", err: fmt.Errorf("nats publish: %w", nats.ErrNoServers), want: resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{name: "closed", err: nats.ErrConnectionClosed, want: resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{name: "bad subject", err: nats.ErrBadSubject, want: resilience.ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyNATSError(tc.err); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestWrapTemporaryMarksConnectionLoss(t *testing.T) {
	err := resilience.WrapTemporary("nats publish", fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), classifyNATSError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	perm := resilience.WrapTemporary("nats publish", nats.ErrBadSubject, classifyNATSError)
	if domain.IsKind(perm, domain.ErrTemporary) || !errors.Is(perm, nats.ErrBadSubject) {
		t.Fatalf("expected permanent error passthrough, got %v", perm)
	}
}
