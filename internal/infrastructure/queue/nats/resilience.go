package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/infrastructure/resilience"
)

// Connection-level failures are worth retrying; everything else (bad subject,
// oversized payload) will fail the same way on the next attempt.
var retryableNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err), isRetryableNATSError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

func isRetryableNATSError(err error) bool {
	for _, candidate := range retryableNATSErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// wrapTemporaryIfNeeded tags transient publish failures so callers can map
// them to a retry-later response instead of a hard error.
func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
