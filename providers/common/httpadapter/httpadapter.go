// Package httpadapter normalizes transport errors and HTTP statuses from
// upstream speech/chat vendors into the gateway outcome taxonomy.
package httpadapter

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

const defaultBodySampleMaxBytes = 8192

// NormalizeNetworkError maps transport-level errors to normalized outcomes.
func NormalizeNetworkError(err error) contracts.Outcome {
	if errors.Is(err, context.Canceled) {
		return contracts.Outcome{Class: contracts.OutcomeCancelled, Retryable: false, Reason: "provider_cancelled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.Outcome{Class: contracts.OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return contracts.Outcome{Class: contracts.OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}
	}
	return contracts.Outcome{Class: contracts.OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_transport_error"}
}

// NormalizeStatus maps an HTTP status to a normalized outcome.
func NormalizeStatus(status int) contracts.Outcome {
	outcome := contracts.Outcome{StatusCode: status}
	switch {
	case status >= 200 && status <= 299:
		outcome.Class = contracts.OutcomeSuccess
		return outcome
	case status == http.StatusTooManyRequests:
		outcome.Class = contracts.OutcomeOverload
		outcome.Retryable = true
		outcome.Reason = "provider_overload"
		return outcome
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		outcome.Class = contracts.OutcomeTimeout
		outcome.Retryable = true
		outcome.Reason = "provider_timeout"
		return outcome
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		outcome.Class = contracts.OutcomeBlocked
		outcome.Reason = "provider_auth_or_policy_block"
		return outcome
	case status >= 400 && status <= 499:
		outcome.Class = contracts.OutcomeBlocked
		outcome.Reason = "provider_client_error"
		return outcome
	default:
		outcome.Class = contracts.OutcomeInfrastructureFailure
		outcome.Retryable = true
		outcome.Reason = "provider_server_error"
		return outcome
	}
}

// ReadBodySample reads at most maxBytes from reader and reports truncation.
// It is used to capture upstream error bodies for diagnostics without
// swallowing unbounded payloads.
func ReadBodySample(reader io.Reader, maxBytes int) ([]byte, bool, error) {
	if maxBytes < 1 {
		maxBytes = defaultBodySampleMaxBytes
	}
	payload, err := io.ReadAll(io.LimitReader(reader, int64(maxBytes+1)))
	if err != nil {
		return nil, false, err
	}
	if len(payload) > maxBytes {
		return payload[:maxBytes], true, nil
	}
	return payload, false, nil
}
