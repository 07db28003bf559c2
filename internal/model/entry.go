package model

import (
	"encoding/json"
)

// LogEntry is one entry of the gateway's append-only payment event log.
// The gateway delivers entries newest-first; the processor relies on that
// ordering to stop at the resume watermark.
type LogEntry struct {
	EventID         string          `json:"event_id"`
	Module          *string         `json:"module"`
	Kind            string          `json:"event_kind"`
	TimestampMicros uint64          `json:"timestamp"`
	Payload         json.RawMessage `json:"value"`
}

// FederationDescriptor identifies one federation served by the gateway.
type FederationDescriptor struct {
	ID          string  `json:"federation_id"`
	Name        string  `json:"federation_name"`
	BalanceMsat *uint64 `json:"balance_msat,omitempty"`
}

// GatewayInfo is the gateway's self-description.
type GatewayInfo struct {
	Federations []FederationDescriptor `json:"federations"`
}

// DirectionSummary holds rolling latency and fee figures for one payment
// direction.
type DirectionSummary struct {
	AverageLatencyMs uint64 `json:"average_latency_ms"`
	MedianLatencyMs  uint64 `json:"median_latency_ms"`
	TotalFeesMsat    uint64 `json:"total_fees_msat"`
}

// PaymentSummary is the gateway's rolling latency/fee summary for a time
// window.
type PaymentSummary struct {
	Outgoing DirectionSummary `json:"outgoing"`
	Incoming DirectionSummary `json:"incoming"`
}

// DecodeFailure records an entry whose payload could not be decoded, with
// enough context to replay it later.
type DecodeFailure struct {
	FederationID string          `json:"federation_id"`
	LogOrdinal   int64           `json:"log_ordinal"`
	Module       string          `json:"module"`
	Kind         string          `json:"kind"`
	Reason       string          `json:"reason"`
	Payload      json.RawMessage `json:"payload"`
}
