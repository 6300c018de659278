// Package audit is the observability side channel for the notification
// pipeline. Handler outcomes never reach the webhook caller, so everything
// worth knowing about a drop or a delivery failure flows through here.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Outcome classifies what happened to an event or a delivery attempt.
type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeDeliveryFail    Outcome = "delivery_failed"
	OutcomeDropped         Outcome = "dropped"
	OutcomePersistFail     Outcome = "persistence_failed"
	OutcomeHandlerPanic    Outcome = "handler_panic"
	OutcomeUnknownEvent    Outcome = "unknown_event"
	OutcomeInvalidEnvelope Outcome = "invalid_envelope"
)

// Entry is one audit record.
type Entry struct {
	Event   string    `json:"event"`
	OrderID string    `json:"order_id,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Sink receives audit entries. Record must never block event processing
// for long and must never panic.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// SlogSink writes entries to the structured log.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Record(_ context.Context, e Entry) {
	level := slog.LevelInfo
	switch e.Outcome {
	case OutcomeDeliveryFail, OutcomeHandlerPanic:
		level = slog.LevelError
	case OutcomePersistFail:
		// risks losing correlations across restarts
		level = slog.LevelError
	case OutcomeDropped, OutcomeInvalidEnvelope:
		level = slog.LevelWarn
	}

	s.logger.Log(context.Background(), level, "notification audit",
		"event", e.Event,
		"order_id", e.OrderID,
		"outcome", string(e.Outcome),
		"reason", e.Reason,
	)
}

// MultiSink fans one entry out to several sinks.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Entry) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// NopSink discards everything. Used in tests.
type NopSink struct{}

func (NopSink) Record(context.Context, Entry) {}
