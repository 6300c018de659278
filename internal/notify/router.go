package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mejo-sal/pinable/internal/audit"
	"github.com/mejo-sal/pinable/internal/domain/event"
)

// Router classifies raw webhook bodies and hands them to the dispatcher.
// Routing happens on a detached goroutine: the HTTP 200 is committed before
// any processing starts, so nothing here may ever reach the caller.
type Router struct {
	dispatcher *Dispatcher
	sink       audit.Sink
	logger     *slog.Logger

	wg sync.WaitGroup
}

func NewRouter(d *Dispatcher, sink audit.Sink, logger *slog.Logger) *Router {
	return &Router{
		dispatcher: d,
		sink:       sink,
		logger:     logger,
	}
}

// Route accepts a raw webhook body and schedules processing. It never
// returns an error: acknowledgment is unconditional. The passed context is
// detached from the request so an early client disconnect cannot cancel a
// delivery in flight.
func (r *Router) Route(ctx context.Context, raw []byte) {
	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("handler panic", "panic", fmt.Sprint(p))
				r.sink.Record(detached, audit.Entry{
					Outcome: audit.OutcomeHandlerPanic,
					Reason:  fmt.Sprint(p),
					At:      time.Now().UTC(),
				})
			}
		}()
		r.process(detached, raw)
	}()
}

// Wait blocks until all in-flight events have been processed. Called during
// shutdown before the store is flushed.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) process(ctx context.Context, raw []byte) {
	// cheap field check before committing to a full decode
	if !gjson.GetBytes(raw, "data.event").Exists() || !gjson.GetBytes(raw, "data.payload").Exists() {
		r.logger.Warn("invalid webhook envelope")
		r.sink.Record(ctx, audit.Entry{
			Outcome: audit.OutcomeInvalidEnvelope,
			At:      time.Now().UTC(),
		})
		return
	}

	var env event.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("invalid webhook envelope", "error", err)
		r.sink.Record(ctx, audit.Entry{
			Outcome: audit.OutcomeInvalidEnvelope,
			At:      time.Now().UTC(),
		})
		return
	}

	kind := event.Kind(env.Data.Event)
	eventsReceived.WithLabelValues(string(kind)).Inc()
	r.logger.Info("webhook event received", "event", string(kind))

	var err error
	switch kind {
	case event.OrderPlaced:
		var p event.OrderPayload
		if err = json.Unmarshal(env.Data.Payload, &p); err == nil {
			err = r.dispatcher.HandleOrderPlaced(ctx, p)
		}
	case event.ShipmentUpdated:
		var p event.ShipmentPayload
		if err = json.Unmarshal(env.Data.Payload, &p); err == nil {
			err = r.dispatcher.HandleShipmentUpdated(ctx, p)
		}
	case event.OrderCanceled:
		var p event.OrderPayload
		if err = json.Unmarshal(env.Data.Payload, &p); err == nil {
			err = r.dispatcher.HandleOrderCanceled(ctx, p)
		}
	default:
		r.dispatcher.HandleUnknown(ctx, string(kind))
		return
	}

	if err != nil {
		r.logger.Error("event handler failed", "event", string(kind), "error", err)
		r.sink.Record(ctx, audit.Entry{
			Event:   string(kind),
			Outcome: audit.OutcomeDropped,
			Reason:  err.Error(),
			At:      time.Now().UTC(),
		})
	}
}
