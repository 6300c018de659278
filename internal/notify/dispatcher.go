// Package notify turns classified webhook events into delivered messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mejo-sal/pinable/internal/audit"
	"github.com/mejo-sal/pinable/internal/compose"
	"github.com/mejo-sal/pinable/internal/domain/event"
	"github.com/mejo-sal/pinable/internal/domain/order"
	"github.com/mejo-sal/pinable/internal/messenger"
	"github.com/mejo-sal/pinable/internal/phone"
	"github.com/mejo-sal/pinable/internal/store"
)

// Dispatcher owns the per-event-kind handlers. Handlers drop invalid or
// uncorrelatable events without error: the webhook is already acknowledged,
// so there is nobody to report to except the audit sink.
type Dispatcher struct {
	store     *store.CorrelationStore
	composer  *compose.Composer
	messenger messenger.Messenger
	sink      audit.Sink
	logger    *slog.Logger
}

func NewDispatcher(
	st *store.CorrelationStore,
	composer *compose.Composer,
	m messenger.Messenger,
	sink audit.Sink,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:     st,
		composer:  composer,
		messenger: m,
		sink:      sink,
		logger:    logger,
	}
}

// HandleOrderPlaced records the order -> phone correlation and sends the
// confirmation. A delivery failure does not roll back the correlation:
// shipment events days from now must still find the phone.
func (d *Dispatcher) HandleOrderPlaced(ctx context.Context, p event.OrderPayload) error {
	o := p.Order
	if o == nil || o.Customer == nil || o.ShippingAddress == nil {
		d.drop(ctx, event.OrderPlaced, "", "missing customer or shipping address")
		return nil
	}

	canonical, err := phone.Normalize(o.ShippingAddress.Phone)
	if err != nil {
		d.drop(ctx, event.OrderPlaced, o.ID, "phone rejected")
		return nil
	}

	if err := d.store.Put(ctx, o.ID, order.Correlation{
		Phone:      canonical,
		Name:       o.Customer.Name,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		persistenceFailures.Inc()
		d.sink.Record(ctx, audit.Entry{
			Event:   string(event.OrderPlaced),
			OrderID: o.ID,
			Outcome: audit.OutcomePersistFail,
			Reason:  err.Error(),
			At:      time.Now().UTC(),
		})
		// in-memory entry is in place; keep going
	}

	d.deliver(ctx, event.OrderPlaced, o.ID, canonical, d.composer.OrderPlaced(o))
	return nil
}

// HandleShipmentUpdated delivers one message per recognized sub-event.
// An order the store has never seen is dropped quietly: it may simply
// predate this service.
func (d *Dispatcher) HandleShipmentUpdated(ctx context.Context, p event.ShipmentPayload) error {
	sh := p.Order
	if sh == nil || p.Events == nil {
		d.drop(ctx, event.ShipmentUpdated, "", "missing order or events")
		return nil
	}

	c, ok := d.store.Get(sh.OrderID)
	if !ok {
		d.drop(ctx, event.ShipmentUpdated, sh.OrderID, "no correlation")
		return nil
	}

	for _, sub := range p.Events {
		text, err := d.composer.ShipmentEvent(sub, sh)
		if errors.Is(err, compose.ErrNoMessage) {
			continue
		}
		// one sub-event's failure must not block the rest
		d.deliver(ctx, event.ShipmentUpdated, sh.OrderID, c.Phone, text)
	}
	return nil
}

// HandleOrderCanceled notifies from the cancellation payload itself (the
// correlation may be long gone), then evicts the correlation no matter how
// the delivery went. Cancellation is terminal.
func (d *Dispatcher) HandleOrderCanceled(ctx context.Context, p event.OrderPayload) error {
	o := p.Order
	if o == nil {
		d.drop(ctx, event.OrderCanceled, "", "missing order")
		return nil
	}

	var rawPhone string
	if o.ShippingAddress != nil {
		rawPhone = o.ShippingAddress.Phone
	}

	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		d.drop(ctx, event.OrderCanceled, o.ID, "phone rejected")
	} else {
		d.deliver(ctx, event.OrderCanceled, o.ID, canonical, d.composer.OrderCanceled(o))
	}

	if err := d.store.Remove(ctx, o.ID); err != nil {
		persistenceFailures.Inc()
		d.sink.Record(ctx, audit.Entry{
			Event:   string(event.OrderCanceled),
			OrderID: o.ID,
			Outcome: audit.OutcomePersistFail,
			Reason:  err.Error(),
			At:      time.Now().UTC(),
		})
	}
	return nil
}

// HandleUnknown observes unrecognized event tags. Always accepted so the
// webhook source does not retry a classification miss.
func (d *Dispatcher) HandleUnknown(ctx context.Context, kind string) {
	d.logger.Info("unknown webhook event", "event", kind)
	d.sink.Record(ctx, audit.Entry{
		Event:   kind,
		Outcome: audit.OutcomeUnknownEvent,
		At:      time.Now().UTC(),
	})
}

// StoreLen exposes the correlation count for the health probe.
func (d *Dispatcher) StoreLen() int {
	return d.store.Len()
}

func (d *Dispatcher) deliver(ctx context.Context, kind event.Kind, orderID, canonical, text string) {
	entry := audit.Entry{
		Event:   string(kind),
		OrderID: orderID,
		Phone:   canonical,
		At:      time.Now().UTC(),
	}

	rec, err := d.messenger.Resolve(ctx, canonical)
	if err != nil {
		deliveryFailures.Inc()
		entry.Outcome = audit.OutcomeDeliveryFail
		if errors.Is(err, messenger.ErrNotOnChannel) {
			entry.Reason = "not on channel"
		} else {
			entry.Reason = fmt.Sprintf("resolve: %v", err)
		}
		d.sink.Record(ctx, entry)
		return
	}

	if err := d.messenger.Send(ctx, rec, text); err != nil {
		deliveryFailures.Inc()
		entry.Outcome = audit.OutcomeDeliveryFail
		entry.Reason = fmt.Sprintf("send: %v", err)
		d.sink.Record(ctx, entry)
		return
	}

	notificationsSent.Inc()
	entry.Outcome = audit.OutcomeDelivered
	d.sink.Record(ctx, entry)
}

func (d *Dispatcher) drop(ctx context.Context, kind event.Kind, orderID, reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
	d.logger.Warn("event dropped", "event", string(kind), "order_id", orderID, "reason", reason)
	d.sink.Record(ctx, audit.Entry{
		Event:   string(kind),
		OrderID: orderID,
		Outcome: audit.OutcomeDropped,
		Reason:  reason,
		At:      time.Now().UTC(),
	})
}
