package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejo-sal/pinable/internal/audit"
	"github.com/mejo-sal/pinable/internal/compose"
	"github.com/mejo-sal/pinable/internal/domain/event"
	"github.com/mejo-sal/pinable/internal/domain/order"
	"github.com/mejo-sal/pinable/internal/messenger"
	"github.com/mejo-sal/pinable/internal/store"
)

type fakeBackend struct {
	mu   sync.Mutex
	data map[string]order.Correlation
}

func (b *fakeBackend) Load(context.Context) (map[string]order.Correlation, error) {
	return b.data, nil
}

func (b *fakeBackend) Save(_ context.Context, data map[string]order.Correlation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
	return nil
}

type sentMessage struct {
	To   messenger.Recipient
	Text string
}

type fakeMessenger struct {
	mu         sync.Mutex
	sent       []sentMessage
	resolveErr error
	sendErr    error
	failFirst  bool // fail only the first Send
}

func (m *fakeMessenger) Resolve(_ context.Context, phone string) (messenger.Recipient, error) {
	if m.resolveErr != nil {
		return "", m.resolveErr
	}
	return messenger.Recipient(phone + "@c.us"), nil
}

func (m *fakeMessenger) Send(_ context.Context, to messenger.Recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFirst {
		m.failFirst = false
		return errors.New("transport down")
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{To: to, Text: text})
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func newTestPipeline(t *testing.T, m *fakeMessenger) (*Dispatcher, *store.CorrelationStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(context.Background(), &fakeBackend{}, logger)
	composer := compose.New("Pineapple EG", "https://bosta.co/tracking/", "https://pineappleeg.com")
	d := NewDispatcher(st, composer, m, audit.NopSink{}, logger)
	return d, st
}

func placedPayload() event.OrderPayload {
	return event.OrderPayload{Order: &order.Placed{
		ID:              "o1",
		OrderSerial:     "1001",
		Customer:        &order.Customer{Name: "Ahmed"},
		ShippingAddress: &order.ShippingAddress{Phone: "01012345678"},
		TotalPrice:      order.TotalPrice{Amount: 250},
	}}
}

func TestOrderPlacedStoresAndDelivers(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))

	c, ok := st.Get("o1")
	require.True(t, ok)
	assert.Equal(t, "201012345678", c.Phone)
	assert.Equal(t, "Ahmed", c.Name)
	assert.False(t, c.RecordedAt.IsZero())

	msgs := m.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, messenger.Recipient("201012345678@c.us"), msgs[0].To)
	assert.Contains(t, msgs[0].Text, "1001")
	assert.Contains(t, msgs[0].Text, "250")
}

func TestOrderPlacedDeliveryFailureKeepsCorrelation(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{sendErr: errors.New("transport down")}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))

	_, ok := st.Get("o1")
	assert.True(t, ok, "correlation must survive a failed confirmation send")
	assert.Empty(t, m.messages())
}

func TestOrderPlacedMissingFieldsDropped(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, event.OrderPayload{Order: &order.Placed{
		ID:          "o2",
		OrderSerial: "1002",
		// no customer, no shipping address
	}}))

	_, ok := st.Get("o2")
	assert.False(t, ok)
	assert.Empty(t, m.messages())
}

func TestOrderPlacedRejectedPhoneDropped(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	p := placedPayload()
	p.Order.ShippingAddress.Phone = "123"
	require.NoError(t, d.HandleOrderPlaced(ctx, p))

	_, ok := st.Get("o1")
	assert.False(t, ok)
	assert.Empty(t, m.messages())
}

func TestShipmentUpdatedWithoutCorrelationDropped(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, _ := newTestPipeline(t, m)

	require.NoError(t, d.HandleShipmentUpdated(ctx, event.ShipmentPayload{
		Events: []string{event.ShipmentPickedUp},
		Order:  &order.Shipment{OrderID: "never-seen", OrderSerial: "9", TrackingNumber: "T"},
	}))

	assert.Empty(t, m.messages())
}

func TestShipmentUpdatedDeliversPerSubEvent(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, _ := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))
	m.sent = nil

	require.NoError(t, d.HandleShipmentUpdated(ctx, event.ShipmentPayload{
		Events: []string{event.ShipmentPickedUp, "SomethingElse", event.ShipmentDelivered},
		Order: &order.Shipment{
			OrderID:        "o1",
			OrderSerial:    "1001",
			CompanyName:    "Bosta",
			TrackingNumber: "TRK42",
		},
	}))

	msgs := m.messages()
	require.Len(t, msgs, 2, "unrecognized sub-event produces no message")
	assert.Contains(t, msgs[0].Text, "https://bosta.co/tracking/TRK42")
	assert.Contains(t, msgs[1].Text, "https://pineappleeg.com")
}

func TestShipmentSubEventFailureDoesNotBlockRest(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{failFirst: true}
	d, _ := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))
	// the placed confirmation consumed the injected failure; re-arm it
	m.failFirst = true
	m.sent = nil

	require.NoError(t, d.HandleShipmentUpdated(ctx, event.ShipmentPayload{
		Events: []string{event.ShipmentPickedUp, event.ShipmentDelivered},
		Order:  &order.Shipment{OrderID: "o1", OrderSerial: "1001", TrackingNumber: "TRK42"},
	}))

	msgs := m.messages()
	require.Len(t, msgs, 1, "second sub-event still delivered after first failed")
	assert.Contains(t, msgs[0].Text, "https://pineappleeg.com")
}

func TestOrderCanceledDeliversThenRemoves(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))
	m.sent = nil

	require.NoError(t, d.HandleOrderCanceled(ctx, placedPayload()))

	msgs := m.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "1001")

	_, ok := st.Get("o1")
	assert.False(t, ok)
}

func TestOrderCanceledRemovesEvenOnDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))

	m.sendErr = errors.New("transport down")
	require.NoError(t, d.HandleOrderCanceled(ctx, placedPayload()))

	_, ok := st.Get("o1")
	assert.False(t, ok, "cancellation is terminal regardless of delivery outcome")
}

func TestOrderCanceledRemovesEvenOnRejectedPhone(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))
	m.sent = nil

	p := placedPayload()
	p.Order.ShippingAddress.Phone = ""
	require.NoError(t, d.HandleOrderCanceled(ctx, p))

	assert.Empty(t, m.messages())
	_, ok := st.Get("o1")
	assert.False(t, ok)
}

func TestResolveFailureCountsAsDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{resolveErr: messenger.ErrNotOnChannel}
	d, st := newTestPipeline(t, m)

	require.NoError(t, d.HandleOrderPlaced(ctx, placedPayload()))

	_, ok := st.Get("o1")
	assert.True(t, ok)
	assert.Empty(t, m.messages())
}
