package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejo-sal/pinable/internal/audit"
	"github.com/mejo-sal/pinable/internal/compose"
	"github.com/mejo-sal/pinable/internal/store"
)

type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *captureSink) Record(_ context.Context, e audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *captureSink) outcomes() []audit.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Outcome, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Outcome)
	}
	return out
}

func newTestRouter(t *testing.T, m *fakeMessenger, sink audit.Sink) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(context.Background(), &fakeBackend{}, logger)
	composer := compose.New("Pineapple EG", "https://bosta.co/tracking/", "https://pineappleeg.com")
	d := NewDispatcher(st, composer, m, sink, logger)
	return NewRouter(d, sink, logger)
}

func TestRouterEndToEndOrderPlaced(t *testing.T) {
	m := &fakeMessenger{}
	sink := &captureSink{}
	r := newTestRouter(t, m, sink)

	body := []byte(`{"data":{"event":"ORDER_PLACED","payload":{"order":{
		"_id":"o1","orderSerial":"1001",
		"customer":{"name":"Ahmed"},
		"shippingAddress":{"phone":"01012345678"},
		"totalPrice":{"amount":250}}}}}`)

	r.Route(context.Background(), body)
	r.Wait()

	msgs := m.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "1001")
	assert.Contains(t, msgs[0].Text, "250")
	assert.Contains(t, sink.outcomes(), audit.OutcomeDelivered)
}

func TestRouterUnknownEventNoDelivery(t *testing.T) {
	m := &fakeMessenger{}
	sink := &captureSink{}
	r := newTestRouter(t, m, sink)

	r.Route(context.Background(), []byte(`{"data":{"event":"PRODUCT_UPDATED","payload":{}}}`))
	r.Wait()

	assert.Empty(t, m.messages())
	assert.Equal(t, []audit.Outcome{audit.OutcomeUnknownEvent}, sink.outcomes())
}

func TestRouterInvalidEnvelopeDropped(t *testing.T) {
	m := &fakeMessenger{}
	sink := &captureSink{}
	r := newTestRouter(t, m, sink)

	for _, body := range [][]byte{
		[]byte(`{}`),
		[]byte(`{"data":{}}`),
		[]byte(`{"data":{"event":"ORDER_PLACED"}}`),
		[]byte(`{"data":{"payload":{}}}`),
		[]byte(`not json at all`),
		// fields present but the envelope itself does not decode
		[]byte(`{"data":{"event":42,"payload":{}}}`),
	} {
		r.Route(context.Background(), body)
	}
	r.Wait()

	assert.Empty(t, m.messages())
	for _, o := range sink.outcomes() {
		assert.Equal(t, audit.OutcomeInvalidEnvelope, o)
	}
	assert.Len(t, sink.outcomes(), 6)
}

func TestRouterMalformedPayloadAudited(t *testing.T) {
	m := &fakeMessenger{}
	sink := &captureSink{}
	r := newTestRouter(t, m, sink)

	// payload exists but has the wrong shape for the kind
	r.Route(context.Background(), []byte(`{"data":{"event":"ORDER_PLACED","payload":{"order":"not-an-object"}}}`))
	r.Wait()

	assert.Empty(t, m.messages())
	assert.Contains(t, sink.outcomes(), audit.OutcomeDropped)
}

func TestRouterConcurrentEvents(t *testing.T) {
	m := &fakeMessenger{}
	r := newTestRouter(t, m, audit.NopSink{})

	for i := 0; i < 10; i++ {
		r.Route(context.Background(), []byte(`{"data":{"event":"ORDER_PLACED","payload":{"order":{
			"_id":"o1","orderSerial":"1001",
			"customer":{"name":"Ahmed"},
			"shippingAddress":{"phone":"01012345678"},
			"totalPrice":{"amount":250}}}}}`))
	}
	r.Wait()

	// every duplicate webhook produced exactly one delivery attempt
	assert.Len(t, m.messages(), 10)
}
