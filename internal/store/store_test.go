package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejo-sal/pinable/internal/domain/order"
)

type memBackend struct {
	mu      sync.Mutex
	data    map[string]order.Correlation
	loadErr error
	saveErr error
	saves   int
}

func (b *memBackend) Load(context.Context) (map[string]order.Correlation, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.data, nil
}

func (b *memBackend) Save(_ context.Context, data map[string]order.Correlation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.data = data
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCorrelationStorePutGetRemove(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := New(ctx, backend, discard())

	c := order.Correlation{Phone: "201012345678", Name: "Ahmed", RecordedAt: time.Now().UTC()}
	require.NoError(t, s.Put(ctx, "o1", c))

	got, ok := s.Get("o1")
	require.True(t, ok)
	assert.Equal(t, c, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Remove(ctx, "o1"))
	_, ok = s.Get("o1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// put + remove each persisted synchronously
	assert.Equal(t, 2, backend.saves)
}

func TestCorrelationStoreStartsEmptyOnCorruptSnapshot(t *testing.T) {
	backend := &memBackend{loadErr: errors.New("corrupt file")}
	s := New(context.Background(), backend, discard())

	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestCorrelationStoreKeepsMemoryOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{saveErr: errors.New("disk full")}
	s := New(ctx, backend, discard())

	err := s.Put(ctx, "o1", order.Correlation{Phone: "201012345678"})
	require.Error(t, err)

	// Later shipment events still find the phone in this process.
	got, ok := s.Get("o1")
	require.True(t, ok)
	assert.Equal(t, "201012345678", got.Phone)
}

func TestCorrelationStoreConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := New(ctx, backend, discard())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, "dup", order.Correlation{Phone: "201012345678", Name: "Ahmed"})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Get("dup")
		}()
	}
	wg.Wait()

	got, ok := s.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "201012345678", got.Phone)
	assert.Equal(t, 20, backend.saves)
}
