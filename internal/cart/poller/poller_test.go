package poller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/domain"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		m := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

type call struct {
	userID      string
	orderNumber string
	lines       []domain.OrderedLine
}

type mockCarts struct {
	mu       sync.Mutex
	calls    []call
	failures int
}

func (m *mockCarts) RemoveOrderedItems(_ context.Context, userID, orderNumber string, lines []domain.OrderedLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{userID, orderNumber, lines})
	if m.failures > 0 {
		m.failures--
		return errors.New("mongo timeout")
	}
	return nil
}

func (m *mockCarts) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func eventMessage(t *testing.T, offset int64, e domain.OrderPlacedEvent) kafka.Message {
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: raw}
}

func runPoller(t *testing.T, p *Poller, done func() bool) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(finished)
	}()
	require.Eventually(t, done, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-finished
}

func TestPoller_RemovesOrderedItems(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage(t, 1, domain.OrderPlacedEvent{UserID: "u1", OrderNumber: "ORD1", Lines: []domain.OrderedLine{{ItemID: "i1", Quantity: 2}, {ItemID: "i2", Quantity: 1}}}),
	}}
	carts := &mockCarts{}
	p := NewPollerWithReader(carts, reader)

	runPoller(t, p, func() bool { return len(reader.commits()) == 1 })

	require.Len(t, carts.calls, 1)
	assert.Equal(t, "u1", carts.calls[0].userID)
	assert.Equal(t, "ORD1", carts.calls[0].orderNumber)
	assert.Equal(t, []domain.OrderedLine{{ItemID: "i1", Quantity: 2}, {ItemID: "i2", Quantity: 1}}, carts.calls[0].lines)
}

func TestPoller_SkipsMalformedMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte("{not json")},
		eventMessage(t, 2, domain.OrderPlacedEvent{OrderNumber: "ORD2"}),
		eventMessage(t, 3, domain.OrderPlacedEvent{UserID: "u3"}),
	}}
	carts := &mockCarts{}
	p := NewPollerWithReader(carts, reader)

	runPoller(t, p, func() bool { return len(reader.commits()) == 3 })

	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	assert.Equal(t, 1, carts.callCount())
}

func TestPoller_RetriesThenCommits(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage(t, 7, domain.OrderPlacedEvent{UserID: "u1", Lines: []domain.OrderedLine{{ItemID: "i1", Quantity: 1}}}),
	}}
	carts := &mockCarts{failures: 2}
	p := NewPollerWithReader(carts, reader)
	p.backoff = time.Millisecond

	runPoller(t, p, func() bool { return len(reader.commits()) == 1 })
	assert.Equal(t, 3, carts.callCount())
}

func TestPoller_GivesUpAfterMaxAttempts(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage(t, 9, domain.OrderPlacedEvent{UserID: "u1", Lines: []domain.OrderedLine{{ItemID: "i1", Quantity: 1}}}),
	}}
	carts := &mockCarts{failures: 100}
	p := NewPollerWithReader(carts, reader)
	p.backoff = time.Millisecond

	runPoller(t, p, func() bool { return len(reader.commits()) == 1 })
	assert.Equal(t, maxAttempts, carts.callCount())
}

func TestPoller_Close(t *testing.T) {
	reader := &fakeReader{}
	NewPollerWithReader(&mockCarts{}, reader).Close()
	assert.True(t, reader.closed)
}
