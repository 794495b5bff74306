package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockHistoryStore records every batch it is given.
type mockHistoryStore struct {
	mu      sync.Mutex
	batches [][]*store.MatchRecord
	block   chan struct{}
	err     error
}

func (m *mockHistoryStore) CreateMatchRecords(ctx context.Context, records []*store.MatchRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockHistoryStore) saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func batch(user string, others ...string) []*store.MatchRecord {
	out := make([]*store.MatchRecord, len(others))
	for i, o := range others {
		out[i] = &store.MatchRecord{UserAID: user, UserBID: o, PartitionID: "guild-1", Context: "hackathon", Grade: "B"}
	}
	return out
}

func TestPersister_Enqueue(t *testing.T) {
	mockStore := &mockHistoryStore{}
	p := NewPersister(mockStore, 10, nil, nil)

	records := batch("alice", "bob", "carol", "dave")
	require.Len(t, records, 3)
	require.True(t, p.Enqueue(records))
	for _, r := range records {
		assert.NotEmpty(t, r.UID)
	}
	assert.NotEqual(t, records[0].UID, records[1].UID)

	require.NoError(t, p.Close(5*time.Second))
	assert.Equal(t, 3, mockStore.saved())
}

func TestPersister_KeepsExistingUID(t *testing.T) {
	mockStore := &mockHistoryStore{}
	p := NewPersister(mockStore, 10, nil, nil)

	records := batch("alice", "bob")
	records[0].UID = "fixed"
	require.True(t, p.Enqueue(records))
	require.NoError(t, p.Close(5*time.Second))
	assert.Equal(t, "fixed", mockStore.batches[0][0].UID)
}

func TestPersister_Empty(t *testing.T) {
	p := NewPersister(&mockHistoryStore{}, 10, nil, nil)
	defer p.Close(time.Second)
	assert.False(t, p.Enqueue(nil))
}

func TestPersister_Dedup(t *testing.T) {
	mockStore := &mockHistoryStore{}
	p := NewPersister(mockStore, 10, nil, nil)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	assert.True(t, p.Enqueue(batch("alice", "bob")))
	assert.False(t, p.Enqueue(batch("alice", "bob")))
	assert.True(t, p.Enqueue(batch("alice", "carol")))

	now = now.Add(duplicateBatchWindow)
	assert.True(t, p.Enqueue(batch("alice", "bob")))

	p.SetDedup(false)
	assert.True(t, p.Enqueue(batch("alice", "bob")))

	require.NoError(t, p.Close(5*time.Second))
	assert.Equal(t, 4, mockStore.saved())
}

func TestPersister_QueueFull(t *testing.T) {
	mockStore := &mockHistoryStore{block: make(chan struct{})}
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	p := NewPersister(mockStore, 1, nil, exporter)
	p.SetDedup(false)

	// The first batch is picked up and blocks the worker; the second fills
	// the queue; the rest are dropped.
	accepted := 0
	for i := 0; i < 5; i++ {
		if p.Enqueue(batch("alice", "bob")) {
			accepted++
		}
		if i == 0 {
			require.Eventually(t, func() bool { return p.QueueSize() == 0 }, time.Second, time.Millisecond)
		}
	}
	assert.Equal(t, 2, accepted)

	close(mockStore.block)
	require.NoError(t, p.Close(5*time.Second))
	assert.Equal(t, 0, p.QueueSize())
	assert.Equal(t, 2, mockStore.saved())
}

func TestPersister_WriteErrorIsLogged(t *testing.T) {
	mockStore := &mockHistoryStore{err: errors.New("disk full")}
	p := NewPersister(mockStore, 10, nil, nil)

	assert.True(t, p.Enqueue(batch("alice", "bob")))
	require.NoError(t, p.Close(5*time.Second))
	assert.Equal(t, 0, mockStore.saved())
}
