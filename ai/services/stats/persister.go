// Package stats provides async persistence of returned matches into the
// match history.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/store"
)

const (
	duplicateBatchWindow = 5 * time.Second // Window for duplicate detection
	writeTimeout         = 5 * time.Second
)

// HistoryStore is the write side of the match history.
type HistoryStore interface {
	CreateMatchRecords(ctx context.Context, records []*store.MatchRecord) error
}

// Persister handles async persistence of match records. Each Enqueue is
// one batch written in one call.
type Persister struct {
	store        HistoryStore
	queue        chan []*store.MatchRecord
	wg           sync.WaitGroup
	logger       *slog.Logger
	metrics      *metrics.PrometheusExporter
	stopCh       chan struct{}
	once         sync.Once
	seenBatches  sync.Map // batch key -> last enqueued time
	dedupEnabled atomic.Bool
	now          func() time.Time
}

// NewPersister creates a new async persister. logger and exporter may be nil.
func NewPersister(hs HistoryStore, queueSize int, logger *slog.Logger, exporter *metrics.PrometheusExporter) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	p := &Persister{
		store:   hs,
		queue:   make(chan []*store.MatchRecord, queueSize),
		logger:  logger,
		metrics: exporter,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	p.dedupEnabled.Store(true)
	p.wg.Add(1)
	go p.processQueue()
	return p
}

// SetDedup toggles duplicate batch detection.
func (p *Persister) SetDedup(enabled bool) {
	p.dedupEnabled.Store(enabled)
}

// batchKey identifies a batch by requester, partition, context and the
// matched users in order.
func batchKey(records []*store.MatchRecord) string {
	first := records[0]
	key := first.UserAID + "|" + first.PartitionID + "|" + first.Context
	for _, r := range records {
		key += "|" + r.UserBID
	}
	return key
}

// Enqueue queues records for persistence and assigns missing UIDs.
// Returns true if queued, false if the batch is empty, a duplicate, or the
// queue is full.
func (p *Persister) Enqueue(records []*store.MatchRecord) bool {
	if len(records) == 0 {
		return false
	}

	// Idempotency check: the same answer for the same request within a
	// short window is recorded once.
	if p.dedupEnabled.Load() {
		key := batchKey(records)
		now := p.now()
		if last, ok := p.seenBatches.Load(key); ok {
			if lastTime, ok := last.(time.Time); ok && now.Sub(lastTime) < duplicateBatchWindow {
				p.logger.Debug("Persister: ignoring duplicate match batch",
					"user_id", records[0].UserAID,
					"elapsed_ms", now.Sub(lastTime).Milliseconds())
				return false
			}
		}
		p.seenBatches.Store(key, now)
	}

	for _, r := range records {
		if r.UID == "" {
			r.UID = shortuuid.New()
		}
	}

	select {
	case p.queue <- records:
		p.logger.Debug("Persister: match batch enqueued",
			"user_id", records[0].UserAID,
			"records", len(records),
			"queue_size", len(p.queue))
		return true
	default:
		p.logger.Warn("Persister: queue full, dropping match batch",
			"user_id", records[0].UserAID,
			"records", len(records),
			"queue_size", len(p.queue))
		p.metrics.RecordHistoryDropped("queue_full", len(records))
		return false
	}
}

// processQueue processes match batches in the background.
func (p *Persister) processQueue() {
	defer p.wg.Done()

	for {
		select {
		case records := <-p.queue:
			if err := p.save(records); err != nil {
				p.logger.Error("Persister: failed to save match history",
					"user_id", records[0].UserAID,
					"records", len(records),
					"error", err)
			}

		case <-p.stopCh:
			// Drain remaining items before shutdown
			p.drainQueue()
			return
		}
	}
}

func (p *Persister) save(records []*store.MatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := p.store.CreateMatchRecords(ctx, records); err != nil {
		p.metrics.RecordHistoryDropped("write_error", len(records))
		return err
	}
	p.metrics.RecordHistoryPersisted(len(records))
	return nil
}

// drainQueue processes any remaining items in the queue during shutdown.
func (p *Persister) drainQueue() {
	p.logger.Info("Persister: draining queue", "remaining", len(p.queue))
	lostCount := 0
	savedCount := 0
	for {
		select {
		case records := <-p.queue:
			if err := p.save(records); err != nil {
				lostCount += len(records)
				p.logger.Error("Persister: failed to save match history during shutdown",
					"user_id", records[0].UserAID,
					"error", err)
			} else {
				savedCount += len(records)
			}

		default:
			if lostCount > 0 {
				p.logger.Error("Persister: shutdown complete with data loss",
					"saved", savedCount,
					"lost", lostCount)
			}
			return
		}
	}
}

// Close waits for the queue to drain and shuts down the persister.
func (p *Persister) Close(timeout time.Duration) error {
	p.once.Do(func() {
		close(p.stopCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Persister: shutdown complete")
		return nil
	case <-time.After(timeout):
		p.logger.Warn("Persister: shutdown timeout")
		return context.DeadlineExceeded
	}
}

// QueueSize returns the current queue size.
func (p *Persister) QueueSize() int {
	return len(p.queue)
}
