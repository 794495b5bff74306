// Package reputation keeps archetype abandonment state in step with the
// on-chain reputation ledger.
package reputation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/plugin/ledger"
	"github.com/hrygo/mirrormatch/store"
)

// DefaultInterval is the time between ledger snapshots.
const DefaultInterval = 30 * time.Second

// Ledger yields the current reputation accounts.
type Ledger interface {
	Snapshot(ctx context.Context) ([]ledger.Account, error)
}

// Store is the part of the store the reconciler writes.
type Store interface {
	ResolveWallet(ctx context.Context, wallet string) (string, error)
	ApplyLedgerCount(ctx context.Context, userID string, count int) ([]*store.AbandonmentState, error)
}

// Reconciler polls the ledger and applies abandonment count increases to
// the store. It is the only writer of ledger-driven transitions.
type Reconciler struct {
	ledger   Ledger
	store    Store
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.PrometheusExporter

	// previous is owned by the loop goroutine (or by a caller of Tick when
	// the loop is not running).
	previous map[string]*ledger.Identity

	running atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewReconciler creates a Reconciler. logger and exporter may be nil.
func NewReconciler(l Ledger, s Store, interval time.Duration, logger *slog.Logger, exporter *metrics.PrometheusExporter) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger:   l,
		store:    s,
		interval: interval,
		logger:   logger,
		metrics:  exporter,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop in a new goroutine until Stop or ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return // Already running
	}
	go func() {
		defer close(r.done)
		r.run(ctx)
	}()
	r.logger.Info("reputation reconciler started", "interval", r.interval)
}

// Run blocks in the loop until Stop or ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	defer close(r.done)
	r.logger.Info("reputation reconciler started", "interval", r.interval)
	r.run(ctx)
}

// Stop ends the loop and waits for it to exit. It is safe to call more than
// once, and before Start.
func (r *Reconciler) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	if r.running.Load() {
		<-r.done
	}
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// First snapshot seeds the state right away.
	_ = r.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			_ = r.Tick(ctx)
		case <-r.stopCh:
			r.logger.Info("reputation reconciler stopped")
			return
		case <-ctx.Done():
			r.logger.Info("reputation reconciler stopped", "reason", ctx.Err())
			return
		}
	}
}

// Tick fetches one snapshot and applies every count increase since the
// previous one. Accounts seen for the first time only seed the state. A
// failed fetch keeps the previous state; a failed write keeps that
// account's previous entry so the increase is retried on the next tick.
func (r *Reconciler) Tick(ctx context.Context) error {
	accounts, err := r.ledger.Snapshot(ctx)
	if err != nil {
		r.logger.Error("failed to fetch ledger snapshot, retrying next tick", "error", err)
		r.metrics.RecordReconcilerRun(false)
		return err
	}

	current := make(map[string]*ledger.Identity, len(accounts))
	for _, acct := range accounts {
		id := acct.Identity
		current[acct.Pubkey] = id

		prev, seen := r.previous[acct.Pubkey]
		if !seen || id.AbandonmentCount <= prev.AbandonmentCount {
			continue
		}

		r.logger.Info("abandonment increase on ledger",
			"pubkey", acct.Pubkey,
			"from", prev.AbandonmentCount,
			"to", id.AbandonmentCount,
			"flagged", id.Flagged)

		if err := r.apply(ctx, id); err != nil {
			r.logger.Error("failed to apply ledger count",
				"pubkey", acct.Pubkey,
				"wallet", id.Authority,
				"error", err)
			current[acct.Pubkey] = prev
		}
	}

	r.previous = current
	r.metrics.RecordReconcilerRun(true)
	return nil
}

func (r *Reconciler) apply(ctx context.Context, id *ledger.Identity) error {
	userID, err := r.store.ResolveWallet(ctx, id.Authority)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("no identity linked to wallet", "wallet", id.Authority)
		return nil
	}
	if err != nil {
		return err
	}

	states, err := r.store.ApplyLedgerCount(ctx, userID, id.AbandonmentCount)
	if err != nil {
		return err
	}
	for _, s := range states {
		r.metrics.RecordTransition(string(s.Status))
		r.logger.Info("applied ledger count",
			"user_id", s.UserID,
			"partition_id", s.PartitionID,
			"count", s.Count,
			"status", s.Status)
	}
	return nil
}
