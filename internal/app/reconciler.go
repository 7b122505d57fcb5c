package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultReconcileInterval = 30 * time.Second

// StoreReconciler periodically retries the poll store after a failed write,
// so a transient outage heals even when no new votes arrive.
type StoreReconciler struct {
	ledger   *Ledger
	recorder Recorder
	interval time.Duration
	clock    clockwork.Clock
	stopCh   chan struct{}
}

func NewStoreReconciler(ledger *Ledger, clock clockwork.Clock, recorder Recorder) *StoreReconciler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &StoreReconciler{
		ledger:   ledger,
		recorder: recorder,
		interval: defaultReconcileInterval,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the reconciliation loop until Stop is called or ctx is done.
func (r *StoreReconciler) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.reconcile(ctx)
		case <-r.stopCh:
			slog.Info("Store reconciler stopped")
			return
		case <-ctx.Done():
			slog.Info("Store reconciler context cancelled")
			return
		}
	}
}

func (r *StoreReconciler) Stop() {
	close(r.stopCh)
}

func (r *StoreReconciler) reconcile(ctx context.Context) {
	if !r.ledger.Dirty() {
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := r.ledger.Sync(storeCtx); err != nil {
		r.recorder.StoreWriteFailed("sync")
		slog.Warn("Poll store still unavailable", "error", err)
		return
	}
	slog.Info("Poll store back in sync")
}
