// Package worker turns ledger change notices into cache invalidations.
package worker

import (
	"context"
	"fmt"

	"ynabmetrics/internal/amqp"
	"ynabmetrics/internal/log"
)

// Invalidator drops cached metrics. An empty key list means all of them.
type Invalidator interface {
	Invalidate(keys []string) error
}

// InvalidationObserver counts cache clears by source.
type InvalidationObserver interface {
	CacheInvalidated(source string)
}

// InvalidationWorker applies ledger change notices to the metric cache.
type InvalidationWorker struct {
	invalidator Invalidator
	budgetID    string
	observer    InvalidationObserver
	logger      *log.Logger
}

// NewInvalidationWorker builds a worker for the configured budget. Notices
// for other budgets are acknowledged and ignored.
func NewInvalidationWorker(inv Invalidator, budgetID string, observer InvalidationObserver, logger *log.Logger) *InvalidationWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InvalidationWorker{
		invalidator: inv,
		budgetID:    budgetID,
		observer:    observer,
		logger:      logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleLedgerChanged processes a single ledger change message from AMQP
func (w *InvalidationWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if !w.concerns(msg.BudgetID) {
		w.logger.DebugContext(ctx, "Ignoring change for another budget",
			log.FieldBudgetID, msg.BudgetID)
		return nil
	}

	if err := w.invalidator.Invalidate(msg.Metrics); err != nil {
		return fmt.Errorf("invalidate metrics: %w", err)
	}
	if w.observer != nil {
		w.observer.CacheInvalidated("amqp")
	}

	w.logger.InfoContext(ctx, "Applied ledger change",
		log.FieldBudgetID, msg.BudgetID,
		"metrics", msg.Metrics,
		"sent_at", msg.Timestamp)
	return nil
}

// concerns reports whether a notice for budgetID may affect the cache. An
// unset or aliased local budget cannot be compared, so it matches everything.
func (w *InvalidationWorker) concerns(budgetID string) bool {
	switch w.budgetID {
	case "", "last-used", "default":
		return true
	}
	return budgetID == "" || budgetID == w.budgetID
}
