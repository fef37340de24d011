// Package metrics derives spending, goal, savings and net worth figures from
// ledger state and caches each result for a fixed TTL.
package metrics

import (
	"context"
	"fmt"
	"time"

	"ynabmetrics/internal/cache"
	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/log"
)

// Cache keys, one per metric.
const (
	KeySpending     = "spending"
	KeyMonthlyGoals = "monthly_goals"
	KeySavingsRate  = "savings_rate"
	KeyNetWorth     = "net_worth"
)

// Keys lists every metric key in display order.
var Keys = []string{KeySpending, KeyMonthlyGoals, KeySavingsRate, KeyNetWorth}

const envMonthlyCategories = "YNAB_MONTHLY_CATEGORIES"

// Settings carries the raw operator configuration. Values are validated
// when the metric that needs them is computed, so a missing value only
// fails that metric.
type Settings struct {
	BudgetID          string
	MonthlyCategories string
	MonthlyIncome     string
	SavingsAccounts   string
	TTL               time.Duration
}

// ComputeObserver is told how long each recompute took and whether it failed.
type ComputeObserver interface {
	ObserveCompute(metric string, elapsed time.Duration, err error)
}

// Service computes the metrics from the ledger behind one cache entry each.
type Service struct {
	ledger   ledger.Client
	store    *cache.Store
	clock    cache.Clock
	settings Settings
	logger   *log.Logger
	observer ComputeObserver

	spending *cache.Entry[[]SpendingRow]
	goals    *cache.Entry[[]GoalRow]
	savings  *cache.Entry[SavingsRate]
	netWorth *cache.Entry[NetWorth]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentMetrics) }
}

// WithComputeObserver reports every recompute to o.
func WithComputeObserver(o ComputeObserver) Option {
	return func(s *Service) { s.observer = o }
}

// NewService registers one cache entry per metric in store. The store's
// clock also defines "now" for every time window.
func NewService(client ledger.Client, store *cache.Store, settings Settings, opts ...Option) *Service {
	s := &Service{
		ledger:   client,
		store:    store,
		clock:    store.Clock(),
		settings: settings,
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentMetrics),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.spending = cache.Register[[]SpendingRow](store, KeySpending, settings.TTL)
	s.goals = cache.Register[[]GoalRow](store, KeyMonthlyGoals, settings.TTL)
	s.savings = cache.Register[SavingsRate](store, KeySavingsRate, settings.TTL)
	s.netWorth = cache.Register[NetWorth](store, KeyNetWorth, settings.TTL)
	return s
}

// Spending returns the top category groups by expense over the last 30 days.
func (s *Service) Spending(ctx context.Context) ([]SpendingRow, error) {
	now := s.clock.Now()
	return s.spending.GetOrCompute(ctx, func(ctx context.Context) ([]SpendingRow, error) {
		return compute(ctx, s, KeySpending, func(ctx context.Context, budgetID string) ([]SpendingRow, int, error) {
			txs, err := s.ledger.Transactions(ctx, budgetID)
			if err != nil {
				return nil, 0, core.Upstream(err)
			}
			groups, err := s.ledger.CategoryGroups(ctx, budgetID)
			if err != nil {
				return nil, 0, core.Upstream(err)
			}
			rows, err := AggregateSpending(now, txs, groups)
			return rows, len(rows), err
		})
	})
}

// MonthlyGoals returns assigned versus spent for the whitelisted categories.
func (s *Service) MonthlyGoals(ctx context.Context) ([]GoalRow, error) {
	now := s.clock.Now()
	return s.goals.GetOrCompute(ctx, func(ctx context.Context) ([]GoalRow, error) {
		whitelist := core.ParseList(s.settings.MonthlyCategories)
		if len(whitelist) == 0 {
			return nil, core.MissingEnv(envMonthlyCategories)
		}
		return compute(ctx, s, KeyMonthlyGoals, func(ctx context.Context, budgetID string) ([]GoalRow, int, error) {
			txs, err := s.ledger.Transactions(ctx, budgetID)
			if err != nil {
				return nil, 0, core.Upstream(err)
			}
			groups, err := s.ledger.CategoryGroups(ctx, budgetID)
			if err != nil {
				return nil, 0, core.Upstream(err)
			}
			rows := CalculateGoals(now, whitelist, txs, groups)
			return rows, len(rows), nil
		})
	})
}

// SavingsRate returns this month's deposits into the savings accounts
// relative to the declared income.
func (s *Service) SavingsRate(ctx context.Context) (SavingsRate, error) {
	now := s.clock.Now()
	return s.savings.GetOrCompute(ctx, func(ctx context.Context) (SavingsRate, error) {
		income, err := ParseIncome(s.settings.MonthlyIncome)
		if err != nil {
			return SavingsRate{}, err
		}
		names, err := ParseSavingsAccounts(s.settings.SavingsAccounts)
		if err != nil {
			return SavingsRate{}, err
		}
		return compute(ctx, s, KeySavingsRate, func(ctx context.Context, budgetID string) (SavingsRate, int, error) {
			accounts, err := s.ledger.Accounts(ctx, budgetID)
			if err != nil {
				return SavingsRate{}, 0, core.Upstream(err)
			}
			txs, err := s.ledger.Transactions(ctx, budgetID)
			if err != nil {
				return SavingsRate{}, 0, core.Upstream(err)
			}
			res, err := CalculateSavingsRate(now, income, names, accounts, txs)
			return res, len(res.Accounts), err
		})
	})
}

// NetWorth classifies every open account into asset and liability buckets.
func (s *Service) NetWorth(ctx context.Context) (NetWorth, error) {
	return s.netWorth.GetOrCompute(ctx, func(ctx context.Context) (NetWorth, error) {
		return compute(ctx, s, KeyNetWorth, func(ctx context.Context, budgetID string) (NetWorth, int, error) {
			accounts, err := s.ledger.Accounts(ctx, budgetID)
			if err != nil {
				return NetWorth{}, 0, core.Upstream(err)
			}
			res := ClassifyNetWorth(accounts)
			return res, len(core.OpenAccounts(accounts)), nil
		})
	})
}

// CategoryGroups reads the budget's category groups without caching.
func (s *Service) CategoryGroups(ctx context.Context) ([]core.CategoryGroup, error) {
	budget, err := s.ledger.Budget(ctx, s.settings.BudgetID)
	if err != nil {
		return nil, core.Upstream(err)
	}
	groups, err := s.ledger.CategoryGroups(ctx, budget.ID)
	if err != nil {
		return nil, core.Upstream(err)
	}
	return groups, nil
}

// ClearCache drops every cached metric.
func (s *Service) ClearCache() {
	s.store.ClearAll()
	s.logger.Info("Cache cleared", log.FieldOperation, log.OpClear)
}

// ClearMetric drops one cached metric.
func (s *Service) ClearMetric(key string) error {
	if !s.store.Has(key) {
		return fmt.Errorf("unknown metric %q", key)
	}
	s.store.Clear(key)
	s.logger.Info("Cache cleared", log.FieldOperation, log.OpClear, log.FieldCacheKey, key)
	return nil
}

// CacheStatus reports freshness for every metric entry.
func (s *Service) CacheStatus() []cache.Status {
	return s.store.Status()
}

// compute resolves the budget, runs fn and records timing for key.
func compute[T any](ctx context.Context, s *Service, key string, fn func(context.Context, string) (T, int, error)) (T, error) {
	start := time.Now()
	res, rows, err := func() (T, int, error) {
		budget, err := s.ledger.Budget(ctx, s.settings.BudgetID)
		if err != nil {
			var zero T
			return zero, 0, core.Upstream(err)
		}
		return fn(ctx, budget.ID)
	}()
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveCompute(key, elapsed, err)
	}
	if err != nil {
		fields := log.NewFields().WithError(err)
		fields[log.FieldMetric] = key
		fields[log.FieldErrorKind] = string(core.KindOf(err))
		fields[log.FieldDuration] = elapsed.Milliseconds()
		s.logger.ErrorContext(ctx, "Metric computation failed", fields.ToSlice()...)
		return res, err
	}

	fields := log.NewFields().WithMetric(key, rows)
	fields[log.FieldDuration] = elapsed.Milliseconds()
	s.logger.InfoContext(ctx, "Metric computed", fields.ToSlice()...)
	return res, nil
}

// Invalidate drops the named metrics, or all of them when keys is empty.
// Unknown keys are rejected before anything is cleared.
func (s *Service) Invalidate(keys []string) error {
	if len(keys) == 0 {
		s.ClearCache()
		return nil
	}
	for _, key := range keys {
		if !s.store.Has(key) {
			return fmt.Errorf("unknown metric %q", key)
		}
	}
	for _, key := range keys {
		s.store.Clear(key)
	}
	s.logger.Info("Cache invalidated", log.FieldOperation, log.OpClear, "metrics", keys)
	return nil
}
