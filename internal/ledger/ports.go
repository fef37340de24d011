// Package ledger defines the read ports the metric engine uses to pull
// ledger state, and the snapshot format shared by the offline backends.
package ledger

import (
	"context"

	"ynabmetrics/internal/core"
)

// Ports for outbound ledger adapters.
type (
	// BudgetReader resolves the budget to read. An empty id selects the first
	// budget the provider returns; no budgets at all is core.ErrNoBudget.
	BudgetReader interface {
		Budget(ctx context.Context, id string) (core.Budget, error)
	}

	TransactionLister interface {
		Transactions(ctx context.Context, budgetID string) ([]core.Transaction, error)
	}

	// CategoryLister returns category groups with their nested categories,
	// including budgeted, balance and goal fields.
	CategoryLister interface {
		CategoryGroups(ctx context.Context, budgetID string) ([]core.CategoryGroup, error)
	}

	AccountLister interface {
		Accounts(ctx context.Context, budgetID string) ([]core.Account, error)
	}

	// Client is the full surface a ledger backend provides.
	Client interface {
		BudgetReader
		TransactionLister
		CategoryLister
		AccountLister
	}
)
