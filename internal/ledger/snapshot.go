package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ynabmetrics/internal/core"
)

// Snapshot is a complete copy of one budget's ledger. It is the fixture
// format of the memory backend and the import format of the SQLite mirror.
type Snapshot struct {
	Budget         core.Budget          `json:"budget"`
	Accounts       []core.Account       `json:"accounts"`
	CategoryGroups []core.CategoryGroup `json:"category_groups"`
	Transactions   []core.Transaction   `json:"transactions"`
}

// ReadSnapshotFile loads a JSON snapshot from path.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Budget.ID == "" {
		return Snapshot{}, fmt.Errorf("snapshot %s: budget id is required", path)
	}
	return snap, nil
}

// Fetch pulls a complete snapshot of budget id through c.
func Fetch(ctx context.Context, c Client, id string) (Snapshot, error) {
	budget, err := c.Budget(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	accounts, err := c.Accounts(ctx, budget.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("accounts: %w", err)
	}
	groups, err := c.CategoryGroups(ctx, budget.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("category groups: %w", err)
	}
	txs, err := c.Transactions(ctx, budget.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("transactions: %w", err)
	}
	return Snapshot{Budget: budget, Accounts: accounts, CategoryGroups: groups, Transactions: txs}, nil
}
