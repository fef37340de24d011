package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
)

func sampleSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Budget:   core.Budget{ID: "b1", Name: "Home"},
		Accounts: []core.Account{{ID: "acc", Name: "Checking", Type: core.AccountChecking, Balance: 1000}},
		CategoryGroups: []core.CategoryGroup{{
			ID: "g", Name: "Bills",
			Categories: []core.Category{{ID: "c", Name: "Rent", GroupID: "g"}},
		}},
		Transactions: []core.Transaction{{ID: "t", Amount: -5000, AccountID: "acc", CategoryID: "c", CategoryName: "Rent"}},
	}
}

func TestStoreServesSnapshot(t *testing.T) {
	s := New(sampleSnapshot())
	ctx := context.Background()

	b, err := s.Budget(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)

	_, err = s.Budget(ctx, "other")
	assert.ErrorIs(t, err, core.ErrNoBudget)

	snap, err := ledger.Fetch(ctx, s, "b1")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)

	_, err = s.Transactions(ctx, "other")
	assert.Error(t, err)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New(sampleSnapshot())
	groups, err := s.CategoryGroups(context.Background(), "b1")
	require.NoError(t, err)
	groups[0].Categories[0].Name = "changed"

	again, _ := s.CategoryGroups(context.Background(), "b1")
	assert.Equal(t, "Rent", again[0].Categories[0].Name)
}

func TestEmptyStoreHasNoBudget(t *testing.T) {
	_, err := New(ledger.Snapshot{}).Budget(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrNoBudget)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	fixture := `{
  "budget": {"id": "b1", "name": "Home"},
  "accounts": [{"id": "acc", "name": "Checking", "type": "checking", "balance": 250000, "closed": false, "on_budget": true}],
  "category_groups": [],
  "transactions": [{"id": "t1", "date": "2025-06-01T00:00:00Z", "amount": -12340, "account_id": "acc"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	s, err := NewFromFile(path)
	require.NoError(t, err)
	txs, err := s.Transactions(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.Milliunits(-12340), txs[0].Amount)

	_, err = NewFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"budget": {}}`), 0o644))
	_, err = NewFromFile(path)
	assert.ErrorContains(t, err, "budget id is required")
}
