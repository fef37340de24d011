package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ynabmetrics/internal/config"
	"ynabmetrics/internal/core"
	"ynabmetrics/internal/log"
	"ynabmetrics/internal/storage"
)

const snapshotJSON = `{
  "budget": {"id": "6f1f7a42-2b1c-4a4c-9d5e-0c2d8c1e5b77", "name": "Household"},
  "accounts": [
    {"id": "chk", "name": "Checking", "type": "checking", "balance": 1000000, "closed": false, "on_budget": true}
  ],
  "category_groups": [
    {"id": "g1", "name": "Bills", "categories": [{"id": "rent", "name": "Rent", "category_group_id": "g1", "budgeted": 1200000, "balance": 0}]}
  ],
  "transactions": [
    {"id": "t1", "date": "2025-06-01T00:00:00Z", "amount": -1200000, "category_id": "rent", "category_name": "Rent", "account_id": "chk"}
  ]
}`

func TestRunImportsFileIntoMirror(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(file, []byte(snapshotJSON), 0o644))
	dbPath := filepath.Join(dir, "mirror", "ledger.db")

	err := run(context.Background(), &config.Config{}, options{source: "file", file: file, dbPath: dbPath}, log.Discard())
	require.NoError(t, err)

	db, err := storage.NewSQLiteLedger(dbPath, log.Discard())
	require.NoError(t, err)
	defer db.Close()

	budget, err := db.Budget(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Household", budget.Name)

	txs, err := db.Transactions(context.Background(), budget.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.Milliunits(-1200000), txs[0].Amount)
}

func TestRunPublishWithoutAMQP(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(file, []byte(snapshotJSON), 0o644))

	err := run(context.Background(), &config.Config{}, options{
		source:  "file",
		file:    file,
		dbPath:  filepath.Join(dir, "ledger.db"),
		publish: true,
	}, log.Discard())
	assert.EqualError(t, err, "publish requested but AMQP_URL is not set")
}

func TestLoadSnapshotErrors(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	_, err := loadSnapshot(ctx, cfg, options{source: "csv"}, log.Discard())
	assert.EqualError(t, err, `unknown source "csv": must be file, ynab or sheets`)

	_, err = loadSnapshot(ctx, cfg, options{source: "file"}, log.Discard())
	assert.Error(t, err)

	_, err = loadSnapshot(ctx, cfg, options{source: "ynab"}, log.Discard())
	assert.ErrorIs(t, err, core.ErrCredentialMissing)
}
