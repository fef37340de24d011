// Package storage keeps a local SQLite mirror of ledger snapshots that can
// serve as a ledger backend when the provider should not be queried live.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteLedger struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var _ ledger.Client = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens (creating if needed) the mirror at dbPath and runs
// pending migrations.
func NewSQLiteLedger(dbPath string, logger *log.Logger) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SQLiteLedger{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (s *SQLiteLedger) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Budget returns the budget with id, or the earliest imported budget when
// id is empty.
func (s *SQLiteLedger) Budget(ctx context.Context, id string) (core.Budget, error) {
	var (
		b   core.Budget
		row *sql.Row
	)
	if id == "" {
		row = s.db.QueryRowContext(ctx, `SELECT id, name FROM budgets ORDER BY rowid LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT id, name FROM budgets WHERE id = ?`, id)
	}
	if err := row.Scan(&b.ID, &b.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if id != "" {
				return core.Budget{}, core.Errorf(core.KindNoBudget, "budget %s not found", id)
			}
			return core.Budget{}, core.ErrNoBudget
		}
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLiteLedger) Transactions(ctx context.Context, budgetID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, category_id, category_name, payee_name, account_id
		FROM transactions WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			date string
		)
		if err := rows.Scan(&t.ID, &date, &t.Amount, &t.CategoryID, &t.CategoryName, &t.PayeeName, &t.AccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, date, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteLedger) CategoryGroups(ctx context.Context, budgetID string) ([]core.CategoryGroup, error) {
	groupRows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM category_groups WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	defer groupRows.Close()

	var groups []core.CategoryGroup
	index := make(map[string]int)
	for groupRows.Next() {
		var g core.CategoryGroup
		if err := groupRows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		g.Categories = []core.Category{}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := groupRows.Err(); err != nil {
		return nil, err
	}

	catRows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, name, budgeted, balance, goal_target
		FROM categories WHERE budget_id = ? ORDER BY group_id, position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var (
			c    core.Category
			goal sql.NullInt64
		)
		if err := catRows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Budgeted, &c.Balance, &goal); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if goal.Valid {
			v := core.Milliunits(goal.Int64)
			c.GoalTarget = &v
		}
		i, ok := index[c.GroupID]
		if !ok {
			continue
		}
		groups[i].Categories = append(groups[i].Categories, c)
	}
	return groups, catRows.Err()
}

func (s *SQLiteLedger) Accounts(ctx context.Context, budgetID string) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, balance, closed, on_budget
		FROM accounts WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.Closed, &a.OnBudget); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ImportSnapshot replaces everything stored for the snapshot's budget in a
// single transaction.
func (s *SQLiteLedger) ImportSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	if snap.Budget.ID == "" {
		return errors.New("snapshot budget id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	budgetID := snap.Budget.ID
	for _, table := range []string{"transactions", "categories", "category_groups", "accounts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE budget_id = ?`, budgetID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budgets (id, name, imported_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, imported_at = excluded.imported_at`,
		budgetID, snap.Budget.Name, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	for i, a := range snap.Accounts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (budget_id, id, position, name, type, balance, closed, on_budget)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			budgetID, a.ID, i, a.Name, string(a.Type), int64(a.Balance), a.Closed, a.OnBudget); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	for gi, g := range snap.CategoryGroups {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO category_groups (budget_id, id, position, name) VALUES (?, ?, ?, ?)`,
			budgetID, g.ID, gi, g.Name); err != nil {
			return fmt.Errorf("insert category group %s: %w", g.ID, err)
		}
		for ci, c := range g.Categories {
			var goal sql.NullInt64
			if c.GoalTarget != nil {
				goal = sql.NullInt64{Int64: int64(*c.GoalTarget), Valid: true}
			}
			groupID := c.GroupID
			if groupID == "" {
				groupID = g.ID
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO categories (budget_id, id, group_id, position, name, budgeted, balance, goal_target)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				budgetID, c.ID, groupID, ci, c.Name, int64(c.Budgeted), int64(c.Balance), goal); err != nil {
				return fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}
	}

	for i, t := range snap.Transactions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (budget_id, id, position, date, amount, category_id, category_name, payee_name, account_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			budgetID, t.ID, i, t.Date.Format(time.RFC3339), int64(t.Amount),
			t.CategoryID, t.CategoryName, t.PayeeName, t.AccountID); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Ledger snapshot imported",
		log.FieldBudgetID, budgetID,
		log.FieldOperation, log.OpImport,
		"accounts", len(snap.Accounts),
		"category_groups", len(snap.CategoryGroups),
		log.FieldRows, len(snap.Transactions))
	return nil
}
