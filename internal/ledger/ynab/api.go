package ynab

import (
	"context"
	"fmt"
	"time"

	"ynabmetrics/internal/core"
)

// Budget aliases YNAB resolves server side.
const (
	BudgetLastUsed = "last-used"
	BudgetDefault  = "default"
)

type budgetDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

type transactionDTO struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Amount       int64  `json:"amount"`
	PayeeName    string `json:"payee_name"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	AccountID    string `json:"account_id"`
	Deleted      bool   `json:"deleted"`
}

type categoryDTO struct {
	ID         string `json:"id"`
	GroupID    string `json:"category_group_id"`
	Name       string `json:"name"`
	Hidden     bool   `json:"hidden"`
	Budgeted   int64  `json:"budgeted"`
	Balance    int64  `json:"balance"`
	GoalTarget *int64 `json:"goal_target"`
	Deleted    bool   `json:"deleted"`
}

type categoryGroupDTO struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Deleted    bool          `json:"deleted"`
	Categories []categoryDTO `json:"categories"`
}

type accountDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	OnBudget bool   `json:"on_budget"`
	Closed   bool   `json:"closed"`
	Balance  int64  `json:"balance"`
	Deleted  bool   `json:"deleted"`
}

// Budget returns the budget with the given id, or the first budget when id
// is empty. The YNAB aliases last-used and default are passed through.
func (c *Client) Budget(ctx context.Context, id string) (core.Budget, error) {
	if id == BudgetLastUsed || id == BudgetDefault {
		if c.token == "" {
			return core.Budget{}, core.ErrCredentialMissing
		}
		return core.Budget{ID: id, Name: id}, nil
	}

	var data struct {
		Budgets []budgetDTO `json:"budgets"`
	}
	if err := c.get(ctx, "budgets", "/budgets", &data); err != nil {
		return core.Budget{}, err
	}

	for _, b := range data.Budgets {
		if b.Deleted {
			continue
		}
		if id == "" || b.ID == id {
			return core.Budget{ID: b.ID, Name: b.Name}, nil
		}
	}
	if id != "" {
		return core.Budget{}, core.Errorf(core.KindNoBudget, "budget %s not found", id)
	}
	return core.Budget{}, core.ErrNoBudget
}

func (c *Client) Transactions(ctx context.Context, budgetID string) ([]core.Transaction, error) {
	var data struct {
		Transactions []transactionDTO `json:"transactions"`
	}
	if err := c.get(ctx, "transactions", budgetPath(budgetID, "transactions"), &data); err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(data.Transactions))
	for _, t := range data.Transactions {
		if t.Deleted {
			continue
		}
		date, err := time.ParseInLocation(time.DateOnly, t.Date, c.location)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, t.Date, err)
		}
		out = append(out, core.Transaction{
			ID:           t.ID,
			Date:         date,
			Amount:       core.Milliunits(t.Amount),
			CategoryID:   t.CategoryID,
			CategoryName: t.CategoryName,
			PayeeName:    t.PayeeName,
			AccountID:    t.AccountID,
		})
	}
	return out, nil
}

func (c *Client) CategoryGroups(ctx context.Context, budgetID string) ([]core.CategoryGroup, error) {
	var data struct {
		CategoryGroups []categoryGroupDTO `json:"category_groups"`
	}
	if err := c.get(ctx, "categories", budgetPath(budgetID, "categories"), &data); err != nil {
		return nil, err
	}

	out := make([]core.CategoryGroup, 0, len(data.CategoryGroups))
	for _, g := range data.CategoryGroups {
		if g.Deleted {
			continue
		}
		group := core.CategoryGroup{ID: g.ID, Name: g.Name, Categories: make([]core.Category, 0, len(g.Categories))}
		for _, cat := range g.Categories {
			if cat.Deleted {
				continue
			}
			var goal *core.Milliunits
			if cat.GoalTarget != nil {
				v := core.Milliunits(*cat.GoalTarget)
				goal = &v
			}
			group.Categories = append(group.Categories, core.Category{
				ID:         cat.ID,
				Name:       cat.Name,
				GroupID:    cat.GroupID,
				Budgeted:   core.Milliunits(cat.Budgeted),
				Balance:    core.Milliunits(cat.Balance),
				GoalTarget: goal,
			})
		}
		out = append(out, group)
	}
	return out, nil
}

func (c *Client) Accounts(ctx context.Context, budgetID string) ([]core.Account, error) {
	var data struct {
		Accounts []accountDTO `json:"accounts"`
	}
	if err := c.get(ctx, "accounts", budgetPath(budgetID, "accounts"), &data); err != nil {
		return nil, err
	}

	out := make([]core.Account, 0, len(data.Accounts))
	for _, a := range data.Accounts {
		if a.Deleted {
			continue
		}
		out = append(out, core.Account{
			ID:       a.ID,
			Name:     a.Name,
			Type:     core.AccountType(a.Type),
			Balance:  core.Milliunits(a.Balance),
			Closed:   a.Closed,
			OnBudget: a.OnBudget,
		})
	}
	return out, nil
}
