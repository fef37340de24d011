package core

import (
	"strings"
	"time"
)

// AccountType mirrors the ledger provider's account type strings.
type AccountType string

const (
	AccountChecking     AccountType = "checking"
	AccountSavings      AccountType = "savings"
	AccountCreditCard   AccountType = "creditCard"
	AccountAutoLoan     AccountType = "autoLoan"
	AccountStudentLoan  AccountType = "studentLoan"
	AccountPersonalLoan AccountType = "personalLoan"
	AccountMortgageLoan AccountType = "mortgageLoan"
	AccountOtherAsset   AccountType = "otherAsset"
	AccountOtherDebt    AccountType = "otherDebt"
)

// Names the ledger uses for special categories and groups.
const (
	UncategorizedCategory  = "Uncategorized"
	InternalMasterCategory = "Internal Master Category"
)

type (
	Budget struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID           string     `json:"id"`
		Date         time.Time  `json:"date"`
		Amount       Milliunits `json:"amount"`
		CategoryID   string     `json:"category_id,omitempty"`
		CategoryName string     `json:"category_name,omitempty"`
		PayeeName    string     `json:"payee_name,omitempty"`
		AccountID    string     `json:"account_id"`
	}

	Account struct {
		ID       string      `json:"id"`
		Name     string      `json:"name"`
		Type     AccountType `json:"type"`
		Balance  Milliunits  `json:"balance"`
		Closed   bool        `json:"closed"`
		OnBudget bool        `json:"on_budget"`
	}

	Category struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		GroupID    string      `json:"category_group_id"`
		Budgeted   Milliunits  `json:"budgeted"`
		Balance    Milliunits  `json:"balance"`
		GoalTarget *Milliunits `json:"goal_target,omitempty"`
	}

	CategoryGroup struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Categories []Category `json:"categories"`
	}
)

// IsExpense reports whether the transaction moves money out of the budget.
func (t Transaction) IsExpense() bool {
	return t.Amount < 0
}

// IsUncategorized reports whether the ledger left the transaction without a category.
func (t Transaction) IsUncategorized() bool {
	return t.CategoryName == UncategorizedCategory
}

// HasGoal reports whether a goal target is set on the category.
func (c Category) HasGoal() bool {
	return c.GoalTarget != nil
}

// OpenAccounts returns the accounts that are not closed, preserving order.
func OpenAccounts(accounts []Account) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Closed {
			continue
		}
		out = append(out, a)
	}
	return out
}

// StartOfMonth returns 00:00 on the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// ParseList splits a comma separated value, trimming blanks and dropping empties.
// Order is preserved.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
