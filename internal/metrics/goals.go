package metrics

import (
	"time"

	"ynabmetrics/internal/core"
)

// GoalRow compares what was assigned to a category this month with what was spent.
type GoalRow struct {
	CategoryName        string  `json:"category_name"`
	Spent               float64 `json:"spent"`
	SpentFormatted      string  `json:"spent_formatted"`
	Assigned            float64 `json:"assigned"`
	AssignedFormatted   string  `json:"assigned_formatted"`
	Available           float64 `json:"available"`
	AvailableFormatted  string  `json:"available_formatted"`
	Difference          float64 `json:"difference"`
	DifferenceFormatted string  `json:"difference_formatted"`
}

// CalculateGoals builds one row per whitelisted category, in whitelist order,
// for the calendar month containing now. Names missing from the budget are
// skipped. The result is empty when nothing was spent this month.
func CalculateGoals(now time.Time, whitelist []string, txs []core.Transaction, groups []core.CategoryGroup) []GoalRow {
	start := core.StartOfMonth(now)

	spent := make(map[string]core.Milliunits)
	expenses := 0
	for _, tx := range txs {
		if tx.Date.Before(start) || !tx.IsExpense() {
			continue
		}
		expenses++
		if tx.IsUncategorized() {
			continue
		}
		spent[tx.CategoryID] += tx.Amount.Abs()
	}
	if expenses == 0 {
		return []GoalRow{}
	}

	wanted := make(map[string]bool, len(whitelist))
	for _, name := range whitelist {
		wanted[name] = true
	}
	byName := make(map[string]core.Category)
	for _, g := range groups {
		for _, c := range g.Categories {
			if wanted[c.Name] {
				byName[c.Name] = c
			}
		}
	}

	rows := make([]GoalRow, 0, len(whitelist))
	for _, name := range whitelist {
		c, ok := byName[name]
		if !ok {
			continue
		}
		s := spent[c.ID]
		diff := goalDifference(c.Budgeted, c.Balance, s)
		rows = append(rows, GoalRow{
			CategoryName:        name,
			Spent:               s.Decimal().InexactFloat64(),
			SpentFormatted:      s.Format(0),
			Assigned:            c.Budgeted.Decimal().InexactFloat64(),
			AssignedFormatted:   c.Budgeted.Format(0),
			Available:           c.Balance.Decimal().InexactFloat64(),
			AvailableFormatted:  c.Balance.Format(0),
			Difference:          diff.Decimal().InexactFloat64(),
			DifferenceFormatted: diff.Format(2),
		})
	}
	return rows
}

// goalDifference is assigned minus spent. A category whose money was moved
// out and that now sits at exactly zero is not overspent.
func goalDifference(assigned, available, spent core.Milliunits) core.Milliunits {
	if assigned < 0 && available == 0 {
		return 0
	}
	return assigned - spent
}
