package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ynabmetrics/internal/core"
)

const (
	spendingWindowDays = 30
	spendingTopGroups  = 5
)

var hundred = decimal.NewFromInt(100)

// SpendingRow is one category group in the spending breakdown.
type SpendingRow struct {
	CategoryGroup   string  `json:"category_group"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amount_formatted"`
	Percentage      float64 `json:"percentage"`
}

// AggregateSpending returns the top category groups by expense over the 30
// days before now. Percentages are taken against every expense in the
// window, including transactions whose category belongs to no group and the
// internal master group, which is never listed.
func AggregateSpending(now time.Time, txs []core.Transaction, groups []core.CategoryGroup) ([]SpendingRow, error) {
	if len(txs) == 0 {
		return nil, core.ErrNoData
	}

	groupOf := make(map[string]string)
	for _, g := range groups {
		for _, c := range g.Categories {
			groupOf[c.ID] = g.Name
		}
	}

	cutoff := now.AddDate(0, 0, -spendingWindowDays)
	var total core.Milliunits
	totals := make(map[string]core.Milliunits)
	for _, tx := range txs {
		if tx.Date.Before(cutoff) || !tx.IsExpense() || tx.IsUncategorized() {
			continue
		}
		amount := tx.Amount.Abs()
		total += amount
		if name, ok := groupOf[tx.CategoryID]; ok {
			totals[name] += amount
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := totals[names[i]], totals[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})

	rows := make([]SpendingRow, 0, spendingTopGroups)
	for _, name := range names {
		if name == core.InternalMasterCategory {
			continue
		}
		if len(rows) == spendingTopGroups {
			break
		}
		amount := totals[name]
		rows = append(rows, SpendingRow{
			CategoryGroup:   name,
			Amount:          amount.Decimal().InexactFloat64(),
			AmountFormatted: amount.Format(0),
			Percentage:      percentOf(amount.Decimal(), total.Decimal()),
		})
	}
	return rows, nil
}

// percentOf returns part/whole*100 rounded to one decimal, or 0 for an empty whole.
func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return core.RoundTo(part.Mul(hundred).Div(whole), 1)
}
