package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ynabmetrics/internal/core"
)

var refNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	d := refNow.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func expense(id, categoryID, categoryName string, amount core.Milliunits, date time.Time) core.Transaction {
	return core.Transaction{ID: id, Date: date, Amount: -amount, CategoryID: categoryID, CategoryName: categoryName, AccountID: "checking"}
}

func group(name string, categoryIDs ...string) core.CategoryGroup {
	g := core.CategoryGroup{ID: "g-" + name, Name: name}
	for _, id := range categoryIDs {
		g.Categories = append(g.Categories, core.Category{ID: id, Name: id, GroupID: g.ID})
	}
	return g
}

func sumPercent(rows []SpendingRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.Percentage
	}
	return total
}

func TestAggregateSpendingPercentagesSumTo100(t *testing.T) {
	groups := []core.CategoryGroup{group("Bills", "rent"), group("Food", "groceries", "dining"), group("Fun", "games")}
	txs := []core.Transaction{
		expense("1", "rent", "rent", 500000, day(-1)),
		expense("2", "groceries", "groceries", 200000, day(-2)),
		expense("3", "dining", "dining", 100000, day(-3)),
		expense("4", "games", "games", 200000, day(-4)),
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Bills", rows[0].CategoryGroup)
	assert.Equal(t, 500.0, rows[0].Amount)
	assert.Equal(t, "500", rows[0].AmountFormatted)
	assert.Equal(t, 50.0, rows[0].Percentage)
	assert.Equal(t, "Food", rows[1].CategoryGroup)
	assert.Equal(t, 30.0, rows[1].Percentage)
	assert.Equal(t, "Fun", rows[2].CategoryGroup)
	assert.Equal(t, 20.0, rows[2].Percentage)
	assert.InDelta(t, 100.0, sumPercent(rows), 1e-9)
}

func TestAggregateSpendingExcludesInternalMasterCategory(t *testing.T) {
	groups := []core.CategoryGroup{group(core.InternalMasterCategory, "inflow"), group("Bills", "rent")}
	txs := []core.Transaction{
		expense("1", "inflow", "Inflow: Ready to Assign", 900000, day(-1)),
		expense("2", "rent", "rent", 100000, day(-1)),
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bills", rows[0].CategoryGroup)
	// The hidden group still counts toward the whole.
	assert.Equal(t, 10.0, rows[0].Percentage)
	for _, r := range rows {
		assert.NotEqual(t, core.InternalMasterCategory, r.CategoryGroup)
	}
}

func TestAggregateSpendingTopFive(t *testing.T) {
	var groups []core.CategoryGroup
	var txs []core.Transaction
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		groups = append(groups, group(name, name))
		txs = append(txs, expense(name, name, name, core.Milliunits(70000-i*10000), day(-1)))
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "A", rows[0].CategoryGroup)
	assert.Equal(t, "E", rows[4].CategoryGroup)
	assert.LessOrEqual(t, sumPercent(rows), 100.0)
}

func TestAggregateSpendingFilters(t *testing.T) {
	groups := []core.CategoryGroup{group("Bills", "rent"), group("Food", "groceries")}
	cutoff := refNow.AddDate(0, 0, -30)
	txs := []core.Transaction{
		expense("old", "rent", "rent", 999000, cutoff.Add(-time.Second)),
		expense("edge", "rent", "rent", 10000, cutoff),
		{ID: "income", Date: day(-1), Amount: 500000, CategoryID: "groceries", CategoryName: "groceries"},
		expense("uncat", "", core.UncategorizedCategory, 70000, day(-1)),
		expense("food", "groceries", "groceries", 30000, day(0)),
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Food", rows[0].CategoryGroup)
	assert.Equal(t, 75.0, rows[0].Percentage)
	assert.Equal(t, "Bills", rows[1].CategoryGroup)
	assert.Equal(t, 25.0, rows[1].Percentage)
}

func TestAggregateSpendingUnmappedCountsInDenominator(t *testing.T) {
	groups := []core.CategoryGroup{group("Bills", "rent")}
	txs := []core.Transaction{
		expense("1", "rent", "rent", 30000, day(-1)),
		expense("2", "orphan", "Orphan", 10000, day(-1)),
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 75.0, rows[0].Percentage)
}

func TestAggregateSpendingTiesBreakByName(t *testing.T) {
	groups := []core.CategoryGroup{group("Zoo", "z"), group("Alpha", "a")}
	txs := []core.Transaction{
		expense("1", "z", "z", 10000, day(-1)),
		expense("2", "a", "a", 10000, day(-1)),
	}

	rows, err := AggregateSpending(refNow, txs, groups)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha", rows[0].CategoryGroup)
	assert.Equal(t, "Zoo", rows[1].CategoryGroup)
}

func TestAggregateSpendingNoData(t *testing.T) {
	_, err := AggregateSpending(refNow, nil, nil)
	require.ErrorIs(t, err, core.ErrNoData)
	assert.Equal(t, "No transactions found", err.Error())
}

func TestAggregateSpendingNothingInWindow(t *testing.T) {
	txs := []core.Transaction{expense("1", "rent", "rent", 10000, day(-90))}

	rows, err := AggregateSpending(refNow, txs, []core.CategoryGroup{group("Bills", "rent")})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestAggregateSpendingFormatting(t *testing.T) {
	txs := []core.Transaction{expense("1", "rent", "rent", 1234500, day(-1))}

	rows, err := AggregateSpending(refNow, txs, []core.CategoryGroup{group("Bills", "rent")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1234.5, rows[0].Amount)
	assert.Equal(t, "1,234", rows[0].AmountFormatted)
	assert.Equal(t, 100.0, rows[0].Percentage)
}
