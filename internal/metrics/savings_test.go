package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ynabmetrics/internal/core"
)

func savingsAccounts() []core.Account {
	return []core.Account{
		{ID: "chk", Name: "Checking", Type: core.AccountChecking, Balance: 2000000},
		{ID: "hys", Name: "High Yield", Type: core.AccountSavings, Balance: 10000000},
		{ID: "emg", Name: "Emergency", Type: core.AccountSavings, Balance: 5500000},
		{ID: "old", Name: "Old Savings", Type: core.AccountSavings, Balance: 300000, Closed: true},
	}
}

func deposit(id, account string, amount core.Milliunits, date time.Time) core.Transaction {
	return core.Transaction{ID: id, AccountID: account, Amount: amount, Date: date}
}

func TestCalculateSavingsRate(t *testing.T) {
	txs := []core.Transaction{
		deposit("1", "hys", 500000, day(-3)),
		deposit("2", "emg", 250000, day(-10)),
		deposit("out", "hys", -100000, day(-2)),
		deposit("last-month", "hys", 900000, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)),
		deposit("checking", "chk", 3000000, day(-1)),
	}

	res, err := CalculateSavingsRate(refNow, decimal.NewFromInt(5000), []string{"High Yield", "Emergency"}, savingsAccounts(), txs)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.SavingsRate)
	assert.Equal(t, "15.0%", res.SavingsRateFormatted)
	assert.Equal(t, 750.0, res.MonthlySavings)
	assert.Equal(t, "750", res.MonthlySavingsFormatted)
	assert.Equal(t, 5000.0, res.MonthlyIncome)
	assert.Equal(t, "5,000", res.MonthlyIncomeFormatted)
	assert.Equal(t, 15500.0, res.TotalSavingsBalance)
	assert.Equal(t, "15,500", res.TotalSavingsBalanceFormatted)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "High Yield", res.Accounts[0].Name)
	assert.Equal(t, "Emergency", res.Accounts[1].Name)
}

func TestCalculateSavingsRateIgnoresClosedAccounts(t *testing.T) {
	_, err := CalculateSavingsRate(refNow, decimal.NewFromInt(5000), []string{"Old Savings", "Nope"}, savingsAccounts(), nil)
	require.ErrorIs(t, err, core.ErrNoMatchingAccounts)
	assert.Contains(t, err.Error(), "Old Savings, Nope")
}

func TestCalculateSavingsRateZeroIncomeGuard(t *testing.T) {
	res, err := CalculateSavingsRate(refNow, decimal.Zero, []string{"High Yield"}, savingsAccounts(),
		[]core.Transaction{deposit("1", "hys", 500000, day(-1))})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.SavingsRate)
	assert.Equal(t, "0.0%", res.SavingsRateFormatted)
}

func TestCalculateSavingsRateRounding(t *testing.T) {
	res, err := CalculateSavingsRate(refNow, decimal.NewFromInt(3000), []string{"High Yield"}, savingsAccounts(),
		[]core.Transaction{deposit("1", "hys", 1000000, day(-1))})
	require.NoError(t, err)
	assert.Equal(t, 33.3, res.SavingsRate)
	assert.Equal(t, "33.3%", res.SavingsRateFormatted)
}

func TestParseIncome(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		kind core.ErrorKind
	}{
		{name: "plain", raw: "5000", want: "5000"},
		{name: "decimal", raw: " 4250.50 ", want: "4250.5"},
		{name: "grouped", raw: "5,000", want: "5000"},
		{name: "missing", raw: "", kind: core.KindConfigMissing},
		{name: "not a number", raw: "lots", kind: core.KindConfigInvalid},
		{name: "zero", raw: "0", kind: core.KindConfigInvalid},
		{name: "negative", raw: "-10", kind: core.KindConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIncome(tt.raw)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, core.KindOf(err))
				assert.Contains(t, err.Error(), "YNAB_MONTHLY_INCOME")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseSavingsAccounts(t *testing.T) {
	names, err := ParseSavingsAccounts(" High Yield , Emergency,, ")
	require.NoError(t, err)
	assert.Equal(t, []string{"High Yield", "Emergency"}, names)

	_, err = ParseSavingsAccounts(" , ")
	require.ErrorIs(t, err, core.ErrConfigMissing)
	assert.Equal(t, "YNAB_SAVINGS_ACCOUNTS environment variable is not set", err.Error())
}
