package metrics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ynabmetrics/internal/core"
)

const (
	envMonthlyIncome   = "YNAB_MONTHLY_INCOME"
	envSavingsAccounts = "YNAB_SAVINGS_ACCOUNTS"
)

// SavingsAccount is one configured savings account and its balance.
type SavingsAccount struct {
	Name             string  `json:"name"`
	Balance          float64 `json:"balance"`
	BalanceFormatted string  `json:"balance_formatted"`
}

// SavingsRate is the savings rate result with its formatted twins.
type SavingsRate struct {
	SavingsRate                  float64          `json:"savings_rate"`
	SavingsRateFormatted         string           `json:"savings_rate_formatted"`
	MonthlySavings               float64          `json:"monthly_savings"`
	MonthlySavingsFormatted      string           `json:"monthly_savings_formatted"`
	MonthlyIncome                float64          `json:"monthly_income"`
	MonthlyIncomeFormatted       string           `json:"monthly_income_formatted"`
	TotalSavingsBalance          float64          `json:"total_savings_balance"`
	TotalSavingsBalanceFormatted string           `json:"total_savings_balance_formatted"`
	Accounts                     []SavingsAccount `json:"accounts"`
}

// ParseIncome validates the configured monthly income.
func ParseIncome(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, core.MissingEnv(envMonthlyIncome)
	}
	income, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, core.Errorf(core.KindConfigInvalid, "%s must be a number, got %q", envMonthlyIncome, raw)
	}
	if !income.IsPositive() {
		return decimal.Zero, core.Errorf(core.KindConfigInvalid, "%s must be greater than zero, got %q", envMonthlyIncome, raw)
	}
	return income, nil
}

// ParseSavingsAccounts validates the configured savings account names.
func ParseSavingsAccounts(raw string) ([]string, error) {
	names := core.ParseList(raw)
	if len(names) == 0 {
		return nil, core.MissingEnv(envSavingsAccounts)
	}
	return names, nil
}

// CalculateSavingsRate relates this month's deposits into the named savings
// accounts to the declared monthly income. Only open accounts count.
func CalculateSavingsRate(now time.Time, income decimal.Decimal, names []string, accounts []core.Account, txs []core.Transaction) (SavingsRate, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var (
		balance core.Milliunits
		listed  []SavingsAccount
		ids     = make(map[string]bool)
	)
	for _, a := range core.OpenAccounts(accounts) {
		if !wanted[a.Name] {
			continue
		}
		ids[a.ID] = true
		balance += a.Balance
		listed = append(listed, SavingsAccount{
			Name:             a.Name,
			Balance:          a.Balance.Decimal().InexactFloat64(),
			BalanceFormatted: a.Balance.Format(0),
		})
	}
	if len(ids) == 0 {
		return SavingsRate{}, core.Errorf(core.KindNoMatchingAccounts,
			"no open accounts match %s (%s)", envSavingsAccounts, strings.Join(names, ", "))
	}

	start := core.StartOfMonth(now)
	end := start.AddDate(0, 1, 0)
	var deposits core.Milliunits
	for _, tx := range txs {
		if !ids[tx.AccountID] || tx.Amount <= 0 {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		deposits += tx.Amount
	}

	rate := decimal.Zero
	if !income.IsZero() {
		rate = deposits.Decimal().Mul(hundred).Div(income).RoundBank(1)
	}

	return SavingsRate{
		SavingsRate:                  rate.InexactFloat64(),
		SavingsRateFormatted:         rate.StringFixed(1) + "%",
		MonthlySavings:               deposits.Decimal().InexactFloat64(),
		MonthlySavingsFormatted:      deposits.Format(0),
		MonthlyIncome:                income.InexactFloat64(),
		MonthlyIncomeFormatted:       core.FormatAmount(income, 0),
		TotalSavingsBalance:          balance.Decimal().InexactFloat64(),
		TotalSavingsBalanceFormatted: balance.Format(0),
		Accounts:                     listed,
	}, nil
}
