package metrics

import (
	"slices"
	"strings"

	"ynabmetrics/internal/core"
)

// Bucket names.
const (
	BucketChecking    = "checking"
	BucketSavings     = "savings"
	BucketRetirement  = "retirement"
	BucketInvestment  = "investment"
	BucketProperty    = "property"
	BucketOtherAssets = "other_assets"
	BucketCreditCards = "credit_cards"
	BucketLoans       = "loans"
	BucketOtherDebt   = "other_debt"
)

var (
	assetBuckets     = []string{BucketChecking, BucketSavings, BucketRetirement, BucketInvestment, BucketProperty, BucketOtherAssets}
	liabilityBuckets = []string{BucketCreditCards, BucketLoans, BucketOtherDebt}
)

type side int

const (
	assetSide side = iota
	liabilitySide
)

// classRule assigns an account to a bucket. Keywords, when present, must
// appear in the lower-cased account name.
type classRule struct {
	types    []core.AccountType
	keywords []string
	bucket   string
	side     side
}

// netWorthRules is evaluated top to bottom; the first match wins. Accounts
// that match nothing fall back to other_assets.
var netWorthRules = []classRule{
	{types: []core.AccountType{core.AccountChecking}, bucket: BucketChecking, side: assetSide},
	{types: []core.AccountType{core.AccountSavings}, bucket: BucketSavings, side: assetSide},
	{types: []core.AccountType{core.AccountCreditCard}, bucket: BucketCreditCards, side: liabilitySide},
	{
		types:  []core.AccountType{core.AccountAutoLoan, core.AccountStudentLoan, core.AccountPersonalLoan, core.AccountMortgageLoan},
		bucket: BucketLoans,
		side:   liabilitySide,
	},
	{
		types:    []core.AccountType{core.AccountOtherAsset},
		keywords: []string{"401k", "403b", "ira", "roth", "pension"},
		bucket:   BucketRetirement,
		side:     assetSide,
	},
	{
		types:    []core.AccountType{core.AccountOtherAsset},
		keywords: []string{"investment", "brokerage", "stock", "etf", "mutual"},
		bucket:   BucketInvestment,
		side:     assetSide,
	},
	{
		types:    []core.AccountType{core.AccountOtherAsset},
		keywords: []string{"house", "home", "property", "real estate", "car", "vehicle"},
		bucket:   BucketProperty,
		side:     assetSide,
	},
	{types: []core.AccountType{core.AccountOtherAsset}, bucket: BucketOtherAssets, side: assetSide},
	{types: []core.AccountType{core.AccountOtherDebt}, bucket: BucketOtherDebt, side: liabilitySide},
}

func (r classRule) matches(a core.Account, lowerName string) bool {
	if !slices.Contains(r.types, a.Type) {
		return false
	}
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}

// Classify returns the bucket an account belongs to and whether it sits on
// the liability side.
func Classify(a core.Account) (bucket string, liability bool) {
	name := strings.ToLower(a.Name)
	for _, r := range netWorthRules {
		if r.matches(a, name) {
			return r.bucket, r.side == liabilitySide
		}
	}
	return BucketOtherAssets, false
}

// NetWorthAccount is an open account as listed in its bucket.
type NetWorthAccount struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Balance          float64 `json:"balance"`
	BalanceFormatted string  `json:"balance_formatted"`
}

// NetWorthBucket groups the accounts of one asset or liability class.
type NetWorthBucket struct {
	Name           string            `json:"name"`
	Total          float64           `json:"total"`
	TotalFormatted string            `json:"total_formatted"`
	Accounts       []NetWorthAccount `json:"accounts"`
}

// NetWorth is the classified balance sheet.
type NetWorth struct {
	NetWorth                  float64          `json:"net_worth"`
	NetWorthFormatted         string           `json:"net_worth_formatted"`
	TotalAssets               float64          `json:"total_assets"`
	TotalAssetsFormatted      string           `json:"total_assets_formatted"`
	TotalLiabilities          float64          `json:"total_liabilities"`
	TotalLiabilitiesFormatted string           `json:"total_liabilities_formatted"`
	Assets                    []NetWorthBucket `json:"assets"`
	Liabilities               []NetWorthBucket `json:"liabilities"`
}

type bucketAcc struct {
	total    core.Milliunits
	accounts []NetWorthAccount
}

// ClassifyNetWorth buckets every open account and totals both sides.
//
// An asset-side account with a non-positive balance stays listed in its
// bucket but adds nothing to the bucket total; its magnitude counts toward
// total liabilities instead. Liability buckets always sum magnitudes.
func ClassifyNetWorth(accounts []core.Account) NetWorth {
	buckets := make(map[string]*bucketAcc, len(assetBuckets)+len(liabilityBuckets))
	for _, name := range slices.Concat(assetBuckets, liabilityBuckets) {
		buckets[name] = &bucketAcc{accounts: []NetWorthAccount{}}
	}

	var assets, liabilities core.Milliunits
	for _, a := range core.OpenAccounts(accounts) {
		bucket, liability := Classify(a)
		b := buckets[bucket]
		b.accounts = append(b.accounts, NetWorthAccount{
			Name:             a.Name,
			Type:             string(a.Type),
			Balance:          a.Balance.Decimal().InexactFloat64(),
			BalanceFormatted: a.Balance.Format(0),
		})

		switch {
		case liability:
			liabilities += a.Balance.Abs()
			b.total += a.Balance.Abs()
		case a.Balance > 0:
			assets += a.Balance
			b.total += a.Balance
		default:
			liabilities += a.Balance.Abs()
		}
	}

	net := assets - liabilities
	return NetWorth{
		NetWorth:                  net.Decimal().InexactFloat64(),
		NetWorthFormatted:         net.Format(0),
		TotalAssets:               assets.Decimal().InexactFloat64(),
		TotalAssetsFormatted:      assets.Format(0),
		TotalLiabilities:          liabilities.Decimal().InexactFloat64(),
		TotalLiabilitiesFormatted: liabilities.Format(0),
		Assets:                    bucketList(assetBuckets, buckets),
		Liabilities:               bucketList(liabilityBuckets, buckets),
	}
}

func bucketList(order []string, buckets map[string]*bucketAcc) []NetWorthBucket {
	out := make([]NetWorthBucket, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		out = append(out, NetWorthBucket{
			Name:           name,
			Total:          b.total.Decimal().InexactFloat64(),
			TotalFormatted: b.total.Format(0),
			Accounts:       b.accounts,
		})
	}
	return out
}
