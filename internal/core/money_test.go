package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilliunitsDecimal(t *testing.T) {
	assert.Equal(t, "12.345", Milliunits(12345).Decimal().String())
	assert.Equal(t, "-0.5", Milliunits(-500).Decimal().String())
	assert.Equal(t, Milliunits(200), Milliunits(-200).Abs())
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out Milliunits
		ok  bool
	}{
		{"1", 1000, true},
		{"1.23", 1230, true},
		{"1,234.56", 1234560, true},
		{"$12", 12000, true},
		{"-3.5", -3500, true},
		{"(12.30)", -12300, true},
		{" 0.0004 ", 0, true},
		{"0.0005", 1, true},
		{"", 0, false},
		{"abc", 0, false},
		{"$", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.out, got, tc.in)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in     string
		places int32
		want   string
	}{
		{"0", 0, "0"},
		{"999", 0, "999"},
		{"1234.4", 0, "1,234"},
		{"1234567.891", 2, "1,234,567.89"},
		{"-1234.5", 2, "-1,234.50"},
		{"2.5", 0, "2"},
		{"3.5", 0, "4"},
		{"-0.4", 0, "0"},
		{"-0.004", 2, "0.00"},
		{"1234567.895", 2, "1,234,567.90"},
		{"98765432.1", 0, "98,765,432"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(decimal.RequireFromString(tc.in), tc.places), tc.in)
	}
	assert.Equal(t, "-12.35", Milliunits(-12345).Format(2))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 15.0, RoundTo(decimal.RequireFromString("15"), 1))
	assert.Equal(t, 33.3, RoundTo(decimal.NewFromInt(100).Div(decimal.NewFromInt(3)), 1))
	assert.Equal(t, 0.2, RoundTo(decimal.RequireFromString("0.25"), 1))
}
