package report

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is configured
const DefaultCurrency = "INR"

// FormatMoney renders an amount in the currency's display format, e.g. ₹1,234.50.
// Unknown codes fall back to two decimal places with the code as prefix.
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}

	cur := money.GetCurrency(code)
	if cur == nil {
		return code + " " + amount.StringFixed(2)
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatPercent renders a signed percentage with two decimals, e.g. +10.00%
func FormatPercent(pct decimal.Decimal) string {
	s := pct.StringFixed(2)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// FormatSignedMoney prefixes gains with + so best/worst lines read naturally
func FormatSignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsNegative() {
		return FormatMoney(amount, currency)
	}
	return "+" + FormatMoney(amount, currency)
}
