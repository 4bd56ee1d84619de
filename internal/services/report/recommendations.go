package report

import (
	"github.com/shopspring/decimal"
)

var (
	profitBookingThreshold = decimal.NewFromInt(1000)
	lossReviewThreshold    = decimal.NewFromInt(-1000)
)

// minDiversifiedHoldings is the holding count below which diversification is suggested
const minDiversifiedHoldings = 5

// Recommendations returns the rule-based advice lines for a portfolio
func Recommendations(totalPnL decimal.Decimal, holdingsCount int) []string {
	var recs []string

	switch {
	case totalPnL.GreaterThan(profitBookingThreshold):
		recs = append(recs, "Portfolio showing strong performance. Consider partial profit booking.")
	case totalPnL.LessThan(lossReviewThreshold):
		recs = append(recs, "Portfolio showing losses. Review and consider rebalancing.")
	default:
		recs = append(recs, "Portfolio performance is stable. Continue monitoring.")
	}

	if holdingsCount < minDiversifiedHoldings {
		recs = append(recs, "Consider diversifying with additional stocks for better risk management.")
	}

	return recs
}
