package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

// ErrNoHoldings is returned when a subscriber has nothing to report on
var ErrNoHoldings = errors.New("subscriber has no holdings")

// DefaultGenerateTimeout bounds a single generator call
const DefaultGenerateTimeout = 5 * time.Minute

// topPerformerCount is the number of holdings listed as top performers
const topPerformerCount = 3

var hundred = decimal.NewFromInt(100)

// Composer computes report sections and renders the final text through a generator
type Composer struct {
	generator interfaces.ReportGenerator
	logger    arbor.ILogger
	timeout   time.Duration
	currency  string
}

var _ interfaces.ReportComposer = (*Composer)(nil)

// NewComposer creates a composer. A non-positive timeout uses DefaultGenerateTimeout.
func NewComposer(generator interfaces.ReportGenerator, logger arbor.ILogger, timeout time.Duration, currency string) *Composer {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Composer{
		generator: generator,
		logger:    logger,
		timeout:   timeout,
		currency:  currency,
	}
}

// BuildSections derives the deterministic report sections.
// Sums are exact decimal arithmetic over the stored float values.
func (c *Composer) BuildSections(subscriber *models.Subscriber, analysis *models.AnalysisResult) (*models.ReportSections, error) {
	if !subscriber.HasHoldings() {
		return nil, ErrNoHoldings
	}

	holdings := subscriber.Portfolio.Holdings
	breakdown := make([]models.HoldingBreakdown, 0, len(holdings))

	totalInvested := decimal.Zero
	currentValue := decimal.Zero
	totalPnL := decimal.Zero

	for _, h := range holdings {
		totalInvested = totalInvested.Add(decimal.NewFromFloat(h.TotalInvested))
		currentValue = currentValue.Add(decimal.NewFromFloat(h.CurrentValue))
		totalPnL = totalPnL.Add(decimal.NewFromFloat(h.ProfitLoss))
		breakdown = append(breakdown, Breakdown(h))
	}

	summary := models.PortfolioSummary{
		TotalInvested: totalInvested,
		CurrentValue:  currentValue,
		TotalPnL:      totalPnL,
		PnLPercentage: PortfolioPnLPercentage(totalPnL, totalInvested),
		HoldingsCount: len(holdings),
	}

	best, worst := 0, 0
	for i := 1; i < len(breakdown); i++ {
		if breakdown[i].ProfitLoss.GreaterThan(breakdown[best].ProfitLoss) {
			best = i
		}
		if breakdown[i].ProfitLoss.LessThan(breakdown[worst].ProfitLoss) {
			worst = i
		}
	}
	bestCopy, worstCopy := breakdown[best], breakdown[worst]
	summary.BestPerformer = &bestCopy
	summary.WorstPerformer = &worstCopy

	summary.FormattedValues = map[string]string{
		"total_invested": FormatMoney(totalInvested, c.currency),
		"current_value":  FormatMoney(currentValue, c.currency),
		"total_pnl":      FormatMoney(totalPnL, c.currency),
		"pnl_percentage": FormatPercent(summary.PnLPercentage),
	}

	return &models.ReportSections{
		Email:           subscriber.Email,
		Summary:         summary,
		Holdings:        breakdown,
		TopPerformers:   TopPerformers(breakdown, topPerformerCount),
		Insight:         analysis.Narrative(),
		Analysis:        analysis,
		Recommendations: Recommendations(totalPnL, len(holdings)),
	}, nil
}

// Breakdown converts a stored holding into its report line
func Breakdown(h models.Holding) models.HoldingBreakdown {
	return models.HoldingBreakdown{
		Symbol:        h.Symbol,
		Name:          h.Name,
		Quantity:      decimal.NewFromFloat(h.Quantity),
		AvgPrice:      decimal.NewFromFloat(h.AvgPrice),
		CurrentPrice:  decimal.NewFromFloat(h.CurrentPrice),
		CurrentValue:  decimal.NewFromFloat(h.CurrentValue),
		ProfitLoss:    decimal.NewFromFloat(h.ProfitLoss),
		PnLPercentage: HoldingPnLPercentage(h.CurrentPrice, h.AvgPrice),
	}
}

// HoldingPnLPercentage is (current - avg) / avg * 100.
// A zero average price divides by 1 instead, so the result is current * 100.
func HoldingPnLPercentage(currentPrice, avgPrice float64) decimal.Decimal {
	current := decimal.NewFromFloat(currentPrice)
	avg := decimal.NewFromFloat(avgPrice)

	denominator := avg
	if avg.IsZero() {
		denominator = decimal.NewFromInt(1)
	}
	return current.Sub(avg).Div(denominator).Mul(hundred)
}

// PortfolioPnLPercentage is total_pnl / total_invested * 100, or 0 when nothing was invested
func PortfolioPnLPercentage(totalPnL, totalInvested decimal.Decimal) decimal.Decimal {
	if !totalInvested.IsPositive() {
		return decimal.Zero
	}
	return totalPnL.Div(totalInvested).Mul(hundred)
}

// TopPerformers returns up to n holdings by descending profit, ties in input order
func TopPerformers(breakdown []models.HoldingBreakdown, n int) []models.HoldingBreakdown {
	sorted := make([]models.HoldingBreakdown, len(breakdown))
	copy(sorted, breakdown)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProfitLoss.GreaterThan(sorted[j].ProfitLoss)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// BuildQuery is the request handed to the generator
func (c *Composer) BuildQuery(subscriber *models.Subscriber, sections *models.ReportSections) string {
	return fmt.Sprintf(
		"Generate a comprehensive daily portfolio report for %s's investment portfolio showing current performance, profit/loss analysis, and recommendations. Total P&L: %s",
		subscriber.Email,
		FormatMoney(sections.Summary.TotalPnL, c.currency),
	)
}

// BuildForumLog produces the synthetic agent discussion passed to the generator
func (c *Composer) BuildForumLog(subscriber *models.Subscriber, sections *models.ReportSections, at time.Time) string {
	performance := "negative"
	if sections.Summary.TotalPnL.IsPositive() {
		performance = "positive"
	}

	focus := "holding position"
	if sections.Summary.TotalPnL.GreaterThan(profitBookingThreshold) {
		focus = "profit booking"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[ForumHost]: Daily portfolio report for %s - %s\n", subscriber.Email, at.Format("2006-01-02"))
	fmt.Fprintf(&b, "[PortfolioAgent]: Analyzed %d holdings with total value %s\n",
		sections.Summary.HoldingsCount, FormatMoney(sections.Summary.CurrentValue, c.currency))
	fmt.Fprintf(&b, "[RiskAgent]: Portfolio shows %s performance\n", performance)
	fmt.Fprintf(&b, "[RecommendationAgent]: Focus on %s\n", focus)
	return b.String()
}

// Render asks the generator for the final text under the configured timeout
func (c *Composer) Render(ctx context.Context, req *interfaces.ReportRequest) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("no report generator configured")
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.generator.Generate(genCtx, req)
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("report generation timed out after %s: %w", c.timeout, err)
		}
		return "", fmt.Errorf("report generation failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("report generation returned empty text")
	}

	c.logger.Debug().
		Str("email", req.Email).
		Int("length", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Report text rendered")

	return text, nil
}
