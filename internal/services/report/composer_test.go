package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

type stubGenerator struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, req *interfaces.ReportRequest) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func newComposer(gen interfaces.ReportGenerator) *Composer {
	return NewComposer(gen, arbor.NewLogger(), time.Second, "INR")
}

func mixedSubscriber() *models.Subscriber {
	return &models.Subscriber{
		Email: "investor@example.com",
		Portfolio: models.Portfolio{Holdings: []models.Holding{
			{Symbol: "INFY", Name: "Infosys", Quantity: 10, AvgPrice: 100, CurrentPrice: 120, TotalInvested: 1000, CurrentValue: 1200, ProfitLoss: 200},
			{Symbol: "TCS", Name: "TCS", Quantity: 5, AvgPrice: 200, CurrentPrice: 180, TotalInvested: 1000, CurrentValue: 900, ProfitLoss: -100},
			{Symbol: "WIPRO", Name: "Wipro", Quantity: 2, AvgPrice: 50, CurrentPrice: 150, TotalInvested: 100, CurrentValue: 300, ProfitLoss: 200},
			{Symbol: "HDFC", Name: "HDFC Bank", Quantity: 1, AvgPrice: 300, CurrentPrice: 300, TotalInvested: 300, CurrentValue: 300, ProfitLoss: 0},
		}},
	}
}

func TestHoldingPnLPercentage(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		avg     float64
		want    string
	}{
		{"gain", 11, 10, "10"},
		{"loss", 90, 100, "-10"},
		{"flat", 50, 50, "0"},
		{"zero average divides by one", 12.5, 0, "1250"},
		{"fractional", 101.5, 100, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HoldingPnLPercentage(tt.current, tt.avg)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestPortfolioPnLPercentage(t *testing.T) {
	assert.True(t, PortfolioPnLPercentage(decimal.NewFromInt(10), decimal.NewFromInt(100)).Equal(decimal.NewFromInt(10)))
	assert.True(t, PortfolioPnLPercentage(decimal.NewFromInt(10), decimal.Zero).IsZero())
}

func TestBuildSections_Totals(t *testing.T) {
	c := newComposer(&stubGenerator{})
	sections, err := c.BuildSections(mixedSubscriber(), nil)
	require.NoError(t, err)

	s := sections.Summary
	assert.True(t, s.TotalInvested.Equal(decimal.NewFromInt(2400)))
	assert.True(t, s.CurrentValue.Equal(decimal.NewFromInt(2700)))
	assert.True(t, s.TotalPnL.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.PnLPercentage.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 4, s.HoldingsCount)
	assert.Len(t, sections.Holdings, 4)
	assert.Equal(t, "investor@example.com", sections.Email)
	assert.Equal(t, "₹2,400.00", s.FormattedValues["total_invested"])
}

func TestBuildSections_BestAndWorst(t *testing.T) {
	c := newComposer(&stubGenerator{})
	sections, err := c.BuildSections(mixedSubscriber(), nil)
	require.NoError(t, err)

	best := sections.Summary.BestPerformer
	worst := sections.Summary.WorstPerformer
	require.NotNil(t, best)
	require.NotNil(t, worst)

	// Ties resolve to the first occurrence
	assert.Equal(t, "INFY", best.Symbol)
	assert.Equal(t, "TCS", worst.Symbol)

	for _, h := range sections.Holdings {
		assert.True(t, best.ProfitLoss.GreaterThanOrEqual(h.ProfitLoss))
		assert.True(t, worst.ProfitLoss.LessThanOrEqual(h.ProfitLoss))
	}
}

func TestBuildSections_TopPerformers(t *testing.T) {
	c := newComposer(&stubGenerator{})
	sections, err := c.BuildSections(mixedSubscriber(), nil)
	require.NoError(t, err)

	require.Len(t, sections.TopPerformers, 3)
	assert.Equal(t, "INFY", sections.TopPerformers[0].Symbol)
	assert.Equal(t, "WIPRO", sections.TopPerformers[1].Symbol)
	assert.Equal(t, "HDFC", sections.TopPerformers[2].Symbol)
	// Input order is untouched
	assert.Equal(t, "TCS", sections.Holdings[1].Symbol)
}

func TestBuildSections_Insight(t *testing.T) {
	c := newComposer(&stubGenerator{})

	sections, err := c.BuildSections(mixedSubscriber(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisPlaceholder, sections.Insight)

	sections, err = c.BuildSections(mixedSubscriber(), &models.AnalysisResult{PortfolioAnalysis: "Heavy IT exposure."})
	require.NoError(t, err)
	assert.Equal(t, "Heavy IT exposure.", sections.Insight)
}

func TestBuildSections_NoHoldings(t *testing.T) {
	c := newComposer(&stubGenerator{})
	_, err := c.BuildSections(&models.Subscriber{Email: "empty@example.com"}, nil)
	assert.ErrorIs(t, err, ErrNoHoldings)
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		pnl      int64
		holdings int
		want     []string
	}{
		{"strong and concentrated", 1500, 2, []string{
			"Portfolio showing strong performance. Consider partial profit booking.",
			"Consider diversifying with additional stocks for better risk management.",
		}},
		{"losses and diversified", -1500, 6, []string{
			"Portfolio showing losses. Review and consider rebalancing.",
		}},
		{"boundary is stable", 1000, 5, []string{
			"Portfolio performance is stable. Continue monitoring.",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommendations(decimal.NewFromInt(tt.pnl), tt.holdings))
		})
	}
}

func TestBuildQueryAndForumLog(t *testing.T) {
	c := newComposer(&stubGenerator{})
	sub := mixedSubscriber()
	sections, err := c.BuildSections(sub, nil)
	require.NoError(t, err)

	query := c.BuildQuery(sub, sections)
	assert.Contains(t, query, "investor@example.com's investment portfolio")
	assert.Contains(t, query, "Total P&L: ₹300.00")

	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	log := c.BuildForumLog(sub, sections, at)
	assert.Contains(t, log, "[ForumHost]: Daily portfolio report for investor@example.com - 2026-10-18")
	assert.Contains(t, log, "[PortfolioAgent]: Analyzed 4 holdings with total value ₹2,700.00")
	assert.Contains(t, log, "[RiskAgent]: Portfolio shows positive performance")
	assert.Contains(t, log, "[RecommendationAgent]: Focus on holding position")
}

func TestRender(t *testing.T) {
	gen := &stubGenerator{text: "report body"}
	c := newComposer(gen)

	text, err := c.Render(context.Background(), &interfaces.ReportRequest{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "report body", text)
	assert.Equal(t, 1, gen.calls)
}

func TestRender_Failures(t *testing.T) {
	tests := []struct {
		name    string
		gen     *stubGenerator
		wantErr string
	}{
		{"generator error", &stubGenerator{err: errors.New("quota")}, "quota"},
		{"empty text", &stubGenerator{text: "  \n"}, "empty"},
		{"timeout", &stubGenerator{text: "late", delay: time.Second}, "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(tt.gen, arbor.NewLogger(), 20*time.Millisecond, "INR")
			_, err := c.Render(context.Background(), &interfaces.ReportRequest{Email: "a@x.com"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹1,234.50", FormatMoney(decimal.RequireFromString("1234.5"), "INR"))
	assert.Equal(t, "₹0.00", FormatMoney(decimal.Zero, ""))
	assert.Equal(t, "XYZ 3.14", FormatMoney(decimal.RequireFromString("3.14159"), "XYZ"))
	assert.Equal(t, "+10.00%", FormatPercent(decimal.NewFromInt(10)))
	assert.Equal(t, "-2.50%", FormatPercent(decimal.RequireFromString("-2.5")))
}
