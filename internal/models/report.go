package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportSections is the deterministic, computed part of a report
type ReportSections struct {
	Email           string             `json:"email"`
	Summary         PortfolioSummary   `json:"summary"`
	Holdings        []HoldingBreakdown `json:"holdings"`
	TopPerformers   []HoldingBreakdown `json:"top_performers"`
	Insight         string             `json:"insight"`
	Analysis        *AnalysisResult    `json:"analysis,omitempty"`
	Recommendations []string           `json:"recommendations"`
}

// PortfolioSummary holds the portfolio-wide totals
type PortfolioSummary struct {
	TotalInvested   decimal.Decimal   `json:"total_invested"`
	CurrentValue    decimal.Decimal   `json:"current_value"`
	TotalPnL        decimal.Decimal   `json:"total_pnl"`
	PnLPercentage   decimal.Decimal   `json:"pnl_percentage"`
	HoldingsCount   int               `json:"holdings_count"`
	BestPerformer   *HoldingBreakdown `json:"best_performer,omitempty"`
	WorstPerformer  *HoldingBreakdown `json:"worst_performer,omitempty"`
	FormattedValues map[string]string `json:"formatted_values,omitempty"`
}

// HoldingBreakdown is one holding with its derived percentage
type HoldingBreakdown struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	PnLPercentage decimal.Decimal `json:"pnl_percentage"`
}

// ReportArtifact records the files written for one subscriber in one run
type ReportArtifact struct {
	SubscriberEmail string    `json:"subscriber_email"`
	GeneratedAt     time.Time `json:"generated_at"`
	Stamp           string    `json:"stamp"`
	TextPath        string    `json:"text_path"`
	HTMLPath        string    `json:"html_path,omitempty"`
}
