package models

// AnalysisPlaceholder is the narrative used when the analysis service gave nothing usable
const AnalysisPlaceholder = "Portfolio analysis unavailable"

// AnalysisResult is the insight payload returned by the remote analysis service.
// Only PortfolioAnalysis is interpreted; the rest is carried through to the generator.
type AnalysisResult struct {
	PortfolioAnalysis  string                 `json:"portfolio_analysis"`
	PortfolioBiasScore map[string]interface{} `json:"portfolio_bias_score,omitempty"`
	MarketBreakdown    map[string]interface{} `json:"market_breakdown,omitempty"`
	IndividualHoldings []interface{}          `json:"individual_holdings,omitempty"`
	Risks              map[string]interface{} `json:"risks,omitempty"`
	Timestamp          string                 `json:"timestamp,omitempty"`
}

// Narrative returns the analysis text, or the placeholder when absent
func (a *AnalysisResult) Narrative() string {
	if a == nil || a.PortfolioAnalysis == "" {
		return AnalysisPlaceholder
	}
	return a.PortfolioAnalysis
}
