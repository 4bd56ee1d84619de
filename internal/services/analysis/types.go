package analysis

// AnalysisType is the analysis mode requested for scheduled reports
const AnalysisType = "daily_report"

// AnalysisPath is the endpoint that accepts holdings for analysis
const AnalysisPath = "/api/portfolio/analysis"

// Holding is one position in the analysis request
type Holding struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	ProfitLoss   float64 `json:"profit_loss"`
}

// Request is the body posted to the analysis endpoint
type Request struct {
	Holdings     []Holding `json:"holdings"`
	AnalysisType string    `json:"analysis_type"`
}
