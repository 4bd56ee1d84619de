package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/models"
)

var testHoldings = []models.Holding{
	{Symbol: "INFY", Quantity: 10, AvgPrice: 10, CurrentPrice: 11, CurrentValue: 300, ProfitLoss: 30},
	{Symbol: "TCS", Quantity: 5, AvgPrice: 20, CurrentPrice: 18, CurrentValue: 600, ProfitLoss: -10},
	{Symbol: "HDFC", Quantity: 1, AvgPrice: 100, CurrentPrice: 100, CurrentValue: 0, ProfitLoss: 0},
}

func TestBuildRequest_Weights(t *testing.T) {
	req := BuildRequest(testHoldings)

	assert.Equal(t, AnalysisType, req.AnalysisType)
	require.Len(t, req.Holdings, 3)
	assert.Equal(t, 0.3333, req.Holdings[0].Weight)
	assert.Equal(t, 0.6667, req.Holdings[1].Weight)
	assert.Equal(t, 0.0, req.Holdings[2].Weight)
	assert.Equal(t, "TCS", req.Holdings[1].Symbol)
	assert.Equal(t, -10.0, req.Holdings[1].ProfitLoss)
}

func TestBuildRequest_ZeroTotal(t *testing.T) {
	req := BuildRequest([]models.Holding{{Symbol: "A"}, {Symbol: "B"}})
	for _, h := range req.Holdings {
		assert.Equal(t, 0.0, h.Weight)
	}
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AnalysisPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "daily_report", body.AnalysisType)
		assert.Len(t, body.Holdings, 3)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"portfolio_analysis": "Tilted towards IT services.",
			"portfolio_bias_score": {"sector": 0.8},
			"market_breakdown": {"IT": 0.9}
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL+"/"), WithLogger(arbor.NewLogger()))
	result := client.Analyze(context.Background(), testHoldings)

	require.NotNil(t, result)
	assert.Equal(t, "Tilted towards IT services.", result.Narrative())
	assert.Equal(t, 0.8, result.PortfolioBiasScore["sector"])
	assert.Contains(t, result.MarketBreakdown, "IT")
}

func TestAnalyze_FailuresYieldNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
		{"slow response", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"portfolio_analysis":"late"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(
				WithBaseURL(server.URL),
				WithTimeout(50*time.Millisecond),
				WithLogger(arbor.NewLogger()),
			)
			assert.Nil(t, client.Analyze(context.Background(), testHoldings))
		})
	}
}

func TestAnalyze_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(WithBaseURL(url))
	assert.Nil(t, client.Analyze(context.Background(), testHoldings))
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 502, Message: "bad gateway", Endpoint: AnalysisPath}
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), AnalysisPath)
}

func TestPlaceholderForNilResult(t *testing.T) {
	var result *models.AnalysisResult
	assert.Equal(t, models.AnalysisPlaceholder, result.Narrative())
}
