// Package analysis provides a client for the remote portfolio analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL of a locally running analysis service.
	DefaultBaseURL = "http://localhost:4000"

	// DefaultTimeout bounds one analysis request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client is an analysis service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

var _ interfaces.PortfolioAnalyzer = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a new analysis service client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response from the analysis service.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Analyze submits holdings for analysis. Any failure is logged and yields nil;
// callers fall back to the placeholder narrative.
func (c *Client) Analyze(ctx context.Context, holdings []models.Holding) *models.AnalysisResult {
	var result models.AnalysisResult
	if err := c.post(ctx, AnalysisPath, BuildRequest(holdings), &result); err != nil {
		if c.logger != nil {
			c.logger.Warn().
				Err(err).
				Int("holdings", len(holdings)).
				Msg("Portfolio analysis unavailable")
		}
		return nil
	}

	if c.logger != nil {
		c.logger.Debug().
			Int("holdings", len(holdings)).
			Bool("has_narrative", result.PortfolioAnalysis != "").
			Msg("Portfolio analysis completed")
	}

	return &result
}

// BuildRequest converts stored holdings into the analysis request.
// Weight is current_value over the portfolio total, rounded to 4 places,
// and 0 for every holding when the total is not positive.
func BuildRequest(holdings []models.Holding) *Request {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(decimal.NewFromFloat(h.CurrentValue))
	}

	req := &Request{
		Holdings:     make([]Holding, 0, len(holdings)),
		AnalysisType: AnalysisType,
	}
	for _, h := range holdings {
		weight := decimal.Zero
		if total.IsPositive() {
			weight = decimal.NewFromFloat(h.CurrentValue).Div(total).Round(4)
		}
		req.Holdings = append(req.Holdings, Holding{
			Symbol:       h.Symbol,
			Weight:       weight.InexactFloat64(),
			Quantity:     h.Quantity,
			AvgPrice:     h.AvgPrice,
			CurrentPrice: h.CurrentPrice,
			ProfitLoss:   h.ProfitLoss,
		})
	}

	return req
}

// post performs a JSON POST request to the API.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Analysis API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
