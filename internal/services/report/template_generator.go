package report

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

//go:embed templates/*.txt
var templates embed.FS

// indexedHolding pairs a breakdown line with its 1-based position
type indexedHolding struct {
	Index int
	Line  models.HoldingBreakdown
}

// templateData is the view model for the offline report
type templateData struct {
	Email      string
	ReportDate string
	Generated  string
	Sections   *models.ReportSections
}

// TemplateGenerator renders the plain-text report locally without a model call
type TemplateGenerator struct {
	tmpl *template.Template
	now  func() time.Time
}

var _ interfaces.ReportGenerator = (*TemplateGenerator)(nil)

// NewTemplateGenerator parses the embedded report template
func NewTemplateGenerator(currency string) (*TemplateGenerator, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	funcs := template.FuncMap{
		"money":   func(d decimal.Decimal) string { return FormatMoney(d, currency) },
		"signed":  func(d decimal.Decimal) string { return FormatSignedMoney(d, currency) },
		"percent": FormatPercent,
		"indexed": func(i int, h models.HoldingBreakdown) indexedHolding {
			return indexedHolding{Index: i + 1, Line: h}
		},
	}

	tmpl, err := template.New("daily_report.txt").Funcs(funcs).ParseFS(templates, "templates/daily_report.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	return &TemplateGenerator{tmpl: tmpl, now: time.Now}, nil
}

// Generate renders the report sections into plain text
func (g *TemplateGenerator) Generate(ctx context.Context, req *interfaces.ReportRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req == nil || req.Sections == nil {
		return "", fmt.Errorf("report sections are required")
	}

	now := g.now()
	data := templateData{
		Email:      req.Email,
		ReportDate: now.Format("January 02, 2006"),
		Generated:  now.Format("2006-01-02 15:04:05"),
		Sections:   req.Sections,
	}

	var b strings.Builder
	if err := g.tmpl.ExecuteTemplate(&b, "daily_report.txt", data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return b.String(), nil
}
