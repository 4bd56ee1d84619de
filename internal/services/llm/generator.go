// -----------------------------------------------------------------------
// ReportGenerator - model-backed report prose with an HTML rendering
// -----------------------------------------------------------------------

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const reportSystemInstruction = `You are a portfolio analyst writing a daily report for a retail investor.
Write in Markdown with these sections: Summary, Holdings, Market Insights, Recommendations, Next Steps.
Use only the figures provided. Do not invent prices, holdings or news. Keep it under 800 words.`

// Generator produces report text through a content provider and writes an
// HTML rendering to the final reports directory
type Generator struct {
	provider ContentGenerator
	model    string
	htmlDir  string
	logger   arbor.ILogger
	md       goldmark.Markdown
}

var _ interfaces.ReportGenerator = (*Generator)(nil)

// NewGenerator creates a report generator. An empty htmlDir disables the HTML rendering.
func NewGenerator(provider ContentGenerator, model string, htmlDir string, logger arbor.ILogger) *Generator {
	return &Generator{
		provider: provider,
		model:    model,
		htmlDir:  htmlDir,
		logger:   logger,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // GitHub Flavored Markdown (tables, strikethrough, etc.)
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
	}
}

// Generate makes one provider call and returns the markdown report
func (g *Generator) Generate(ctx context.Context, req *interfaces.ReportRequest) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}

	resp, err := g.provider.GenerateContent(ctx, &ContentRequest{
		Model:             g.model,
		SystemInstruction: reportSystemInstruction,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	markdown := StripOuterCodeFences(resp.Text)

	g.logger.Debug().
		Str("email", req.Email).
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("length", len(markdown)).
		Msg("Report generated by provider")

	if g.htmlDir != "" {
		if path, err := g.writeHTML(req, markdown); err != nil {
			g.logger.Warn().Err(err).Str("email", req.Email).Msg("Failed to write HTML report")
		} else {
			g.logger.Debug().Str("path", path).Msg("HTML report written")
		}
	}

	return markdown, nil
}

// BuildPrompt assembles the user message from the query, sections and forum log
func BuildPrompt(req *interfaces.ReportRequest) (string, error) {
	if req == nil || req.Sections == nil {
		return "", fmt.Errorf("report sections are required")
	}

	sections, err := json.MarshalIndent(req.Sections, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report sections: %w", err)
	}

	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteString("\n\n## Portfolio data\n```json\n")
	b.Write(sections)
	b.WriteString("\n```\n")
	if req.ForumLog != "" {
		b.WriteString("\n## Agent discussion\n")
		b.WriteString(strings.TrimSpace(req.ForumLog))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// HTMLFileName is final_report_<key>_<stamp>.html
func HTMLFileName(key, stamp string) string {
	return fmt.Sprintf("final_report_%s_%s.html", key, stamp)
}

func (g *Generator) writeHTML(req *interfaces.ReportRequest, markdown string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	if err := os.MkdirAll(g.htmlDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create html directory: %w", err)
	}

	path := filepath.Join(g.htmlDir, HTMLFileName(req.Key, req.Stamp))
	if err := os.WriteFile(path, []byte(wrapInHTMLDocument(req.Email, buf.String())), 0644); err != nil {
		return "", fmt.Errorf("failed to write html report: %w", err)
	}
	return path, nil
}

// StripOuterCodeFences removes a ```markdown ... ``` wrapper that models often add
func StripOuterCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	firstNewline := strings.Index(content, "\n")
	if firstNewline == -1 {
		return content
	}

	body := content[firstNewline+1:]
	if strings.HasSuffix(body, "```") {
		body = strings.TrimSuffix(body, "```")
	}
	return strings.TrimSpace(body)
}

func wrapInHTMLDocument(email, body string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Daily Portfolio Report</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
    h1 { border-bottom: 2px solid #eee; padding-bottom: 10px; }
    table { border-collapse: collapse; width: 100%; margin: 16px 0; }
    th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
    th { background: #f4f4f4; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #888; }
  </style>
</head>
<body>
` + body + `
<div class="footer">Prepared for ` + htmlEscaper.Replace(email) + ` by Stock Analysis Report Engine.</div>
</body>
</html>
`
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
