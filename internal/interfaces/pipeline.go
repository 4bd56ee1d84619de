package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/digest/internal/models"
)

// PortfolioAnalyzer submits holdings to the remote analysis service.
// A nil result means the analysis was unavailable; it is never an error.
type PortfolioAnalyzer interface {
	Analyze(ctx context.Context, holdings []models.Holding) *models.AnalysisResult
}

// ReportRequest carries everything the generator needs to produce report text
type ReportRequest struct {
	Email    string
	Key      string // Filesystem-safe subscriber key used in artifact names
	Stamp    string // YYYYMMDD_HHMMSS of this run for this subscriber
	Query    string
	ForumLog string
	Sections *models.ReportSections
}

// ReportGenerator turns structured sections into report prose.
// LLM-backed implementations may also write an HTML rendering as a side effect.
type ReportGenerator interface {
	Generate(ctx context.Context, req *ReportRequest) (string, error)
}

// ReportComposer builds sections and renders final report text
type ReportComposer interface {
	BuildSections(subscriber *models.Subscriber, analysis *models.AnalysisResult) (*models.ReportSections, error)
	BuildQuery(subscriber *models.Subscriber, sections *models.ReportSections) string
	BuildForumLog(subscriber *models.Subscriber, sections *models.ReportSections, at time.Time) string
	Render(ctx context.Context, req *ReportRequest) (string, error)
}

// ArtifactStore persists report text and locates HTML renderings
type ArtifactStore interface {
	Key(email string) string
	Persist(email string, at time.Time, stamp string, text string) (string, error)
	LocateHTML(email, stamp string) string
}

// Attachments are optional file paths attached to a report email
type Attachments struct {
	TextPath string
	HTMLPath string
}

// NotificationDispatcher delivers one report email per call; nil means delivered
type NotificationDispatcher interface {
	Send(ctx context.Context, recipient string, bodyText string, attachments Attachments) error
}

// DeliveryTracker records a confirmed send; false means bookkeeping failed
type DeliveryTracker interface {
	Track(ctx context.Context, email string) bool
}
