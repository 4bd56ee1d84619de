// -----------------------------------------------------------------------
// Pipeline Orchestrator - sequential per-subscriber report delivery
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/common"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
	"github.com/ternarybob/digest/internal/services/artifacts"
)

// Dependencies are the collaborators one run is sequenced over
type Dependencies struct {
	Subscribers interfaces.SubscriberStorage
	Analyzer    interfaces.PortfolioAnalyzer
	Composer    interfaces.ReportComposer
	Artifacts   interfaces.ArtifactStore
	Dispatcher  interfaces.NotificationDispatcher
	Tracker     interfaces.DeliveryTracker
}

// Orchestrator runs the delivery pipeline one subscriber at a time.
// A failure for one subscriber never stops the others.
type Orchestrator struct {
	deps   Dependencies
	logger arbor.ILogger
	now    func() time.Time
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(deps Dependencies, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Run processes every active subscriber with the given frequency.
// The error is non-nil only when subscribers could not be fetched.
func (o *Orchestrator) Run(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     common.NewRunID(),
		Frequency: frequency,
		StartedAt: o.now(),
	}

	subscribers, err := o.deps.Subscribers.ListActive(ctx, frequency)
	if err != nil {
		o.logger.Error().Err(err).Str("frequency", string(frequency)).Msg("Failed to fetch subscribers")
		return nil, fmt.Errorf("failed to fetch %s subscribers: %w", frequency, err)
	}

	o.logger.Info().
		Str("run_id", summary.RunID).
		Str("frequency", string(frequency)).
		Int("subscribers", len(subscribers)).
		Msg("Starting report run")

	for i, sub := range subscribers {
		if ctx.Err() != nil {
			summary.Add(&models.Outcome{Email: sub.Email, Kind: models.OutcomeFailed, Reason: "run cancelled"})
			continue
		}

		o.logger.Debug().
			Int("index", i+1).
			Int("total", len(subscribers)).
			Str("email", sub.Email).
			Msg("Processing subscriber")

		outcome := o.processSubscriber(ctx, sub)
		summary.Add(outcome)
		o.logOutcome(outcome)
	}

	summary.FinishedAt = o.now()

	o.logger.Info().
		Str("run_id", summary.RunID).
		Int("total", summary.Total).
		Int("sent", summary.Sent).
		Int("sent_untracked", summary.SentUntracked).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Report run completed")

	return summary, nil
}

// processSubscriber takes one subscriber from fetched to tracked.
// A panic anywhere in the chain becomes a Failed outcome.
func (o *Orchestrator) processSubscriber(ctx context.Context, sub *models.Subscriber) *models.Outcome {
	outcome := &models.Outcome{Email: sub.Email}

	if !sub.HasHoldings() {
		outcome.Kind = models.OutcomeSkipped
		outcome.Reason = "no holdings"
		return outcome
	}

	err := common.Guard(o.logger, "subscriber "+sub.Email, func() error {
		at := o.now()
		stamp := artifacts.Stamp(at)

		analysis := o.deps.Analyzer.Analyze(ctx, sub.Portfolio.Holdings)

		sections, err := o.deps.Composer.BuildSections(sub, analysis)
		if err != nil {
			return fmt.Errorf("compose: %w", err)
		}

		req := &interfaces.ReportRequest{
			Email:    sub.Email,
			Key:      o.deps.Artifacts.Key(sub.Email),
			Stamp:    stamp,
			Query:    o.deps.Composer.BuildQuery(sub, sections),
			ForumLog: o.deps.Composer.BuildForumLog(sub, sections, at),
			Sections: sections,
		}

		text, err := o.deps.Composer.Render(ctx, req)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}

		textPath, err := o.deps.Artifacts.Persist(sub.Email, at, stamp, text)
		if err != nil {
			return fmt.Errorf("persist: %w", err)
		}

		artifact := &models.ReportArtifact{
			SubscriberEmail: sub.Email,
			GeneratedAt:     at,
			Stamp:           stamp,
			TextPath:        textPath,
			HTMLPath:        o.deps.Artifacts.LocateHTML(sub.Email, stamp),
		}
		outcome.Artifact = artifact

		if err := o.deps.Dispatcher.Send(ctx, sub.Email, text, interfaces.Attachments{
			TextPath: artifact.TextPath,
			HTMLPath: artifact.HTMLPath,
		}); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		return nil
	})

	if err != nil {
		outcome.Kind = models.OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	// The email is out; from here the outcome can only be Sent or SentUntracked
	if o.track(ctx, sub.Email) {
		outcome.Kind = models.OutcomeSent
	} else {
		outcome.Kind = models.OutcomeSentUntracked
	}
	return outcome
}

// track records the delivery under its own panic guard
func (o *Orchestrator) track(ctx context.Context, email string) bool {
	tracked := false
	if err := common.Guard(o.logger, "track "+email, func() error {
		tracked = o.deps.Tracker.Track(ctx, email)
		return nil
	}); err != nil {
		return false
	}
	return tracked
}

func (o *Orchestrator) logOutcome(outcome *models.Outcome) {
	switch outcome.Kind {
	case models.OutcomeSent:
		o.logger.Info().Str("email", outcome.Email).Msg("Report delivered")
	case models.OutcomeSentUntracked:
		o.logger.Warn().Str("email", outcome.Email).Msg("Report delivered but delivery status not recorded")
	case models.OutcomeSkipped:
		o.logger.Info().Str("email", outcome.Email).Str("reason", outcome.Reason).Msg("Subscriber skipped")
	case models.OutcomeFailed:
		o.logger.Error().Str("email", outcome.Email).Str("reason", outcome.Reason).Msg("Subscriber failed")
	}
}
