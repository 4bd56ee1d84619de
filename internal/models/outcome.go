package models

import (
	"time"
)

// OutcomeKind tags the result of processing one subscriber
type OutcomeKind string

const (
	OutcomeSkipped       OutcomeKind = "skipped"
	OutcomeFailed        OutcomeKind = "failed"
	OutcomeSent          OutcomeKind = "sent"
	OutcomeSentUntracked OutcomeKind = "sent_untracked" // Email went out, bookkeeping did not
)

// Outcome is the tagged result for one subscriber
type Outcome struct {
	Email    string          `json:"email"`
	Kind     OutcomeKind     `json:"kind"`
	Reason   string          `json:"reason,omitempty"`
	Artifact *ReportArtifact `json:"artifact,omitempty"`
}

// RunSummary aggregates the outcomes of one pipeline run
type RunSummary struct {
	RunID         string     `json:"run_id"`
	Frequency     Frequency  `json:"frequency"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Total         int        `json:"total"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	Sent          int        `json:"sent"`
	SentUntracked int        `json:"sent_untracked"`
	Outcomes      []*Outcome `json:"outcomes"`
}

// Add records an outcome and updates the counters
func (s *RunSummary) Add(o *Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Total++
	switch o.Kind {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSent:
		s.Sent++
	case OutcomeSentUntracked:
		s.SentUntracked++
	}
}

// Delivered returns the number of subscribers whose email was sent
func (s *RunSummary) Delivered() int {
	return s.Sent + s.SentUntracked
}
