package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/common"
	"github.com/ternarybob/digest/internal/models"
)

// ErrRunInProgress is returned by Trigger while another run holds the lock
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Runner executes one pipeline run for a frequency
type Runner interface {
	Run(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error)
}

// Status is a point-in-time view of the scheduler
type Status struct {
	Running      bool
	Schedule     string
	Frequency    models.Frequency
	IsProcessing bool
	LastRun      *time.Time
	NextRun      *time.Time
	LastError    string
	LastSummary  *models.RunSummary
}

// Service triggers pipeline runs on a cron schedule
type Service struct {
	runner    Runner
	frequency models.Frequency
	cron      *cron.Cron
	logger    arbor.ILogger

	mu           sync.Mutex // Protects the fields below
	running      bool
	isProcessing bool
	schedule     string
	entryID      cron.EntryID
	lastRun      *time.Time
	lastError    string
	lastSummary  *models.RunSummary

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a scheduler that runs the pipeline for frequency
func NewService(runner Runner, frequency models.Frequency, logger arbor.ILogger) *Service {
	return &Service{
		runner:    runner,
		frequency: frequency,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the schedule and begins ticking
func (s *Service) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(schedule, s.runScheduledTask)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.entryID = id
	s.schedule = schedule
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Str("frequency", string(s.frequency)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop, cancels any in-flight run and waits for it to
// return or for ctx to expire.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.cron.Remove(s.entryID)
	s.entryID = 0
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out waiting for in-flight run")
		return ctx.Err()
	}
}

// IsRunning reports whether the cron loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger runs the pipeline for frequency immediately, outside the schedule.
// Returns ErrRunInProgress when a run is already executing.
func (s *Service) Trigger(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error) {
	if !s.acquire() {
		return nil, ErrRunInProgress
	}
	defer s.release()

	return s.execute(ctx, frequency)
}

// GetStatus returns the current scheduler state
func (s *Service) GetStatus() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &Status{
		Running:      s.running,
		Schedule:     s.schedule,
		Frequency:    s.frequency,
		IsProcessing: s.isProcessing,
		LastRun:      s.lastRun,
		LastError:    s.lastError,
		LastSummary:  s.lastSummary,
	}
	if s.running && s.entryID != 0 {
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

func (s *Service) runScheduledTask() {
	if !s.acquire() {
		s.logger.Warn().
			Str("frequency", string(s.frequency)).
			Msg("Previous run still in progress, skipping this cycle")
		return
	}
	defer s.release()

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info().Str("frequency", string(s.frequency)).Msg("Scheduled pipeline run starting")
	if _, err := s.execute(ctx, s.frequency); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled pipeline run failed")
	}
}

// execute runs the pipeline with panic recovery and records the result
func (s *Service) execute(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error) {
	var summary *models.RunSummary
	err := common.Guard(s.logger, "pipeline_run", func() error {
		var runErr error
		summary, runErr = s.runner.Run(ctx, frequency)
		return runErr
	})

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	if summary != nil {
		s.lastSummary = summary
	}
	s.mu.Unlock()

	return summary, err
}

func (s *Service) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isProcessing {
		return false
	}
	s.isProcessing = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.isProcessing = false
	s.mu.Unlock()
}
