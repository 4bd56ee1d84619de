package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/common"
	"github.com/ternarybob/digest/internal/models"
)

type stubRunner struct {
	calls   int32
	block   chan struct{}
	started chan struct{}
	err     error
	panics  bool
}

func (r *stubRunner) Run(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.started != nil {
		close(r.started)
	}
	if r.block != nil {
		<-r.block
	}
	if r.panics {
		panic("runner exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &models.RunSummary{Frequency: frequency, Total: 1, Sent: 1}, nil
}

func TestTrigger_RecordsSummary(t *testing.T) {
	runner := &stubRunner{}
	s := NewService(runner, models.FrequencyDaily, arbor.NewLogger())

	summary, err := s.Trigger(context.Background(), models.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyDaily, summary.Frequency)

	status := s.GetStatus()
	require.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
	assert.Same(t, summary, status.LastSummary)
	assert.False(t, status.IsProcessing)
}

func TestTrigger_SkipsOverlappingRun(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{}), started: make(chan struct{})}
	s := NewService(runner, models.FrequencyDaily, arbor.NewLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background(), models.FrequencyDaily)
		done <- err
	}()
	<-runner.started

	_, err := s.Trigger(context.Background(), models.FrequencyDaily)
	assert.ErrorIs(t, err, ErrRunInProgress)

	// Scheduled tick while busy is dropped
	s.runScheduledTask()

	close(runner.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))
}

func TestTrigger_RecoversPanic(t *testing.T) {
	s := NewService(&stubRunner{panics: true}, models.FrequencyDaily, arbor.NewLogger())

	_, err := s.Trigger(context.Background(), models.FrequencyDaily)
	var perr *common.PanicError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, s.GetStatus().LastError, "runner exploded")

	// Lock released after the panic
	s.runner = &stubRunner{}
	_, err = s.Trigger(context.Background(), models.FrequencyDaily)
	assert.NoError(t, err)
}

func TestTrigger_UsesRequestedFrequency(t *testing.T) {
	s := NewService(&stubRunner{}, models.FrequencyDaily, arbor.NewLogger())

	summary, err := s.Trigger(context.Background(), models.FrequencyMonthly)
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyMonthly, summary.Frequency)
}

func TestTrigger_RunError(t *testing.T) {
	s := NewService(&stubRunner{err: errors.New("store unavailable")}, models.FrequencyWeekly, arbor.NewLogger())

	_, err := s.Trigger(context.Background(), models.FrequencyDaily)
	require.Error(t, err)
	assert.Equal(t, "store unavailable", s.GetStatus().LastError)
}

func TestStartStop(t *testing.T) {
	s := NewService(&stubRunner{}, models.FrequencyDaily, arbor.NewLogger())

	require.Error(t, s.Start("not a cron"))
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start("0 7 * * *"))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start("0 7 * * *"), "second start rejected")

	status := s.GetStatus()
	assert.Equal(t, "0 7 * * *", status.Schedule)
	require.NotNil(t, status.NextRun)
	assert.Equal(t, 7, status.NextRun.Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(ctx), "stop is idempotent")
	assert.Empty(t, s.cron.Entries(), "stop removes the schedule")
}

func TestRestartRegistersOneEntry(t *testing.T) {
	s := NewService(&stubRunner{}, models.FrequencyDaily, arbor.NewLogger())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Start("0 7 * * *"))
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Start("30 6 * * *"))
	defer s.Stop(ctx)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Next.Hour())
	assert.Equal(t, 30, entries[0].Next.Minute())
}
