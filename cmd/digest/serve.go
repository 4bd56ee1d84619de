package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler until interrupted",
	Long:  `Starts the cron scheduler which runs the report pipeline on the configured schedule.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApp(true)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.StartScheduler(); err != nil {
		return err
	}

	status := application.SchedulerService.GetStatus()
	nextRun := "-"
	if status.NextRun != nil {
		nextRun = status.NextRun.Format(time.RFC3339)
	}
	logger.Info().
		Str("schedule", status.Schedule).
		Str("frequency", string(status.Frequency)).
		Bool("scheduler_running", status.Running).
		Str("next_run", nextRun).
		Msg("Digest ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	return nil
}
