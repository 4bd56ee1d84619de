package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/digest/internal/models"
)

var runFrequency string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the report pipeline once",
	Long:  `Builds, stores and sends a report for every active subscriber of the given frequency, then exits.`,
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&runFrequency, "frequency", "f", "daily", "Subscriber frequency to serve (daily, weekly, monthly)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	frequency, err := models.ParseFrequency(runFrequency)
	if err != nil {
		return err
	}

	application, err := newApp(true)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := application.RunOnce(ctx, frequency)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun %s (%s): %d subscribers, %d sent, %d sent untracked, %d skipped, %d failed\n",
		summary.RunID, summary.Frequency, summary.Total,
		summary.Sent, summary.SentUntracked, summary.Skipped, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Kind == models.OutcomeFailed {
			fmt.Printf("  %-30s %s\n", outcome.Email, outcome.Reason)
		}
	}
	return nil
}
