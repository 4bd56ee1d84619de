package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ternarybob/digest/internal/models"
)

var subscribersFrequency string

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "List subscribers",
	RunE:  runSubscribers,
}

func init() {
	subscribersCmd.Flags().StringVarP(&subscribersFrequency, "frequency", "f", "", "Only list subscribers with this frequency")
}

func runSubscribers(cmd *cobra.Command, args []string) error {
	var frequency models.Frequency
	if subscribersFrequency != "" {
		var err error
		if frequency, err = models.ParseFrequency(subscribersFrequency); err != nil {
			return err
		}
	}

	application, err := newApp(false)
	if err != nil {
		return err
	}
	defer application.Close()

	subscribers, err := application.Subscriptions.List(cmd.Context(), frequency)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tFREQUENCY\tSTATUS\tHOLDINGS\tSENT\tLAST SENT")
	for _, s := range subscribers {
		last := "-"
		if s.LastReportSent != nil {
			last = s.LastReportSent.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Email, s.Frequency, s.Status, len(s.Portfolio.Holdings), s.TotalReportsSent, last)
	}
	return w.Flush()
}
