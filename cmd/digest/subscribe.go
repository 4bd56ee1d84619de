package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/ternarybob/digest/internal/models"
	"github.com/ternarybob/digest/internal/services/subscriptions"
)

var (
	subscribeFrequency string
	subscribePortfolio string
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <email>",
	Short: "Add or update a subscriber",
	Long: `Creates a subscriber, or replaces the frequency and portfolio of an existing one.
The portfolio file is TOML or JSON with a list of holdings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubscribe,
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <email>",
	Short: "Deactivate a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(false)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Subscriptions.Unsubscribe(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Unsubscribed %s\n", args[0])
		return nil
	},
}

func init() {
	subscribeCmd.Flags().StringVarP(&subscribeFrequency, "frequency", "f", "daily", "Report frequency (daily, weekly, monthly)")
	subscribeCmd.Flags().StringVarP(&subscribePortfolio, "portfolio", "p", "", "Portfolio file (.toml or .json)")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	var portfolio models.Portfolio
	if subscribePortfolio != "" {
		var err error
		portfolio, err = loadPortfolio(subscribePortfolio)
		if err != nil {
			return err
		}
	}

	application, err := newApp(false)
	if err != nil {
		return err
	}
	defer application.Close()

	sub, err := application.Subscriptions.Subscribe(cmd.Context(), subscriptions.SubscribeRequest{
		Email:     args[0],
		Frequency: subscribeFrequency,
		Portfolio: portfolio,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Subscribed %s (%s, %d holdings)\n", sub.Email, sub.Frequency, len(sub.Portfolio.Holdings))
	return nil
}

// loadPortfolio reads holdings from a TOML or JSON file, chosen by extension
func loadPortfolio(path string) (models.Portfolio, error) {
	var portfolio models.Portfolio

	data, err := os.ReadFile(path)
	if err != nil {
		return portfolio, fmt.Errorf("failed to read portfolio file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &portfolio)
	default:
		err = toml.Unmarshal(data, &portfolio)
	}
	if err != nil {
		return portfolio, fmt.Errorf("failed to parse portfolio file %s: %w", path, err)
	}
	return portfolio, nil
}
