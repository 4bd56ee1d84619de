package models

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the delivery cadence a subscriber signed up for
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency normalizes and validates a frequency string
func ParseFrequency(value string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(value))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported frequency %q (want daily, weekly or monthly)", value)
	}
}

// CanonicalEmail trims the address and lowercases the domain. The local part
// keeps its case, so Alice@x.com and alice@x.com are different subscribers.
func CanonicalEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// SubscriberStatus marks whether a subscriber receives reports
type SubscriberStatus string

const (
	SubscriberStatusActive   SubscriberStatus = "active"
	SubscriberStatusInactive SubscriberStatus = "inactive"
)

// Subscriber is a report recipient together with the portfolio reported on.
// Email is the identity and the store key.
type Subscriber struct {
	Email            string           `json:"email" badgerhold:"key"`
	Frequency        Frequency        `json:"frequency" badgerhold:"index"`
	Status           SubscriberStatus `json:"status" badgerhold:"index"`
	Portfolio        Portfolio        `json:"portfolio"`
	LastReportSent   *time.Time       `json:"last_report_sent,omitempty"`
	ReportsSentCount int              `json:"reports_sent_count"` // Overwritten to 1 on each send
	TotalReportsSent int              `json:"total_reports_sent"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// HasHoldings reports whether the subscriber has anything to report on
func (s *Subscriber) HasHoldings() bool {
	return s != nil && len(s.Portfolio.Holdings) > 0
}

// Portfolio is an ordered list of holdings
type Portfolio struct {
	Holdings []Holding `json:"holdings" toml:"holdings"`
}

// Holding is one position as stored. Monetary values are kept as float64 to
// match the stored documents; arithmetic is done in decimal by the composer.
type Holding struct {
	Symbol        string  `json:"symbol" toml:"symbol"`
	Name          string  `json:"name" toml:"name"`
	Quantity      float64 `json:"quantity" toml:"quantity"`
	AvgPrice      float64 `json:"avg_price" toml:"avg_price"`
	CurrentPrice  float64 `json:"current_price" toml:"current_price"`
	TotalInvested float64 `json:"total_invested" toml:"total_invested"`
	CurrentValue  float64 `json:"current_value" toml:"current_value"`
	ProfitLoss    float64 `json:"profit_loss" toml:"profit_loss"`
}
