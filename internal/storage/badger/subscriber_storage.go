package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SubscriberStorage implements the SubscriberStorage interface for Badger
type SubscriberStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSubscriberStorage creates a new SubscriberStorage instance
func NewSubscriberStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SubscriberStorage {
	return &SubscriberStorage{
		db:     db,
		logger: logger,
	}
}

// ListActive returns active subscribers for a frequency, ordered by email
func (s *SubscriberStorage) ListActive(ctx context.Context, frequency models.Frequency) ([]*models.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []models.Subscriber
	query := badgerhold.Where("Frequency").Eq(frequency).
		And("Status").Eq(models.SubscriberStatusActive)
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query %s subscribers: %w", frequency, err)
	}

	subscribers := toPointers(records)

	s.logger.Debug().
		Str("frequency", string(frequency)).
		Int("count", len(subscribers)).
		Msg("Loaded active subscribers")

	return subscribers, nil
}

// RecordDelivery applies the post-send bookkeeping in one update transaction
func (s *SubscriberStorage) RecordDelivery(ctx context.Context, email string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	matched := 0
	err := s.db.Store().UpdateMatching(&models.Subscriber{}, badgerhold.Where(badgerhold.Key).Eq(email), func(record interface{}) error {
		sub, ok := record.(*models.Subscriber)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		matched++

		sent := at
		sub.LastReportSent = &sent
		sub.ReportsSentCount = 1
		sub.TotalReportsSent++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record delivery for %s: %w", email, err)
	}
	if matched == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrSubscriberNotFound, email)
	}

	return nil
}

// Get retrieves a subscriber by email
func (s *SubscriberStorage) Get(ctx context.Context, email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := s.db.Store().Get(email, &sub)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	sub.Email = email
	return &sub, nil
}

// Save inserts or replaces a subscriber keyed by email
func (s *SubscriberStorage) Save(ctx context.Context, subscriber *models.Subscriber) error {
	if subscriber == nil || subscriber.Email == "" {
		return fmt.Errorf("subscriber email is required")
	}

	if err := s.db.Store().Upsert(subscriber.Email, subscriber); err != nil {
		return fmt.Errorf("failed to save subscriber: %w", err)
	}

	s.logger.Debug().Str("email", subscriber.Email).Msg("Subscriber saved")
	return nil
}

// List returns all subscribers, or those with a frequency when one is given
func (s *SubscriberStorage) List(ctx context.Context, frequency models.Frequency) ([]*models.Subscriber, error) {
	var records []models.Subscriber
	var query *badgerhold.Query
	if frequency != "" {
		query = badgerhold.Where("Frequency").Eq(frequency)
	}

	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	return toPointers(records), nil
}

// toPointers converts query results and orders them by email so callers see
// key order regardless of which index served the query
func toPointers(records []models.Subscriber) []*models.Subscriber {
	subscribers := make([]*models.Subscriber, 0, len(records))
	for i := range records {
		subscribers = append(subscribers, &records[i])
	}
	sort.SliceStable(subscribers, func(i, j int) bool {
		return subscribers[i].Email < subscribers[j].Email
	})
	return subscribers
}
