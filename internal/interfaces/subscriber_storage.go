// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 9:40:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/digest/internal/models"
)

// ErrSubscriberNotFound is returned when no subscriber exists for an email
var ErrSubscriberNotFound = errors.New("subscriber not found")

// SubscriberStorage defines persistence for subscribers and their delivery bookkeeping
type SubscriberStorage interface {
	// ListActive returns active subscribers with the given frequency in key order.
	// No match is an empty slice, not an error.
	ListActive(ctx context.Context, frequency models.Frequency) ([]*models.Subscriber, error)

	// RecordDelivery sets last_report_sent, overwrites reports_sent_count with 1
	// and increments total_reports_sent in a single update
	RecordDelivery(ctx context.Context, email string, at time.Time) error

	// Get retrieves a subscriber by email, returns ErrSubscriberNotFound if absent
	Get(ctx context.Context, email string) (*models.Subscriber, error)

	// Save inserts or replaces a subscriber keyed by email
	Save(ctx context.Context, subscriber *models.Subscriber) error

	// List returns all subscribers, optionally filtered by frequency (empty = all)
	List(ctx context.Context, frequency models.Frequency) ([]*models.Subscriber, error)
}

// StorageManager owns the process-scoped store handle
type StorageManager interface {
	SubscriberStorage() SubscriberStorage
	DB() interface{}
	Close() error
}
