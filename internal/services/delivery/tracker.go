// Package delivery records post-send bookkeeping for subscribers.
package delivery

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
)

// Tracker writes delivery bookkeeping. Failures are logged and reported as false;
// they never undo or fail the send that preceded them.
type Tracker struct {
	storage interfaces.SubscriberStorage
	logger  arbor.ILogger
	now     func() time.Time
}

var _ interfaces.DeliveryTracker = (*Tracker)(nil)

// NewTracker creates a delivery tracker
func NewTracker(storage interfaces.SubscriberStorage, logger arbor.ILogger) *Tracker {
	return &Tracker{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Track records a confirmed send for email
func (t *Tracker) Track(ctx context.Context, email string) bool {
	if err := t.storage.RecordDelivery(ctx, email, t.now()); err != nil {
		t.logger.Warn().Err(err).Str("email", email).Msg("Could not update subscription status")
		return false
	}

	t.logger.Debug().Str("email", email).Msg("Delivery recorded")
	return true
}
