package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

// SubscribeRequest is a sign-up or portfolio update
type SubscribeRequest struct {
	Email     string           `json:"email" validate:"required,email"`
	Frequency string           `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Portfolio models.Portfolio `json:"portfolio"`
}

// Service manages subscriber records
type Service struct {
	storage  interfaces.SubscriberStorage
	logger   arbor.ILogger
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a subscription service over storage
func NewService(storage interfaces.SubscriberStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Subscribe creates or reactivates a subscriber. The address is keyed with its
// domain lowercased and its local part as given. An existing record has its
// frequency and portfolio replaced while the delivery counters are kept.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (*models.Subscriber, error) {
	req.Email = models.CanonicalEmail(req.Email)
	req.Frequency = strings.ToLower(strings.TrimSpace(req.Frequency))
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}

	now := s.now().UTC()
	subscriber, err := s.storage.Get(ctx, req.Email)
	switch {
	case errors.Is(err, interfaces.ErrSubscriberNotFound):
		subscriber = &models.Subscriber{
			Email:     req.Email,
			CreatedAt: now,
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load subscriber: %w", err)
	}

	subscriber.Frequency = models.Frequency(req.Frequency)
	subscriber.Portfolio = req.Portfolio
	subscriber.Status = models.SubscriberStatusActive
	subscriber.UpdatedAt = now

	if err := s.storage.Save(ctx, subscriber); err != nil {
		return nil, fmt.Errorf("failed to save subscriber: %w", err)
	}

	s.logger.Info().
		Str("email", subscriber.Email).
		Str("frequency", req.Frequency).
		Int("holdings", len(subscriber.Portfolio.Holdings)).
		Msg("Subscription saved")

	return subscriber, nil
}

// Unsubscribe marks a subscriber inactive; the record is kept
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	subscriber, err := s.storage.Get(ctx, models.CanonicalEmail(email))
	if err != nil {
		return err
	}

	subscriber.Status = models.SubscriberStatusInactive
	subscriber.UpdatedAt = s.now().UTC()
	if err := s.storage.Save(ctx, subscriber); err != nil {
		return fmt.Errorf("failed to save subscriber: %w", err)
	}

	s.logger.Info().Str("email", subscriber.Email).Msg("Subscriber deactivated")
	return nil
}

// List returns every subscriber, active or not, for the frequency.
// An empty frequency lists all subscribers.
func (s *Service) List(ctx context.Context, frequency models.Frequency) ([]*models.Subscriber, error) {
	return s.storage.List(ctx, frequency)
}
