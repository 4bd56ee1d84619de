package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/common"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T) interfaces.SubscriberStorage {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewSubscriberStorage(db, arbor.NewLogger())
}

func seed(t *testing.T, storage interfaces.SubscriberStorage, subs ...*models.Subscriber) {
	t.Helper()
	for _, sub := range subs {
		require.NoError(t, storage.Save(context.Background(), sub))
	}
}

func subscriber(email string, freq models.Frequency, status models.SubscriberStatus) *models.Subscriber {
	return &models.Subscriber{
		Email:     email,
		Frequency: freq,
		Status:    status,
		Portfolio: models.Portfolio{Holdings: []models.Holding{
			{Symbol: "INFY", Name: "Infosys", Quantity: 10, AvgPrice: 10, CurrentPrice: 11, TotalInvested: 100, CurrentValue: 110, ProfitLoss: 10},
		}},
		CreatedAt: time.Now(),
	}
}

func TestListActive_FiltersByFrequencyAndStatus(t *testing.T) {
	storage := newTestStorage(t)
	seed(t, storage,
		subscriber("c@x.com", models.FrequencyDaily, models.SubscriberStatusActive),
		subscriber("a@x.com", models.FrequencyDaily, models.SubscriberStatusActive),
		subscriber("b@x.com", models.FrequencyWeekly, models.SubscriberStatusActive),
		subscriber("d@x.com", models.FrequencyDaily, models.SubscriberStatusInactive),
	)

	subs, err := storage.ListActive(context.Background(), models.FrequencyDaily)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a@x.com", subs[0].Email)
	assert.Equal(t, "c@x.com", subs[1].Email)
	assert.Len(t, subs[0].Portfolio.Holdings, 1)
}

func TestListActive_NoMatchIsEmpty(t *testing.T) {
	storage := newTestStorage(t)
	seed(t, storage, subscriber("a@x.com", models.FrequencyWeekly, models.SubscriberStatusActive))

	subs, err := storage.ListActive(context.Background(), models.FrequencyMonthly)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestListActive_CancelledContext(t *testing.T) {
	storage := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.ListActive(ctx, models.FrequencyDaily)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordDelivery(t *testing.T) {
	storage := newTestStorage(t)
	sub := subscriber("a@x.com", models.FrequencyDaily, models.SubscriberStatusActive)
	sub.ReportsSentCount = 7
	sub.TotalReportsSent = 4
	seed(t, storage, sub)

	ctx := context.Background()
	first := time.Date(2026, 10, 17, 7, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	require.NoError(t, storage.RecordDelivery(ctx, "a@x.com", first))
	require.NoError(t, storage.RecordDelivery(ctx, "a@x.com", second))

	got, err := storage.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got.LastReportSent)
	assert.True(t, got.LastReportSent.Equal(second))
	assert.Equal(t, 1, got.ReportsSentCount, "reports_sent_count is overwritten, not incremented")
	assert.Equal(t, 6, got.TotalReportsSent)
	// Other fields are untouched
	assert.Equal(t, models.FrequencyDaily, got.Frequency)
	assert.Len(t, got.Portfolio.Holdings, 1)
}

func TestRecordDelivery_UnknownSubscriber(t *testing.T) {
	storage := newTestStorage(t)

	err := storage.RecordDelivery(context.Background(), "ghost@x.com", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrSubscriberNotFound))
}

func TestGet_NotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.Get(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, interfaces.ErrSubscriberNotFound)
}

func TestSave_Upserts(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	sub := subscriber("a@x.com", models.FrequencyDaily, models.SubscriberStatusActive)
	seed(t, storage, sub)

	sub.Frequency = models.FrequencyWeekly
	require.NoError(t, storage.Save(ctx, sub))

	all, err := storage.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.FrequencyWeekly, all[0].Frequency)

	weekly, err := storage.List(ctx, models.FrequencyWeekly)
	require.NoError(t, err)
	assert.Len(t, weekly, 1)

	assert.Error(t, storage.Save(ctx, &models.Subscriber{}))
}

func TestNewManager_InMemory(t *testing.T) {
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, manager.SubscriberStorage().Save(ctx, subscriber("a@x.com", models.FrequencyDaily, models.SubscriberStatusActive)))

	subs, err := manager.SubscriberStorage().ListActive(ctx, models.FrequencyDaily)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.NotNil(t, manager.DB())
}
