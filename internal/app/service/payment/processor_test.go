package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/tool"
	"github.com/botsmith/billing/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestDecideAction(t *testing.T) {
	starter := &models.Subscription{PlanID: types.PlanStarter}

	tests := []struct {
		name    string
		current *models.Subscription
		plan    types.PlanID
		want    types.ActionType
	}{
		{name: "no subscription is new", current: nil, plan: types.PlanStarter, want: types.ActionTypeNew},
		{name: "different plan is upgrade", current: starter, plan: types.PlanProfessional, want: types.ActionTypeUpgrade},
		{name: "free to paid is upgrade", current: &models.Subscription{PlanID: types.PlanFree}, plan: types.PlanStarter, want: types.ActionTypeUpgrade},
		{name: "same plan is renewal", current: starter, plan: types.PlanStarter, want: types.ActionTypeRenewal},
		{name: "same plan while expired is still renewal", current: &models.Subscription{PlanID: types.PlanStarter, Status: types.SubscriptionStatusExpired}, plan: types.PlanStarter, want: types.ActionTypeRenewal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decideAction(tt.current, tt.plan))
		})
	}
}

func TestMapDuplicateErr(t *testing.T) {
	err := mapDuplicateErr(gorm.ErrDuplicatedKey, "pay_123")
	require.True(t, errors.Is(err, ErrPaymentAlreadyProcessed))

	other := errors.New("connection refused")
	assert.Equal(t, other, mapDuplicateErr(other, "pay_123"))
}

func TestCachedResult(t *testing.T) {
	processedAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		UserID: "u1",
		PlanID: types.PlanStarter,
		Status: types.SubscriptionStatusActive,
	}
	row := &models.ProcessedPayment{
		PaymentID:   "pay_123",
		UserID:      "u1",
		PlanID:      types.PlanStarter,
		ActionType:  types.ActionTypeUpgrade,
		ExpiresAt:   processedAt.Add(30 * 24 * time.Hour),
		Result:      datatypes.NewJSONType(sub),
		ProcessedAt: processedAt,
	}

	got := cachedResult(row)
	assert.Equal(t, ProcessStatusAlreadyProcessed, got.Status)
	assert.Equal(t, types.ActionTypeUpgrade, got.ActionType)
	assert.Equal(t, 30, got.DurationDays)
	assert.Equal(t, processedAt, got.ProcessedAt)
	require.NotNil(t, got.Subscription)
	assert.Equal(t, "u1", got.Subscription.UserID)

	// redelivery must yield the identical payload every time
	assert.Equal(t, got, cachedResult(row))
}

// memStore drives the transactional flow in memory. AppendLedger enforces
// the (payment_id, user_id) unique index the way postgres does.
type memStore struct {
	current *models.Subscription
	rows    map[string]*models.ProcessedPayment
	calls   []string
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*models.ProcessedPayment{}}
}

func (m *memStore) CurrentSubscription(_ context.Context, _ string) (*models.Subscription, error) {
	m.calls = append(m.calls, "current")
	return m.current, nil
}

func (m *memStore) AppendLedger(_ context.Context, row *models.ProcessedPayment) error {
	m.calls = append(m.calls, "append")
	key := row.PaymentID + "|" + row.UserID
	if _, ok := m.rows[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *row
	m.rows[key] = &cp
	return nil
}

func (m *memStore) ApplySubscription(_ context.Context, next *models.Subscription, _ datatypes.JSONMap) (*models.Subscription, error) {
	m.calls = append(m.calls, "apply")
	if next.ID == "" {
		next.ID = tool.GenerateUUIDV7()
	}
	m.current = next
	return next, nil
}

func (m *memStore) CacheResult(_ context.Context, ledgerID string, applied *models.Subscription) error {
	m.calls = append(m.calls, "cache")
	for _, row := range m.rows {
		if row.ID == ledgerID {
			row.Result = datatypes.NewJSONType(applied)
		}
	}
	return nil
}

func TestProcessTxAppliesPaymentOnce(t *testing.T) {
	p := NewProcessor(nil, nil, zap.NewNop().Sugar(), nil)
	store := newMemStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := &ProcessRequest{
		PaymentID: "pay_100",
		UserID:    "u1",
		PlanID:    types.PlanStarter,
		Source:    types.PaymentSourceWebhook,
	}

	first, err := p.processTx(context.Background(), store, req, types.PlanStarter, now)
	require.NoError(t, err)
	assert.Equal(t, ProcessStatusProcessed, first.Status)
	assert.Equal(t, types.ActionTypeNew, first.ActionType)
	assert.Equal(t, 30, first.DurationDays)
	assert.Equal(t, now.Add(30*24*time.Hour), *first.Subscription.ExpiresAt)
	// The ledger row is claimed before the subscription is touched.
	assert.Equal(t, []string{"current", "append", "apply", "cache"}, store.calls)

	// Redelivery of the same payment loses the insert race and stops
	// before mutating anything or logging a change.
	expiresBefore := *store.current.ExpiresAt
	store.calls = nil
	_, err = p.processTx(context.Background(), store, req, types.PlanStarter, now.Add(time.Hour))
	require.ErrorIs(t, err, ErrPaymentAlreadyProcessed)
	assert.Equal(t, []string{"current", "append"}, store.calls)
	assert.Equal(t, expiresBefore, *store.current.ExpiresAt)

	// The winner's cached row answers the redelivery identically.
	row := store.rows["pay_100|u1"]
	require.NotNil(t, row)
	cached := cachedResult(row)
	assert.Equal(t, ProcessStatusAlreadyProcessed, cached.Status)
	assert.Equal(t, first.ActionType, cached.ActionType)
	assert.Equal(t, first.DurationDays, cached.DurationDays)
	assert.Equal(t, first.Subscription.ExpiresAt, cached.Subscription.ExpiresAt)
	assert.Equal(t, first.ProcessedAt, cached.ProcessedAt)
}

func TestProcessRejectsUnpayablePlan(t *testing.T) {
	p := NewProcessor(nil, nil, zap.NewNop().Sugar(), nil)
	_, err := p.Process(context.Background(), &ProcessRequest{
		PaymentID: "pay_1",
		UserID:    "u1",
		PlanID:    types.PlanFree,
		Source:    types.PaymentSourceVerifyPayment,
	})
	require.ErrorIs(t, err, ErrPlanNotPayable)
}
