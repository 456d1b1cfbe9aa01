package duration

import (
	"testing"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_AllCases(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	subWithExpiry := func(plan types.PlanID, expires time.Time) *models.Subscription {
		return &models.Subscription{PlanID: plan, Status: types.SubscriptionStatusActive, ExpiresAt: &expires}
	}

	tests := []struct {
		name          string
		action        types.ActionType
		plan          types.PlanID
		current       *models.Subscription
		wantErr       bool
		wantExpires   time.Time
		wantDays      int
		wantFresh     bool
		wantPreserved int
	}{
		{
			name:        "new free subscription runs six days",
			action:      types.ActionTypeNew,
			plan:        types.PlanFree,
			wantExpires: now.Add(6 * day),
			wantDays:    6,
			wantFresh:   true,
		},
		{
			name:        "new paid subscription runs thirty days",
			action:      types.ActionTypeNew,
			plan:        types.PlanStarter,
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:   "upgrade discards remaining time",
			action: types.ActionTypeUpgrade,
			plan:   types.PlanProfessional,
			// 20 days left on starter; result must not be now+50
			current:     subWithExpiry(types.PlanStarter, now.Add(20*day)),
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:        "free trial upgraded mid-trial starts fresh thirty days",
			action:      types.ActionTypeUpgrade,
			plan:        types.PlanStarter,
			current:     subWithExpiry(types.PlanFree, now.Add(4*day)),
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:          "renewal of active subscription extends additively",
			action:        types.ActionTypeRenewal,
			plan:          types.PlanStarter,
			current:       subWithExpiry(types.PlanStarter, now.Add(5*day)),
			wantExpires:   now.Add(35 * day),
			wantDays:      35,
			wantFresh:     false,
			wantPreserved: 5,
		},
		{
			name:        "renewal of expired subscription starts fresh",
			action:      types.ActionTypeRenewal,
			plan:        types.PlanProfessional,
			current:     subWithExpiry(types.PlanProfessional, now.Add(-10*day)),
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:        "renewal without current subscription starts fresh",
			action:      types.ActionTypeRenewal,
			plan:        types.PlanStarter,
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:        "renewal with nil expiry starts fresh",
			action:      types.ActionTypeRenewal,
			plan:        types.PlanStarter,
			current:     &models.Subscription{PlanID: types.PlanStarter, Status: types.SubscriptionStatusActive},
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:        "admin change starts fresh regardless of remaining time",
			action:      types.ActionTypeAdminChange,
			plan:        types.PlanEnterprise,
			current:     subWithExpiry(types.PlanStarter, now.Add(25*day)),
			wantExpires: now.Add(30 * day),
			wantDays:    30,
			wantFresh:   true,
		},
		{
			name:    "unknown plan is rejected",
			action:  types.ActionTypeNew,
			plan:    types.PlanID("platinum"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(now, tt.action, tt.plan, tt.current)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrUnknownPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, now, res.StartedAt)
			assert.Equal(t, tt.wantExpires, res.ExpiresAt)
			assert.Equal(t, tt.wantDays, res.DurationDays)
			assert.Equal(t, tt.wantFresh, res.FreshStart)
			assert.Equal(t, tt.wantPreserved, res.RemainingDaysPreserved)
			assert.True(t, res.ExpiresAt.After(res.StartedAt))
		})
	}
}

func TestPlanDuration(t *testing.T) {
	d, err := PlanDuration(types.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, 6, d)

	for _, p := range []types.PlanID{types.PlanStarter, types.PlanProfessional, types.PlanEnterprise} {
		d, err := PlanDuration(p)
		require.NoError(t, err)
		assert.Equal(t, 30, d)
	}

	_, err = PlanDuration(types.PlanID("gold"))
	require.ErrorIs(t, err, ErrUnknownPlan)
}

func TestRemainingDays(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	assert.Equal(t, 0, RemainingDays(now, &past))

	assert.Equal(t, 0, RemainingDays(now, nil))

	in5 := now.Add(5 * 24 * time.Hour)
	assert.Equal(t, 5, RemainingDays(now, &in5))

	// partial days round down
	in5h := now.Add(5*24*time.Hour + 6*time.Hour)
	assert.Equal(t, 5, RemainingDays(now, &in5h))
}

func TestIsPlanChange(t *testing.T) {
	assert.True(t, IsPlanChange(types.PlanFree, types.PlanStarter))
	assert.False(t, IsPlanChange(types.PlanStarter, types.PlanStarter))
}
