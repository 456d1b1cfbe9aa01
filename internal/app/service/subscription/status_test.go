package subscription

import (
	"testing"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/types"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestBuildStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name string
		sub  *models.Subscription
		want types.SubscriptionStatusInfo
	}{
		{
			name: "no subscription",
			sub:  nil,
			want: types.SubscriptionStatusInfo{Exists: false, IsExpired: true},
		},
		{
			name: "active with plenty of time",
			sub: &models.Subscription{
				PlanID:    types.PlanStarter,
				Status:    types.SubscriptionStatusActive,
				ExpiresAt: lo.ToPtr(now.Add(20 * day)),
			},
			want: types.SubscriptionStatusInfo{
				Exists: true, PlanID: types.PlanStarter, Status: types.SubscriptionStatusActive,
				DaysRemaining: 20, ExpiresAt: lo.ToPtr(now.Add(20 * day)),
			},
		},
		{
			name: "expiring soon",
			sub: &models.Subscription{
				PlanID:    types.PlanFree,
				Status:    types.SubscriptionStatusActive,
				ExpiresAt: lo.ToPtr(now.Add(2 * day)),
			},
			want: types.SubscriptionStatusInfo{
				Exists: true, PlanID: types.PlanFree, Status: types.SubscriptionStatusActive,
				IsExpiringSoon: true, DaysRemaining: 2, ExpiresAt: lo.ToPtr(now.Add(2 * day)),
			},
		},
		{
			name: "expired",
			sub: &models.Subscription{
				PlanID:    types.PlanProfessional,
				Status:    types.SubscriptionStatusActive,
				ExpiresAt: lo.ToPtr(now.Add(-day)),
			},
			want: types.SubscriptionStatusInfo{
				Exists: true, PlanID: types.PlanProfessional, Status: types.SubscriptionStatusActive,
				IsExpired: true, ExpiresAt: lo.ToPtr(now.Add(-day)),
			},
		},
		{
			name: "lifetime access never expires",
			sub: &models.Subscription{
				PlanID:         types.PlanEnterprise,
				Status:         types.SubscriptionStatusActive,
				LifetimeAccess: true,
			},
			want: types.SubscriptionStatusInfo{
				Exists: true, PlanID: types.PlanEnterprise, Status: types.SubscriptionStatusActive,
				LifetimeAccess: true,
			},
		},
		{
			name: "missing expiry without lifetime counts as expired",
			sub: &models.Subscription{
				PlanID: types.PlanStarter,
				Status: types.SubscriptionStatusActive,
			},
			want: types.SubscriptionStatusInfo{
				Exists: true, PlanID: types.PlanStarter, Status: types.SubscriptionStatusActive,
				IsExpired: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildStatus(now, tt.sub)
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestSubscriptionValid(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	var nilSub *models.Subscription
	assert.False(t, nilSub.Valid())

	assert.True(t, (&models.Subscription{
		Status:    types.SubscriptionStatusActive,
		ExpiresAt: &future,
	}).Valid())

	assert.False(t, (&models.Subscription{
		Status:    types.SubscriptionStatusActive,
		ExpiresAt: &past,
	}).Valid())

	assert.False(t, (&models.Subscription{
		Status:    types.SubscriptionStatusCancelled,
		ExpiresAt: &future,
	}).Valid())

	assert.True(t, (&models.Subscription{
		Status:         types.SubscriptionStatusActive,
		LifetimeAccess: true,
	}).Valid())

	assert.False(t, (&models.Subscription{
		Status:         types.SubscriptionStatusCancelled,
		LifetimeAccess: true,
	}).Valid())
}
