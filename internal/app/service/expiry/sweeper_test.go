package expiry

import (
	"testing"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/types"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireLogs(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	overdue := []*models.Subscription{
		{
			ID:        "sub-1",
			UserID:    "u1",
			PlanID:    types.PlanStarter,
			Status:    types.SubscriptionStatusActive,
			ExpiresAt: lo.ToPtr(now.Add(-time.Hour)),
		},
		{
			ID:        "sub-2",
			UserID:    "u2",
			PlanID:    types.PlanFree,
			Status:    types.SubscriptionStatusActive,
			ExpiresAt: lo.ToPtr(now.Add(-48 * time.Hour)),
		},
	}

	logs := expireLogs(overdue)
	require.Len(t, logs, 2)

	for i, entry := range logs {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, overdue[i].UserID, entry.UserID)
		assert.Equal(t, types.SubscriptionChangeReasonExpireSweep, entry.Reason)
		assert.Equal(t, types.SubscriptionStatusActive, entry.Before.Data().Status)
		assert.Equal(t, types.SubscriptionStatusExpired, entry.After.Data().Status)
		assert.Equal(t, overdue[i].PlanID, entry.After.Data().PlanID)
	}

	// Building the log must not flip the source rows; the update statement
	// owns that.
	assert.Equal(t, types.SubscriptionStatusActive, overdue[0].Status)
}
