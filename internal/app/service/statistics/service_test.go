package statistics

import (
	"testing"

	"github.com/botsmith/billing/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFilters(t *testing.T) {
	req := &BillingStatisticRequest{
		Filters: []*types.CommonFilter{
			{Field: "plan_id", Operator: "eq", Values: []any{"starter"}},
			{Field: "action_type", Operator: "eq", Values: []any{"upgrade"}},
			{Field: "processed_at", Operator: "gte", Values: []any{"2025-01-01"}},
		},
	}

	forCount := req.GetFilters(StatisticTypeDailyPaymentCount)
	require.Len(t, forCount.Filters, 3)

	// action_type does not apply to revenue, the plain column filter passes through
	forRevenue := req.GetFilters(StatisticTypeDailyRevenue)
	require.Len(t, forRevenue.Filters, 2)
	assert.Equal(t, "plan_id", forRevenue.Filters[0].Field)
	assert.Equal(t, "processed_at", forRevenue.Filters[1].Field)

	var empty *BillingStatisticRequest
	assert.Nil(t, empty.GetFilters(StatisticTypeDailyPaymentCount))
}
