package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRegisterBillingRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/billing")
	RegisterBillingRoutes(g, nil, nil, nil, nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /api/v1/billing/config"))
	require.True(t, contains("POST /api/v1/billing/create-subscription"))
	require.True(t, contains("POST /api/v1/billing/verify-payment"))
	require.True(t, contains("GET /api/v1/billing/subscription-status"))
	require.True(t, contains("POST /api/v1/billing/cancel-subscription"))
	require.True(t, contains("POST /api/v1/billing/pause-subscription"))
	require.True(t, contains("POST /api/v1/billing/resume-subscription"))
}

func TestRegisterAdminRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/admin")
	RegisterAdminRoutes(g, nil, nil, nil, nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /api/v1/admin/subscriptions/:user_id"))
	require.True(t, contains("PUT /api/v1/admin/subscriptions/:user_id/extend"))
	require.True(t, contains("POST /api/v1/admin/subscriptions/:user_id/renew"))
	require.True(t, contains("PUT /api/v1/admin/subscriptions/:user_id/lifetime"))
	require.True(t, contains("PUT /api/v1/admin/subscriptions/:user_id/plan"))
	require.True(t, contains("GET /api/v1/admin/plans"))
	require.True(t, contains("POST /api/v1/admin/list_processed_payments"))
	require.True(t, contains("POST /api/v1/admin/get_billing_statistic"))
}
