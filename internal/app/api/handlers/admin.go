package handlers

import (
	"errors"
	"net/http"

	"github.com/botsmith/billing/internal/app/service/payment"
	"github.com/botsmith/billing/internal/app/service/statistics"
	subsvc "github.com/botsmith/billing/internal/app/service/subscription"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/response"
	"github.com/botsmith/billing/pkg/types"

	"github.com/gin-gonic/gin"
)

func adminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subsvc.ErrSubscriptionNotFound):
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
	case errors.Is(err, subsvc.ErrLifetimeAccess):
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	default:
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	}
}

// @Summary      Get User Subscription (Admin)
// @Tags         Admin
// @Produce      json
// @Param        user_id path string true "User ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{user_id} [get]
func ApiAdminGetSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, err := sub.GetByUserID(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			adminError(c, err)
			return
		}
		if current == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no subscription"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(current))
	}
}

type AdminExtendRequest struct {
	Days int `json:"days" binding:"required"`
}

// @Summary      Extend Subscription (Admin)
// @Description  Pushes the expiry out by the given days, from now when already expired.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        user_id path string true "User ID"
// @Param        request body AdminExtendRequest true "Extension request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{user_id}/extend [put]
func ApiAdminExtendSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminExtendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Days <= 0 {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "days must be positive"))
			return
		}
		res, err := sub.Extend(c.Request.Context(), c.Param("user_id"), req.Days, c.GetString("userID"))
		if err != nil {
			adminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Renew Subscription (Admin)
// @Description  Applies one plan period on top of the remaining time.
// @Tags         Admin
// @Produce      json
// @Param        user_id path string true "User ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{user_id}/renew [post]
func ApiAdminRenewSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := sub.RenewByPlan(c.Request.Context(), c.Param("user_id"), c.GetString("userID"))
		if err != nil {
			adminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type AdminLifetimeRequest struct {
	Grant *bool `json:"grant" binding:"required"`
}

// @Summary      Set Lifetime Access (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        user_id path string true "User ID"
// @Param        request body AdminLifetimeRequest true "Grant or revoke"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{user_id}/lifetime [put]
func ApiAdminSetLifetime(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminLifetimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := sub.SetLifetime(c.Request.Context(), c.Param("user_id"), *req.Grant, c.GetString("userID"))
		if err != nil {
			adminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type AdminChangePlanRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
	Reason string `json:"reason"`
}

// @Summary      Change Plan (Admin)
// @Description  Moves the user to a new plan with a fresh period starting now.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        user_id path string true "User ID"
// @Param        request body AdminChangePlanRequest true "Plan change request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{user_id}/plan [put]
func ApiAdminChangePlan(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminChangePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := sub.AdminChangePlan(c.Request.Context(), c.Param("user_id"), types.PlanID(req.PlanID), c.GetString("userID"), req.Reason)
		if err != nil {
			adminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Plans (Admin)
// @Description  Returns the full plan catalog including provider plan ids.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/plans [get]
func ApiAdminListPlans(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(cfg.Plans))
	}
}

type ListProcessedPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// @Summary      List Processed Payments (Admin)
// @Description  Retrieves a paginated and filterable view of the payment ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListProcessedPaymentsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListProcessedPayments
// @Router       /api/v1/admin/list_processed_payments [post]
func ApiAdminListProcessedPayments(pay *payment.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListProcessedPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := pay.ScanProcessedPayments(c.Request.Context(), &payment.ScanProcessedPaymentsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Billing Statistics (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.BillingStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespBillingStatistic
// @Router       /api/v1/admin/get_billing_statistic [post]
func ApiAdminGetBillingStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.BillingStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetBillingStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, cfg *config.Config, sub *subsvc.Service, pay *payment.Processor, stats *statistics.Service) {
	r.GET("/subscriptions/:user_id", ApiAdminGetSubscription(sub))
	r.PUT("/subscriptions/:user_id/extend", ApiAdminExtendSubscription(sub))
	r.POST("/subscriptions/:user_id/renew", ApiAdminRenewSubscription(sub))
	r.PUT("/subscriptions/:user_id/lifetime", ApiAdminSetLifetime(sub))
	r.PUT("/subscriptions/:user_id/plan", ApiAdminChangePlan(sub))
	r.GET("/plans", ApiAdminListPlans(cfg))
	r.POST("/list_processed_payments", ApiAdminListProcessedPayments(pay))
	r.POST("/get_billing_statistic", ApiAdminGetBillingStatistic(stats))
}
