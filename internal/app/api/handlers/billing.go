package handlers

import (
	"errors"
	"net/http"

	"github.com/botsmith/billing/internal/app/service/payment"
	subsvc "github.com/botsmith/billing/internal/app/service/subscription"
	rzpclient "github.com/botsmith/billing/internal/platform/razorpay"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/response"
	"github.com/botsmith/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// PlanItem is the public view of a catalog plan. Provider ids stay internal.
type PlanItem struct {
	ID           types.PlanID `json:"id"`
	Name         string       `json:"name"`
	Price        int64        `json:"price"`
	Currency     string       `json:"currency"`
	DurationDays int          `json:"duration_days"`
}

type BillingConfigResponse struct {
	KeyID string      `json:"key_id"`
	Plans []*PlanItem `json:"plans"`
}

func toPlanItem(p *types.Plan) *PlanItem {
	return &PlanItem{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
	}
}

// @Summary      Billing config
// @Description  Returns the plan catalog and the checkout key id.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespBillingConfig
// @Router       /api/v1/billing/config [get]
func ApiBillingConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(&BillingConfigResponse{
			KeyID: cfg.Razorpay.KeyID,
			Plans: lo.Map(cfg.Plans, func(p *types.Plan, _ int) *PlanItem { return toPlanItem(p) }),
		}))
	}
}

type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ShortURL       string `json:"short_url,omitempty"`
	KeyID          string `json:"key_id"`
	PlanID         string `json:"plan_id"`
}

// @Summary      Create checkout subscription
// @Description  Creates a provider-side subscription for the caller to pay via checkout.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body CreateSubscriptionRequest true "Target plan"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/create-subscription [post]
func ApiCreateSubscription(cfg *config.Config, rzp *rzpclient.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		plan := cfg.GetPlanByID(types.NormalizePlanID(req.PlanID))
		if plan == nil || !plan.ID.Paid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "unknown or free plan"))
			return
		}

		sub, err := rzp.CreateSubscription(c.Request.Context(), &rzpclient.CreateSubscriptionParams{
			Plan:          plan,
			UserID:        c.GetString("userID"),
			CustomerEmail: c.GetString("userEmail"),
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		out := &CreateSubscriptionResponse{KeyID: cfg.Razorpay.KeyID, PlanID: string(plan.ID)}
		if v, ok := sub["id"].(string); ok {
			out.SubscriptionID = v
		}
		if v, ok := sub["short_url"].(string); ok {
			out.ShortURL = v
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

type VerifyPaymentRequest struct {
	RazorpayPaymentID      string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySubscriptionID string `json:"razorpay_subscription_id" binding:"required"`
	RazorpaySignature      string `json:"razorpay_signature" binding:"required"`
	PlanID                 string `json:"plan_id" binding:"required"`
}

// @Summary      Verify checkout payment
// @Description  Verifies the checkout signature and applies the payment exactly once.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body VerifyPaymentRequest true "Checkout result"
// @Success      200  {object}  handlers.RespProcessResult
// @Router       /api/v1/billing/verify-payment [post]
func ApiVerifyPayment(rzp *rzpclient.Client, pay *payment.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !rzp.VerifyPaymentSignature(req.RazorpaySubscriptionID, req.RazorpayPaymentID, req.RazorpaySignature) {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid payment signature"))
			return
		}

		res, err := pay.Process(c.Request.Context(), &payment.ProcessRequest{
			PaymentID:              req.RazorpayPaymentID,
			UserID:                 c.GetString("userID"),
			PlanID:                 types.PlanID(req.PlanID),
			Source:                 types.PaymentSourceVerifyPayment,
			RazorpaySubscriptionID: req.RazorpaySubscriptionID,
			AutoRenew:              true,
		})
		if err != nil {
			if errors.Is(err, payment.ErrPlanNotPayable) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Subscription status
// @Description  Returns the caller's subscription status with remaining days.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespSubscriptionStatus
// @Router       /api/v1/billing/subscription-status [get]
func ApiSubscriptionStatus(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := sub.Status(c.Request.Context(), c.GetString("userID"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(status))
	}
}

// @Summary      Cancel subscription
// @Description  Cancels the caller's subscription at the provider and locally.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/cancel-subscription [post]
func ApiCancelSubscription(rzp *rzpclient.Client, sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		current, err := sub.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if current == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no subscription"))
			return
		}
		if subID := lo.FromPtr(current.RazorpaySubscriptionID); subID != "" {
			// access runs until the paid period ends
			if _, err := rzp.CancelSubscription(c.Request.Context(), subID, true); err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
				return
			}
		}
		if err := sub.Cancel(c.Request.Context(), userID, types.SubscriptionChangeReasonCancel); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Pause subscription
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/pause-subscription [post]
func ApiPauseSubscription(rzp *rzpclient.Client, sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		current, err := sub.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		var subID string
		if current != nil {
			subID = lo.FromPtr(current.RazorpaySubscriptionID)
		}
		if subID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no provider subscription"))
			return
		}
		if _, err := rzp.PauseSubscription(c.Request.Context(), subID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if err := sub.MarkPaused(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Resume subscription
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/resume-subscription [post]
func ApiResumeSubscription(rzp *rzpclient.Client, sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		current, err := sub.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		var subID string
		if current != nil {
			subID = lo.FromPtr(current.RazorpaySubscriptionID)
		}
		if subID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no provider subscription"))
			return
		}
		if _, err := rzp.ResumeSubscription(c.Request.Context(), subID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if err := sub.MarkResumed(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Sync authenticated user
// @Description  Ensures the caller has a local user row and a free subscription.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/auth/sync [post]
func ApiAuthSync(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "no user identity"))
			return
		}
		created, err := sub.CreateForSignup(c.Request.Context(), userID, c.GetString("userEmail"))
		if err != nil {
			if errors.Is(err, subsvc.ErrSubscriptionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(created))
	}
}

func RegisterBillingRoutes(r gin.IRouter, cfg *config.Config, rzp *rzpclient.Client, pay *payment.Processor, sub *subsvc.Service) {
	r.GET("/config", ApiBillingConfig(cfg))
	r.POST("/create-subscription", ApiCreateSubscription(cfg, rzp))
	r.POST("/verify-payment", ApiVerifyPayment(rzp, pay))
	r.GET("/subscription-status", ApiSubscriptionStatus(sub))
	r.POST("/cancel-subscription", ApiCancelSubscription(rzp, sub))
	r.POST("/pause-subscription", ApiPauseSubscription(rzp, sub))
	r.POST("/resume-subscription", ApiResumeSubscription(rzp, sub))
}

func RegisterAuthRoutes(r gin.IRouter, sub *subsvc.Service) {
	r.POST("/sync", ApiAuthSync(sub))
}
