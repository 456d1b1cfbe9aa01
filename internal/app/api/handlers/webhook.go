package handlers

import (
	"errors"
	"net/http"

	wh "github.com/botsmith/billing/internal/app/service/webhook_handler"
	"github.com/botsmith/billing/pkg/logctx"
	"github.com/botsmith/billing/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Razorpay Webhook
// @Description  Handles Razorpay subscription webhooks. The body is verified against X-Razorpay-Signature.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/webhook [post]
func ApiRazorpayWebhook(h *wh.WebhookHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.HandleWebhook(c); err != nil {
			logctx.FromCtx(c, h.Logger).Errorw("webhook_handle_error", "error", err.Error())
			if errors.Is(err, wh.ErrInvalidSignature) {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
				return
			}
			// non-2xx so the provider redelivers; the ledger keeps a retry safe
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h *wh.WebhookHandler) {
	r.POST("/webhook", ApiRazorpayWebhook(h))
}
