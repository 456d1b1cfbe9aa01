package webhook_handler

import (
	"encoding/json"
	"fmt"

	"github.com/botsmith/billing/internal/app/service/payment"
	subscription "github.com/botsmith/billing/internal/app/service/subscription"
	webhooklog "github.com/botsmith/billing/internal/app/service/webhook_log"
	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/internal/platform/razorpay"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/metrics"
	"github.com/botsmith/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

var (
	ErrInvalidSignature = fmt.Errorf("invalid webhook signature")
)

type WebhookHandler struct {
	cfg    *config.Config
	rzp    *razorpay.Client
	logSvc *webhooklog.Service
	paySvc *payment.Processor
	subSvc *subscription.Service
	Logger *zap.SugaredLogger
}

func NewWebhookHandler(cfg *config.Config, rzp *razorpay.Client, logSvc *webhooklog.Service, pay *payment.Processor, sub *subscription.Service, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, rzp: rzp, logSvc: logSvc, paySvc: pay, subSvc: sub, Logger: log}
}

// HandleWebhook verifies, logs and dispatches one Razorpay delivery.
// Unknown events return nil so the provider does not keep retrying them.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) (resErr error) {
	body, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("read webhook body: %w", err)
	}

	if !h.rzp.VerifyWebhookSignature(body, c.GetHeader(SignatureHeader)) {
		h.Logger.Warnw("webhook signature verification failed", "remote", c.ClientIP())
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return ErrInvalidSignature
	}

	ev, err := ParseEvent(body)
	if err != nil {
		return err
	}

	userID := ev.UserID()
	var traceID string
	if v, ok := c.Get("traceID"); ok {
		if s, ok2 := v.(string); ok2 {
			traceID = s
		}
	}

	h.logSvc.Save(c.Request.Context(), &models.PaymentWebhookLog{
		Event: ev.Event,
		UserID: func() *string {
			if userID == "" {
				return nil
			}
			return lo.ToPtr(userID)
		}(),
		TraceID:                traceID,
		PaymentID:              ev.PaymentID(),
		ProviderSubscriptionID: ev.ProviderSubscriptionID(),
		NotificationTime:       ev.NotificationTime(),
		Data:                   datatypes.JSON(body),
		Status:                 models.PaymentWebhookLogStatusReceived,
	})

	var result *payment.ProcessResult
	defer func() {
		resMap := map[string]any{
			"result": result,
		}
		outcome := "handled"
		status := models.PaymentWebhookLogStatusHandled
		if resErr != nil {
			resMap["error"] = resErr.Error()
			status = models.PaymentWebhookLogStatusHandleFailed
			outcome = "failed"
		}
		metrics.WebhookEventsTotal.WithLabelValues(ev.Event, outcome).Inc()
		resBytes, _ := json.Marshal(resMap)
		h.logSvc.Save(c.Request.Context(), &models.PaymentWebhookLog{
			Event: ev.Event,
			UserID: func() *string {
				if userID == "" {
					return nil
				}
				return lo.ToPtr(userID)
			}(),
			TraceID:                traceID,
			PaymentID:              ev.PaymentID(),
			ProviderSubscriptionID: ev.ProviderSubscriptionID(),
			NotificationTime:       ev.NotificationTime(),
			Data:                   datatypes.JSON(body),
			Result:                 func() *datatypes.JSON { j := datatypes.JSON(resBytes); return &j }(),
			Status:                 status,
		})
	}()

	h.Logger.Infow("webhook received",
		"event", ev.Event, "user_id", userID,
		"subscription_id", ev.ProviderSubscriptionID(), "payment_id", ev.PaymentID())

	switch ev.Event {
	case EventSubscriptionActivated, EventSubscriptionCharged:
		result, resErr = h.handleCharge(c, ev, userID)
	case EventSubscriptionCancelled:
		resErr = h.requireUser(userID, ev, func() error {
			return h.subSvc.Cancel(c.Request.Context(), userID, types.SubscriptionChangeReasonCancel)
		})
	case EventSubscriptionPaused:
		resErr = h.requireUser(userID, ev, func() error {
			return h.subSvc.MarkPaused(c.Request.Context(), userID)
		})
	case EventSubscriptionResumed:
		resErr = h.requireUser(userID, ev, func() error {
			return h.subSvc.MarkResumed(c.Request.Context(), userID)
		})
	default:
		h.Logger.Infow("ignoring webhook event", "event", ev.Event)
	}
	return resErr
}

func (h *WebhookHandler) handleCharge(c *gin.Context, ev *Event, userID string) (*payment.ProcessResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("event %s: no user_id in subscription notes", ev.Event)
	}
	planID, err := h.resolvePlan(ev)
	if err != nil {
		return nil, err
	}
	paymentID := ev.PaymentID()
	if paymentID == "" {
		return nil, fmt.Errorf("event %s: no payment id and no subscription id", ev.Event)
	}
	return h.paySvc.Process(c.Request.Context(), &payment.ProcessRequest{
		PaymentID:              paymentID,
		UserID:                 userID,
		PlanID:                 planID,
		Source:                 types.PaymentSourceWebhook,
		RazorpaySubscriptionID: ev.ProviderSubscriptionID(),
		AutoRenew:              true,
	})
}

// resolvePlan prefers the internal plan id stamped in the notes and falls
// back to the provider plan id from the subscription entity.
func (h *WebhookHandler) resolvePlan(ev *Event) (types.PlanID, error) {
	if note := ev.PlanNoteID(); note != "" {
		return types.NormalizePlanID(note), nil
	}
	if sub := ev.SubscriptionEntity(); sub != nil && sub.PlanID != "" {
		if plan := h.cfg.GetPlanByRazorpayPlanID(sub.PlanID); plan != nil {
			return plan.ID, nil
		}
		return "", fmt.Errorf("event %s: unmapped provider plan %s", ev.Event, sub.PlanID)
	}
	return "", fmt.Errorf("event %s: no plan information", ev.Event)
}

func (h *WebhookHandler) requireUser(userID string, ev *Event, fn func() error) error {
	if userID == "" {
		return fmt.Errorf("event %s: no user_id in subscription notes", ev.Event)
	}
	return fn()
}
