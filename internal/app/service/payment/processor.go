package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botsmith/billing/internal/app/service/duration"
	subsvc "github.com/botsmith/billing/internal/app/service/subscription"
	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/logctx"
	"github.com/botsmith/billing/pkg/metrics"
	"github.com/botsmith/billing/pkg/tool"
	"github.com/botsmith/billing/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Processor is the single entry point for applying payments to
// subscriptions. Every payment-bearing endpoint (verify-payment, webhook,
// callback) funnels through Process.
type Processor struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.SugaredLogger
	subSvc *subsvc.Service
}

func NewProcessor(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, sub *subsvc.Service) *Processor {
	return &Processor{cfg: cfg, db: db, log: log, subSvc: sub}
}

type ProcessRequest struct {
	PaymentID string              `json:"payment_id"`
	UserID    string              `json:"user_id"`
	PlanID    types.PlanID        `json:"plan_id"`
	Source    types.PaymentSource `json:"source"`
	// RazorpaySubscriptionID links the provider subscription when known.
	RazorpaySubscriptionID string `json:"razorpay_subscription_id,omitempty"`
	AutoRenew              bool   `json:"auto_renew,omitempty"`
}

type ProcessStatus string

const (
	ProcessStatusProcessed        ProcessStatus = "processed"
	ProcessStatusAlreadyProcessed ProcessStatus = "already_processed"
)

type ProcessResult struct {
	Status       ProcessStatus        `json:"status"`
	ActionType   types.ActionType     `json:"action_type"`
	DurationDays int                  `json:"duration_days"`
	Subscription *models.Subscription `json:"subscription"`
	ProcessedAt  time.Time            `json:"processed_at"`
}

// decideAction classifies the payment against the current subscription:
// no subscription means new, a different plan means upgrade, the same plan
// means renewal.
func decideAction(current *models.Subscription, planID types.PlanID) types.ActionType {
	if current == nil {
		return types.ActionTypeNew
	}
	if duration.IsPlanChange(current.PlanID, planID) {
		return types.ActionTypeUpgrade
	}
	return types.ActionTypeRenewal
}

func cachedResult(row *models.ProcessedPayment) *ProcessResult {
	return &ProcessResult{
		Status:       ProcessStatusAlreadyProcessed,
		ActionType:   row.ActionType,
		DurationDays: int(row.ExpiresAt.Sub(row.ProcessedAt) / (24 * time.Hour)),
		Subscription: row.Result.Data(),
		ProcessedAt:  row.ProcessedAt,
	}
}

// Process applies a payment exactly once. A redelivery of the same
// (payment_id, user_id) returns the cached result of the first application;
// the ledger's composite unique index decides the winner when two deliveries
// race.
func (p *Processor) Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	if req == nil || req.PaymentID == "" || req.UserID == "" {
		return nil, fmt.Errorf("missing payment_id or user_id")
	}
	planID := types.NormalizePlanID(string(req.PlanID))
	if !planID.Known() {
		return nil, fmt.Errorf("%w: %s", duration.ErrUnknownPlan, req.PlanID)
	}
	if !planID.Paid() {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotPayable, planID)
	}
	log := logctx.FromCtx(ctx, p.log)

	// Fast path: already in the ledger.
	if row, err := p.lookupLedger(ctx, p.db, req.PaymentID, req.UserID); err != nil {
		return nil, err
	} else if row != nil {
		log.Warnw("payment already processed, returning cached result",
			"payment_id", req.PaymentID, "user_id", req.UserID, "processed_at", row.ProcessedAt)
		metrics.DuplicatePaymentsTotal.Inc()
		return cachedResult(row), nil
	}

	var result *ProcessResult
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := p.processTx(ctx, &gormTxStore{tx: tx, subSvc: p.subSvc}, req, planID, time.Now().UTC())
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrPaymentAlreadyProcessed) {
			row, lookupErr := p.lookupLedger(ctx, p.db, req.PaymentID, req.UserID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if row == nil {
				return nil, fmt.Errorf("ledger row missing after duplicate-key conflict: %s", req.PaymentID)
			}
			log.Warnw("lost idempotency race, returning winner's result",
				"payment_id", req.PaymentID, "user_id", req.UserID)
			metrics.DuplicatePaymentsTotal.Inc()
			return cachedResult(row), nil
		}
		return nil, fmt.Errorf("failed to process payment %s: %w", req.PaymentID, err)
	}

	metrics.PaymentsProcessedTotal.WithLabelValues(string(req.Source), string(result.ActionType)).Inc()
	log.Infow("payment processed",
		"payment_id", req.PaymentID, "user_id", req.UserID,
		"plan_id", planID, "action", result.ActionType, "expires_at", result.Subscription.ExpiresAt)
	return result, nil
}

// processTx is the transactional core of Process. The ledger insert comes
// first: a delivery that loses the unique-index race fails there, before any
// subscription mutation, user-mirror write, or change log exists.
func (p *Processor) processTx(ctx context.Context, store txStore, req *ProcessRequest, planID types.PlanID, now time.Time) (*ProcessResult, error) {
	log := logctx.FromCtx(ctx, p.log)

	current, err := store.CurrentSubscription(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	action := decideAction(current, planID)
	calc, err := duration.Calculate(now, action, planID, current)
	if err != nil {
		return nil, err
	}
	log.Infow("payment duration calculated",
		"payment_id", req.PaymentID, "action", action,
		"duration_days", calc.DurationDays, "expires_at", calc.ExpiresAt)

	ledger := &models.ProcessedPayment{
		ID:            tool.GenerateUUIDV7(),
		PaymentID:     req.PaymentID,
		UserID:        req.UserID,
		PlanID:        planID,
		ActionType:    action,
		IsUpgrade:     action == types.ActionTypeUpgrade,
		PaymentSource: req.Source,
		ExpiresAt:     calc.ExpiresAt,
		ProcessedAt:   now,
	}
	if err := store.AppendLedger(ctx, ledger); err != nil {
		// A concurrent delivery won the insert; defer to the winner's
		// cached result.
		return nil, mapDuplicateErr(err, req.PaymentID)
	}

	// Usage survives a same-plan renewal, resets on everything else.
	usage := models.FreshUsage(now)
	if action == types.ActionTypeRenewal && current != nil && current.Usage.Data() != nil {
		usage = current.Usage.Data()
	}

	sub := &models.Subscription{
		UserID:        req.UserID,
		PlanID:        planID,
		Status:        types.SubscriptionStatusActive,
		StartedAt:     calc.StartedAt,
		ExpiresAt:     lo.ToPtr(calc.ExpiresAt),
		AutoRenew:     req.AutoRenew,
		LastPaymentID: lo.ToPtr(req.PaymentID),
		Usage:         datatypes.NewJSONType(usage),
	}
	if req.RazorpaySubscriptionID != "" {
		sub.RazorpaySubscriptionID = lo.ToPtr(req.RazorpaySubscriptionID)
	} else if current != nil {
		sub.RazorpaySubscriptionID = current.RazorpaySubscriptionID
	}
	if current != nil {
		sub.LifetimeAccess = current.LifetimeAccess
	}

	applied, err := store.ApplySubscription(ctx, sub,
		datatypes.JSONMap{"payment_id": req.PaymentID, "source": string(req.Source)})
	if err != nil {
		return nil, err
	}

	if err := store.CacheResult(ctx, ledger.ID, applied); err != nil {
		return nil, err
	}

	return &ProcessResult{
		Status:       ProcessStatusProcessed,
		ActionType:   action,
		DurationDays: calc.DurationDays,
		Subscription: applied,
		ProcessedAt:  now,
	}, nil
}

func (p *Processor) lookupLedger(ctx context.Context, tx *gorm.DB, paymentID, userID string) (*models.ProcessedPayment, error) {
	var row models.ProcessedPayment
	err := tx.WithContext(ctx).
		Where("payment_id = ? AND user_id = ?", paymentID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check idempotency ledger: %w", err)
	}
	return &row, nil
}
