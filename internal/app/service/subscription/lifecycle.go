package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botsmith/billing/internal/app/service/duration"
	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/logctx"
	"github.com/botsmith/billing/pkg/types"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateForSignup provisions a user row and a free-trial subscription on
// first login. Idempotent per user: an existing subscription is returned
// untouched.
func (s *Service) CreateForSignup(ctx context.Context, userID, email string) (*models.Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id")
	}

	var result *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load user: %w", err)
			}
			user = models.User{ID: userID, Email: email, PlanID: types.PlanFree}
			if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		}

		existing, err := s.getByUserID(ctx, lockForUpdate(tx), userID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		now := time.Now().UTC()
		calc, err := duration.Calculate(now, types.ActionTypeNew, types.PlanFree, nil)
		if err != nil {
			return err
		}

		sub := &models.Subscription{
			UserID:    userID,
			PlanID:    types.PlanFree,
			Status:    types.SubscriptionStatusActive,
			StartedAt: calc.StartedAt,
			ExpiresAt: lo.ToPtr(calc.ExpiresAt),
			Usage:     datatypes.NewJSONType(models.FreshUsage(now)),
		}
		result, err = s.Apply(ctx, tx, sub, types.SubscriptionChangeReasonSignup, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create signup subscription: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("signup subscription ready", "user_id", userID, "plan_id", result.PlanID)
	return result, nil
}

// Status reports whether the user's subscription is active, expired, or
// expiring within the warning window.
func (s *Service) Status(ctx context.Context, userID string) (*types.SubscriptionStatusInfo, error) {
	sub, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildStatus(time.Now().UTC(), sub), nil
}

// BuildStatus derives the status view at a given instant.
func BuildStatus(now time.Time, sub *models.Subscription) *types.SubscriptionStatusInfo {
	if sub == nil {
		return &types.SubscriptionStatusInfo{Exists: false, IsExpired: true}
	}
	info := &types.SubscriptionStatusInfo{
		Exists:         true,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		LifetimeAccess: sub.LifetimeAccess,
		ExpiresAt:      sub.ExpiresAt,
	}
	if sub.LifetimeAccess {
		return info
	}
	if sub.ExpiresAt == nil {
		info.IsExpired = true
		return info
	}
	info.IsExpired = !sub.ExpiresAt.After(now)
	info.DaysRemaining = duration.RemainingDays(now, sub.ExpiresAt)
	info.IsExpiringSoon = !info.IsExpired && info.DaysRemaining <= duration.ExpiringSoonDays
	return info
}

// Extend lengthens the subscription by days, counted from the current expiry
// when still in the future, otherwise from now. Rejected for lifetime rows.
func (s *Service) Extend(ctx context.Context, userID string, days int, operatorID string) (*models.Subscription, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive")
	}

	var result *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.getByUserID(ctx, lockForUpdate(tx), userID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrSubscriptionNotFound
		}
		if sub.LifetimeAccess {
			return ErrLifetimeAccess
		}

		now := time.Now().UTC()
		base := now
		if sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
			base = sub.ExpiresAt.UTC()
		}
		sub.ExpiresAt = lo.ToPtr(base.Add(time.Duration(days) * 24 * time.Hour))
		sub.Status = types.SubscriptionStatusActive

		result, err = s.Apply(ctx, tx, sub, types.SubscriptionChangeReasonExtend,
			datatypes.JSONMap{"operator_id": operatorID, "days": days})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RenewByPlan extends by the plan's own period length (6 days free, 30 paid).
func (s *Service) RenewByPlan(ctx context.Context, userID string, operatorID string) (*models.Subscription, error) {
	sub, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	days, err := duration.PlanDuration(sub.PlanID)
	if err != nil {
		return nil, err
	}
	return s.Extend(ctx, userID, days, operatorID)
}

// AdminChangePlan sets a new plan with a fresh period starting now. Usage
// counters are preserved; the change is attributed to the operator.
func (s *Service) AdminChangePlan(ctx context.Context, userID string, newPlan types.PlanID, operatorID, reason string) (*models.Subscription, error) {
	if !newPlan.Known() {
		return nil, fmt.Errorf("%w: %s", duration.ErrUnknownPlan, newPlan)
	}

	var result *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.getByUserID(ctx, lockForUpdate(tx), userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		calc, err := duration.Calculate(now, types.ActionTypeAdminChange, newPlan, current)
		if err != nil {
			return err
		}

		usage := models.FreshUsage(now)
		if current != nil && current.Usage.Data() != nil {
			usage = current.Usage.Data()
		}

		sub := &models.Subscription{
			UserID:            userID,
			PlanID:            newPlan,
			Status:            types.SubscriptionStatusActive,
			StartedAt:         calc.StartedAt,
			ExpiresAt:         lo.ToPtr(calc.ExpiresAt),
			AdminChangedBy:    lo.ToPtr(operatorID),
			AdminChangeReason: lo.ToPtr(reason),
			Usage:             datatypes.NewJSONType(usage),
		}
		if current != nil {
			sub.AutoRenew = current.AutoRenew
			sub.RazorpaySubscriptionID = current.RazorpaySubscriptionID
			sub.LastPaymentID = current.LastPaymentID
		}

		result, err = s.Apply(ctx, tx, sub, types.SubscriptionChangeReasonAdminChange,
			datatypes.JSONMap{"operator_id": operatorID, "reason": reason})
		return err
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("admin plan change applied",
		"user_id", userID, "plan_id", newPlan, "operator_id", operatorID)
	return result, nil
}

// SetLifetime grants or revokes lifetime access. Granting clears the expiry;
// a missing subscription is created on the enterprise plan.
func (s *Service) SetLifetime(ctx context.Context, userID string, grant bool, operatorID string) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.getByUserID(ctx, lockForUpdate(tx), userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if sub == nil {
			if !grant {
				return ErrSubscriptionNotFound
			}
			sub = &models.Subscription{
				UserID:    userID,
				PlanID:    types.PlanEnterprise,
				StartedAt: now,
				Usage:     datatypes.NewJSONType(models.FreshUsage(now)),
			}
		}

		sub.LifetimeAccess = grant
		sub.Status = types.SubscriptionStatusActive
		if grant {
			sub.ExpiresAt = nil
			sub.AutoRenew = false
		}

		result, err = s.Apply(ctx, tx, sub, types.SubscriptionChangeReasonLifetime,
			datatypes.JSONMap{"operator_id": operatorID, "grant": grant})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel marks the subscription cancelled and turns off auto-renew. Access
// is not cut short; expiry still governs validity until the period ends.
func (s *Service) Cancel(ctx context.Context, userID string, reason types.SubscriptionChangeReason) error {
	return s.setStatus(ctx, userID, types.SubscriptionStatusCancelled, reason, func(sub *models.Subscription) {
		sub.AutoRenew = false
	})
}

// MarkPaused and MarkResumed track provider-side pause state from webhooks.
func (s *Service) MarkPaused(ctx context.Context, userID string) error {
	return s.setStatus(ctx, userID, types.SubscriptionStatusPaused, types.SubscriptionChangeReasonPause, nil)
}

func (s *Service) MarkResumed(ctx context.Context, userID string) error {
	return s.setStatus(ctx, userID, types.SubscriptionStatusActive, types.SubscriptionChangeReasonResume, nil)
}

func (s *Service) setStatus(ctx context.Context, userID string, status types.SubscriptionStatus, reason types.SubscriptionChangeReason, mutate func(*models.Subscription)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.getByUserID(ctx, lockForUpdate(tx), userID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrSubscriptionNotFound
		}
		sub.Status = status
		if mutate != nil {
			mutate(sub)
		}
		_, err = s.Apply(ctx, tx, sub, reason, nil)
		return err
	})
}
