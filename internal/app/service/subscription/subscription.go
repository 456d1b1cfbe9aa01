package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/logctx"
	"github.com/botsmith/billing/pkg/tool"
	"github.com/botsmith/billing/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate makes a transactional subscription read take a row lock, so
// two concurrent writers for the same user serialize instead of both reading
// the same expiry.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetByUserID loads the user's subscription. Returns (nil, nil) when none
// exists; a missing subscription is a normal state, not an error.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.getByUserID(ctx, s.db, userID)
}

// GetWithTx is GetByUserID inside an enclosing transaction. The row is
// locked until the transaction ends.
func (s *Service) GetWithTx(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	return s.getByUserID(ctx, lockForUpdate(tx), userID)
}

func (s *Service) getByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// Apply upserts the user's subscription row, preserving id/created_at of an
// existing row, mirrors the billing fields onto the user record, and writes
// a before/after change log asynchronously. tx may be nil to run outside an
// enclosing transaction.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, next *models.Subscription, reason types.SubscriptionChangeReason, extra datatypes.JSONMap) (*models.Subscription, error) {
	if tx == nil {
		tx = s.db
	}

	original, err := s.getByUserID(ctx, tx, next.UserID)
	if err != nil {
		return nil, err
	}

	if original != nil {
		next.ID = original.ID
		next.CreatedAt = original.CreatedAt
	} else if next.ID == "" {
		next.ID = tool.GenerateUUIDV7()
	}

	before := func() *models.Subscription {
		if original == nil {
			return nil
		}
		cp := *original
		return &cp
	}()

	if err := tx.WithContext(ctx).Save(next).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	if err := s.syncUserMirror(ctx, tx, next); err != nil {
		return nil, err
	}

	// async log
	go func(b, a *models.Subscription, extra datatypes.JSONMap) {
		if extra == nil {
			extra = datatypes.JSONMap{}
		}
		log := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: a.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(b),
			After:  datatypes.NewJSONType(a),
			Extra:  extra,
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}(before, next, extra)

	return next, nil
}

// syncUserMirror keeps plan/lifetime/expiry duplicated on the user row so
// product code can gate features without a join.
func (s *Service) syncUserMirror(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	updates := map[string]any{
		"plan_id":                 sub.PlanID,
		"lifetime_access":         sub.LifetimeAccess,
		"subscription_expires_at": sub.ExpiresAt,
		"updated_at":              time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", sub.UserID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to sync user record: %w", err)
	}
	return nil
}
