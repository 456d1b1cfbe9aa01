// Package duration is the single place where subscription periods are
// calculated. Every subscription mutation goes through Calculate; nothing
// else in the codebase adds days to an expiry.
package duration

import (
	"fmt"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/types"
)

const (
	// FreePlanDays is the free trial length.
	FreePlanDays = 6
	// PaidPlanDays is the period length of every paid plan.
	PaidPlanDays = 30
	// ExpiringSoonDays is the warning window used by status checks.
	ExpiringSoonDays = 3
)

var ErrUnknownPlan = fmt.Errorf("unknown plan id")

// Result describes a computed subscription period.
type Result struct {
	StartedAt    time.Time `json:"started_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	DurationDays int       `json:"duration_days"`
	// FreshStart is false only for same-plan renewals of an unexpired
	// subscription, which extend additively.
	FreshStart             bool   `json:"fresh_start"`
	RemainingDaysPreserved int    `json:"remaining_days_preserved"`
	Reason                 string `json:"reason"`
}

// PlanDuration returns the period length in days for a plan.
func PlanDuration(plan types.PlanID) (int, error) {
	if !plan.Known() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}
	if plan == types.PlanFree {
		return FreePlanDays, nil
	}
	return PaidPlanDays, nil
}

// IsPlanChange reports whether moving from old to new is a plan change
// (upgrade/downgrade) as opposed to a same-plan renewal.
func IsPlanChange(oldPlan, newPlan types.PlanID) bool {
	return oldPlan != newPlan
}

// RemainingDays returns whole days left until expiresAt, 0 if already past.
func RemainingDays(now time.Time, expiresAt *time.Time) int {
	if expiresAt == nil || !expiresAt.After(now) {
		return 0
	}
	return int(expiresAt.Sub(now) / (24 * time.Hour))
}

// Calculate computes the period for a subscription mutation.
//
// Rules:
//   - new / upgrade / admin_change: fresh start, now + plan duration.
//     Remaining time on the previous plan is deliberately discarded.
//   - renewal with an unexpired current subscription: current expiry + 30
//     days, so the user keeps what they already paid for.
//   - renewal with an expired (or absent-expiry) subscription: now + 30
//     days, never negative-adjusted.
//
// All arithmetic is in UTC; now is a parameter so callers and tests share
// one clock.
func Calculate(now time.Time, action types.ActionType, planID types.PlanID, current *models.Subscription) (*Result, error) {
	days, err := PlanDuration(planID)
	if err != nil {
		return nil, err
	}
	now = now.UTC()

	if action == types.ActionTypeRenewal && current != nil {
		if current.ExpiresAt != nil && current.ExpiresAt.After(now) {
			expires := current.ExpiresAt.UTC().Add(PaidPlanDays * 24 * time.Hour)
			return &Result{
				StartedAt:              now,
				ExpiresAt:              expires,
				DurationDays:           int(expires.Sub(now) / (24 * time.Hour)),
				FreshStart:             false,
				RemainingDaysPreserved: RemainingDays(now, current.ExpiresAt),
				Reason:                 "renewal of active subscription, extended from current expiry",
			}, nil
		}
		return &Result{
			StartedAt:    now,
			ExpiresAt:    now.Add(PaidPlanDays * 24 * time.Hour),
			DurationDays: PaidPlanDays,
			FreshStart:   true,
			Reason:       "renewal of expired subscription, fresh start",
		}, nil
	}

	return &Result{
		StartedAt:    now,
		ExpiresAt:    now.Add(time.Duration(days) * 24 * time.Hour),
		DurationDays: days,
		FreshStart:   true,
		Reason:       fmt.Sprintf("fresh start for %s", action),
	}, nil
}
