package models

import (
	"time"

	"github.com/botsmith/billing/pkg/types"

	"gorm.io/datatypes"
)

// SubscriptionUsage tracks per-period resource consumption. Reset on plan
// change, preserved on same-plan renewal.
type SubscriptionUsage struct {
	ChatbotsCount     int       `json:"chatbots_count"`
	MessagesThisMonth int       `json:"messages_this_month"`
	FileUploads       int       `json:"file_uploads"`
	LastReset         time.Time `json:"last_reset"`
}

// Subscription stores one row per user. It is never deleted, only
// overwritten. Use Valid() to determine whether it currently grants access.
type Subscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	PlanID types.PlanID             `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	// StartedAt is when the current period began.
	StartedAt time.Time `gorm:"column:started_at;not null" json:"started_at"`
	// ExpiresAt is the period end. Nil only for lifetime access.
	ExpiresAt *time.Time `gorm:"column:expires_at;default:null" json:"expires_at"`
	AutoRenew bool       `gorm:"column:auto_renew;not null;default:false" json:"auto_renew"`
	// LifetimeAccess short-circuits expiry entirely.
	LifetimeAccess bool `gorm:"column:lifetime_access;not null;default:false" json:"lifetime_access"`
	// RazorpaySubscriptionID links to the provider-side subscription when one exists.
	RazorpaySubscriptionID *string `gorm:"column:razorpay_subscription_id;type:varchar(64);index;default:null" json:"razorpay_subscription_id"`
	// LastPaymentID is the most recent payment applied to this row.
	LastPaymentID *string `gorm:"column:last_payment_id;type:varchar(64);default:null" json:"last_payment_id"`
	// Audit fields set on admin changes only.
	AdminChangedBy    *string `gorm:"column:admin_changed_by;type:varchar(64);default:null" json:"admin_changed_by"`
	AdminChangeReason *string `gorm:"column:admin_change_reason;type:varchar(255);default:null" json:"admin_change_reason"`

	Usage     datatypes.JSONType[*SubscriptionUsage] `gorm:"column:usage;type:jsonb;default:'{}'" json:"usage"`
	CreatedAt time.Time                              `json:"created_at"`
	UpdatedAt time.Time                              `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Valid() bool {
	if s == nil {
		return false
	}
	if s.LifetimeAccess {
		return s.Status == types.SubscriptionStatusActive
	}
	return s.Status == types.SubscriptionStatusActive &&
		s.ExpiresAt != nil &&
		s.ExpiresAt.After(time.Now().UTC())
}

// FreshUsage returns zeroed usage counters starting at now.
func FreshUsage(now time.Time) *SubscriptionUsage {
	return &SubscriptionUsage{LastReset: now}
}
