package models

import (
	"time"

	"github.com/botsmith/billing/pkg/types"
)

// User mirrors the identity produced by the auth provider plus the billing
// fields the rest of the product reads without joining subscription.
type User struct {
	ID             string       `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email          string       `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	PlanID         types.PlanID `gorm:"column:plan_id;type:varchar(64);not null;default:'free'" json:"plan_id"`
	LifetimeAccess bool         `gorm:"column:lifetime_access;not null;default:false" json:"lifetime_access"`
	// SubscriptionExpiresAt duplicates subscription.expires_at for cheap reads.
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at;default:null" json:"subscription_expires_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
