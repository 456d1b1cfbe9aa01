package models

import (
	"time"

	"github.com/botsmith/billing/pkg/types"

	"gorm.io/datatypes"
)

// ProcessedPayment is the idempotency ledger. One row per distinct
// (payment_id, user_id); rows are append-only and never mutated or pruned.
// The composite unique index is what closes the race between concurrent
// deliveries of the same payment notification.
type ProcessedPayment struct {
	ID            string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	PaymentID     string              `gorm:"column:payment_id;type:varchar(64);not null;uniqueIndex:unique_payment_id_user_id,priority:1" json:"payment_id"`
	UserID        string              `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:unique_payment_id_user_id,priority:2;index" json:"user_id"`
	PlanID        types.PlanID        `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	ActionType    types.ActionType    `gorm:"column:action_type;type:varchar(64);not null" json:"action_type"`
	IsUpgrade     bool                `gorm:"column:is_upgrade;not null;default:false" json:"is_upgrade"`
	PaymentSource types.PaymentSource `gorm:"column:payment_source;type:varchar(64);not null" json:"payment_source"`
	// ExpiresAt is the subscription expiry this payment produced.
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	// Result caches the subscription state returned to the caller; a
	// redelivery returns exactly this.
	Result      datatypes.JSONType[*Subscription] `gorm:"column:result;type:jsonb;default:'null'" json:"result"`
	ProcessedAt time.Time                         `gorm:"column:processed_at;not null" json:"processed_at"`
	CreatedAt   time.Time                         `json:"created_at"`
}

func (ProcessedPayment) TableName() string {
	return "processed_payment"
}
