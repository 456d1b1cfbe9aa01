package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentWebhookLogStatus string

const (
	PaymentWebhookLogStatusReceived     PaymentWebhookLogStatus = "received"
	PaymentWebhookLogStatusHandled      PaymentWebhookLogStatus = "handled"
	PaymentWebhookLogStatusHandleFailed PaymentWebhookLogStatus = "handle_failed"
)

// PaymentWebhookLog records every webhook delivery, raw payload included,
// once on receipt and once with the handling outcome.
type PaymentWebhookLog struct {
	ID        string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Event     string  `gorm:"column:event;type:varchar(64);not null" json:"event"`
	UserID    *string `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID   string  `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	PaymentID string  `gorm:"column:payment_id;type:varchar(128)" json:"payment_id"`
	// ProviderSubscriptionID is the Razorpay-side subscription id.
	ProviderSubscriptionID string                  `gorm:"column:provider_subscription_id;type:varchar(128)" json:"provider_subscription_id"`
	NotificationTime       time.Time               `gorm:"column:notification_time" json:"notification_time"`
	Data                   datatypes.JSON          `gorm:"column:data;type:jsonb" json:"data"`
	Result                 *datatypes.JSON         `gorm:"column:result;type:jsonb" json:"result"`
	Status                 PaymentWebhookLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt              time.Time               `json:"created_at"`
	UpdatedAt              time.Time               `json:"updated_at"`
}

func (PaymentWebhookLog) TableName() string { return "payment_webhook_log" }
