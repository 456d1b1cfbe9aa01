package types

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
)

// ActionType classifies a subscription mutation for duration calculation.
type ActionType string

const (
	ActionTypeNew         ActionType = "new"
	ActionTypeUpgrade     ActionType = "upgrade"
	ActionTypeRenewal     ActionType = "renewal"
	ActionTypeAdminChange ActionType = "admin_change"
)

// PaymentSource identifies which entry point delivered a payment.
type PaymentSource string

const (
	PaymentSourceVerifyPayment PaymentSource = "verify_payment"
	PaymentSourceWebhook       PaymentSource = "webhook"
	PaymentSourceCallback      PaymentSource = "callback"
	PaymentSourceAdmin         PaymentSource = "admin"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPayment     SubscriptionChangeReason = "payment"
	SubscriptionChangeReasonSignup      SubscriptionChangeReason = "signup"
	SubscriptionChangeReasonAdminChange SubscriptionChangeReason = "adminChange"
	SubscriptionChangeReasonExtend      SubscriptionChangeReason = "extend"
	SubscriptionChangeReasonLifetime    SubscriptionChangeReason = "lifetime"
	SubscriptionChangeReasonCancel      SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonPause       SubscriptionChangeReason = "pause"
	SubscriptionChangeReasonResume      SubscriptionChangeReason = "resume"
	SubscriptionChangeReasonExpireSweep SubscriptionChangeReason = "expireSweep"
)

// SubscriptionStatusInfo is the self-service status view returned by the API.
type SubscriptionStatusInfo struct {
	Exists         bool               `json:"exists"`
	PlanID         PlanID             `json:"plan_id,omitempty"`
	Status         SubscriptionStatus `json:"status,omitempty"`
	IsExpired      bool               `json:"is_expired"`
	IsExpiringSoon bool               `json:"is_expiring_soon"`
	DaysRemaining  int                `json:"days_remaining"`
	LifetimeAccess bool               `json:"lifetime_access"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
}
