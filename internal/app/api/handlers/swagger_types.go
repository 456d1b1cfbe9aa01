package handlers

import (
	"time"

	"github.com/botsmith/billing/internal/app/service/statistics"
	"github.com/botsmith/billing/pkg/response"
	types "github.com/botsmith/billing/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespBillingConfig wraps BillingConfigResponse in the standard envelope.
type RespBillingConfig struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    BillingConfigResponse    `json:"data"`
}

// RespSubscriptionStatus wraps the status view in the standard envelope.
type RespSubscriptionStatus struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    types.SubscriptionStatusInfo `json:"data"`
}

// RespProcessResult wraps a payment processing result in the standard envelope.
type RespProcessResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerProcessResult     `json:"data"`
}

// RespListProcessedPayments wraps the ledger listing in the standard envelope.
type RespListProcessedPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    struct {
		Items []SwaggerProcessedPayment `json:"items"`
		Total int64                     `json:"total"`
	} `json:"data"`
}

// RespBillingStatistic wraps BillingStatisticResponse in the standard envelope.
type RespBillingStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.BillingStatisticResponse `json:"data"`
}

// SwaggerProcessResult is a simplified view of payment.ProcessResult for documentation purposes.
type SwaggerProcessResult struct {
	Status       string    `json:"status"`
	ActionType   string    `json:"action_type"`
	DurationDays int       `json:"duration_days"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// SwaggerProcessedPayment is a simplified view of models.ProcessedPayment for documentation purposes.
type SwaggerProcessedPayment struct {
	ID            string    `json:"id"`
	PaymentID     string    `json:"payment_id"`
	UserID        string    `json:"user_id"`
	PlanID        string    `json:"plan_id"`
	ActionType    string    `json:"action_type"`
	IsUpgrade     bool      `json:"is_upgrade"`
	PaymentSource string    `json:"payment_source"`
	ExpiresAt     time.Time `json:"expires_at"`
	ProcessedAt   time.Time `json:"processed_at"`
}
