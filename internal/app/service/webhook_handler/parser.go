package webhook_handler

import (
	"encoding/json"
	"fmt"
	"time"
)

// Razorpay webhook events handled by this service. Anything else is
// acknowledged and ignored so the provider stops retrying.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionPaused    = "subscription.paused"
	EventSubscriptionResumed   = "subscription.resumed"
)

// Notes tolerates Razorpay's habit of sending an empty JSON array
// instead of an object when no notes are set.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err == nil {
		*n = m
		return nil
	}
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) == 0 {
		*n = Notes{}
		return nil
	}
	return fmt.Errorf("notes: unexpected shape: %s", string(data))
}

type SubscriptionEntity struct {
	ID        string `json:"id"`
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

type PaymentEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Notes  Notes  `json:"notes"`
}

// Event is the Razorpay webhook envelope.
type Event struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	Payload   struct {
		Subscription *struct {
			Entity *SubscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment *struct {
			Entity *PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("parse webhook event: missing event name")
	}
	return &ev, nil
}

func (e *Event) SubscriptionEntity() *SubscriptionEntity {
	if e.Payload.Subscription == nil {
		return nil
	}
	return e.Payload.Subscription.Entity
}

func (e *Event) PaymentEntity() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return e.Payload.Payment.Entity
}

// UserID resolves the user from the subscription notes stamped at
// subscription creation time.
func (e *Event) UserID() string {
	if sub := e.SubscriptionEntity(); sub != nil {
		if v, ok := sub.Notes["user_id"]; ok {
			return v
		}
	}
	if pay := e.PaymentEntity(); pay != nil {
		if v, ok := pay.Notes["user_id"]; ok {
			return v
		}
	}
	return ""
}

// PlanNoteID returns the internal plan id carried in the subscription notes,
// empty when absent.
func (e *Event) PlanNoteID() string {
	if sub := e.SubscriptionEntity(); sub != nil {
		if v, ok := sub.Notes["plan_id"]; ok {
			return v
		}
	}
	return ""
}

func (e *Event) ProviderSubscriptionID() string {
	if sub := e.SubscriptionEntity(); sub != nil {
		return sub.ID
	}
	return ""
}

// PaymentID returns the payment entity id when the event carries one,
// otherwise a deterministic fallback derived from the subscription and the
// event timestamp. The fallback keeps redeliveries of the same charge cycle
// idempotent even without a payment entity.
func (e *Event) PaymentID() string {
	if pay := e.PaymentEntity(); pay != nil && pay.ID != "" {
		return pay.ID
	}
	if sub := e.SubscriptionEntity(); sub != nil && sub.ID != "" {
		return fmt.Sprintf("webhook_%s_%d", sub.ID, e.CreatedAt)
	}
	return ""
}

func (e *Event) NotificationTime() time.Time {
	if e.CreatedAt == 0 {
		return time.Now().UTC()
	}
	return time.Unix(e.CreatedAt, 0).UTC()
}
