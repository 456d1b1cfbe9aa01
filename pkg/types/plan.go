package types

import "strings"

type PlanID string

const (
	PlanFree         PlanID = "free"
	PlanStarter      PlanID = "starter"
	PlanProfessional PlanID = "professional"
	PlanEnterprise   PlanID = "enterprise"
)

// NormalizePlanID lowercases a raw plan identifier; callers and the payment
// provider are inconsistent about casing.
func NormalizePlanID(s string) PlanID {
	return PlanID(strings.ToLower(strings.TrimSpace(s)))
}

func (p PlanID) Known() bool {
	switch p {
	case PlanFree, PlanStarter, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

func (p PlanID) Paid() bool {
	return p.Known() && p != PlanFree
}

// Plan is a catalog entry, carried in config rather than the database.
type Plan struct {
	ID   PlanID `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	// Price in the smallest currency unit (paise for INR).
	Price          int64  `json:"price" mapstructure:"price"`
	Currency       string `json:"currency" mapstructure:"currency"`
	RazorpayPlanID string `json:"razorpay_plan_id" mapstructure:"razorpay_plan_id"`
	DurationDays   int    `json:"duration_days" mapstructure:"duration_days"`
}
