package payment

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrPaymentAlreadyProcessed signals that the idempotency ledger already
// holds this (payment_id, user_id). Callers treat it as success with the
// cached result, never as a failure.
var ErrPaymentAlreadyProcessed = errors.New("payment already processed")

// ErrPlanNotPayable rejects payments against plans with no price, such as
// free. Those plans change hands through signup or admin actions only.
var ErrPlanNotPayable = errors.New("plan is not payable")

// mapDuplicateErr translates a unique-index violation on the ledger into the
// already-processed sentinel. Anything else passes through untouched.
func mapDuplicateErr(err error, paymentID string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrPaymentAlreadyProcessed, paymentID)
	}
	return err
}
