package services

import "fmt"

// ValidationError rejects bad input before any state mutation: commission
// rates outside configured bounds, non-positive amounts, malformed ranges.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// NotFoundError means a referenced invoice/commission/allocation id does
// not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError covers overpayment attempts, duplicate payment-intent
// replays and illegal status transitions.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

// ConsistencyError means allocation math does not balance. The operation
// must not persist partial state; the error is surfaced for manual review
// and never auto-corrected.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string { return "consistency violation: " + e.Reason }

// CommissionRecordError means a payment was applied and its allocation
// persisted, but one or more commission records could not be written.
// The monetary state is consistent; a redelivery of the same payment
// intent recreates the missing records.
type CommissionRecordError struct {
	PaymentIntentID string
	Errs            []error
}

func (e *CommissionRecordError) Error() string {
	return fmt.Sprintf("failed to record %d commission(s) for payment intent %s: %v", len(e.Errs), e.PaymentIntentID, e.Errs[0])
}

func (e *CommissionRecordError) Unwrap() error { return e.Errs[0] }

// ExternalGatewayError wraps a payment-processor failure or timeout. The
// ledger records a failed payment and leaves the invoice unchanged; it
// never retries on its own.
type ExternalGatewayError struct {
	Op  string
	Err error
}

func (e *ExternalGatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *ExternalGatewayError) Unwrap() error { return e.Err }
