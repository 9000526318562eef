package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Escrow statuses of one allocation row. held is the initial state.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Escrow release triggers.
const (
	ReleaseTriggerBookingConfirmed         = "booking_confirmed"
	ReleaseTriggerCancellationWindowClosed = "cancellation_window_closed"
	ReleaseTriggerTravelCompleted          = "travel_completed"
	ReleaseTriggerManualOverride           = "manual_override"
)

// ItemAllocation is the split of one item's share of a payment.
// Invariant, checked before persist: ClientPaid == SupplierCost +
// PlatformFee + AgentCommission.
type ItemAllocation struct {
	QuoteItemID     primitive.ObjectID `bson:"quoteItemId" json:"quoteItemId"`
	Description     string             `bson:"description" json:"description"`
	ClientPaid      float64            `bson:"clientPaid" json:"clientPaid"`
	SupplierCost    float64            `bson:"supplierCost" json:"supplierCost"`
	PlatformFee     float64            `bson:"platformFee" json:"platformFee"`
	AgentCommission float64            `bson:"agentCommission" json:"agentCommission"`
	CommissionRate  float64            `bson:"commissionRate" json:"commissionRate"`
	EscrowStatus    string             `bson:"escrowStatus" json:"escrowStatus"`
	ReleaseTrigger  string             `bson:"releaseTrigger,omitempty" json:"releaseTrigger,omitempty"`
	ReleasedAt      *time.Time         `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}

// FundAllocation records how one completed payment was split across the
// quote's items. Rows sum to the payment amount.
type FundAllocation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PaymentIntentID string             `bson:"paymentIntentId" json:"paymentIntentId"`
	InvoiceID       primitive.ObjectID `bson:"invoiceId" json:"invoiceId"`
	QuoteID         primitive.ObjectID `bson:"quoteId" json:"quoteId"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	Allocations     []ItemAllocation   `bson:"allocations" json:"allocations"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EscrowReleaseRequest is the external escrow-release trigger input.
type EscrowReleaseRequest struct {
	AllocationID  string     `json:"allocationId" validate:"required"`
	Trigger       string     `json:"trigger" validate:"required,oneof=booking_confirmed cancellation_window_closed travel_completed manual_override"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}
