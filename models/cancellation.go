package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefundTier maps a days-before-travel threshold to a refund percentage.
// Tiers are ordered by descending DaysBeforeTravel and the percentages
// must be non-increasing as the threshold shrinks.
type RefundTier struct {
	DaysBeforeTravel int     `bson:"daysBeforeTravel" json:"daysBeforeTravel"`
	RefundPercentage float64 `bson:"refundPercentage" json:"refundPercentage"`
}

// CancellationPolicy is the tiered refund schedule attached to a quote
// item. A nil CancellationDeadline means cancellations are accepted up to
// the travel date.
type CancellationPolicy struct {
	Tiers                []RefundTier `bson:"tiers" json:"tiers"`
	NonRefundable        bool         `bson:"nonRefundable,omitempty" json:"nonRefundable,omitempty"`
	CancellationDeadline *time.Time   `bson:"cancellationDeadline,omitempty" json:"cancellationDeadline,omitempty"`
}

// RefundItemBreakdown is the computed refund for one cancelled item.
type RefundItemBreakdown struct {
	QuoteItemID        primitive.ObjectID `json:"quoteItemId"`
	Description        string             `json:"description"`
	ClientPaid         float64            `json:"clientPaid"`
	RefundPercentage   float64            `json:"refundPercentage"`
	RefundAmount       float64            `json:"refundAmount"`
	ServiceFee         float64            `json:"serviceFee"`
	CommissionClawback float64            `json:"commissionClawback"`
}

// RefundCalculation is a pure computation result. It is never persisted;
// applying it to the ledger is a separate, auditable step.
type RefundCalculation struct {
	RefundAmount             float64               `json:"refundAmount"`
	ServiceFee               float64               `json:"serviceFee"`
	ShouldClawbackCommission bool                  `json:"shouldClawbackCommission"`
	CommissionClawback       float64               `json:"commissionClawback"`
	Breakdown                []RefundItemBreakdown `json:"breakdown"`
}

// CancellationRequest is the external cancellation input.
type CancellationRequest struct {
	InvoiceID        string    `json:"invoiceId" validate:"required"`
	QuoteItemIDs     []string  `json:"quoteItemIds,omitempty"`
	CancellationDate time.Time `json:"cancellationDate" validate:"required"`
	TravelDate       time.Time `json:"travelDate" validate:"required"`
}

// ClawbackRequest applies a previously computed clawback to a commission.
type ClawbackRequest struct {
	CommissionID   string  `json:"commissionId" validate:"required"`
	ClawbackAmount float64 `json:"clawbackAmount" validate:"required,gt=0"`
	Reason         string  `json:"reason,omitempty"`
}
