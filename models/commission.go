package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission statuses.
const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
	CommissionStatusDisputed = "disputed"
)

// Commission is the amount owed to an agent for a confirmed booking.
// CommissionAmount is derived (bookingAmount * rate/100 + flatFee) and is
// only ever reduced afterwards by an explicit clawback.
type Commission struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AgentID          primitive.ObjectID  `bson:"agentId" json:"agentId"`
	InvoiceID        primitive.ObjectID  `bson:"invoiceId" json:"invoiceId"`
	QuoteID          primitive.ObjectID  `bson:"quoteId" json:"quoteId"`
	QuoteItemID      primitive.ObjectID  `bson:"quoteItemId,omitempty" json:"quoteItemId,omitempty"`
	PaymentIntentID  string              `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	BookingType      string              `bson:"bookingType,omitempty" json:"bookingType,omitempty"`
	BookingAmount    float64             `bson:"bookingAmount" json:"bookingAmount"`
	CommissionRate   float64             `bson:"commissionRate" json:"commissionRate"`
	FlatFee          float64             `bson:"flatFee,omitempty" json:"flatFee,omitempty"`
	CommissionAmount float64             `bson:"commissionAmount" json:"commissionAmount"`
	ClawbackAmount   float64             `bson:"clawbackAmount,omitempty" json:"clawbackAmount,omitempty"`
	Status           string              `bson:"status" json:"status"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	ApprovedAt       *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	PaidAt           *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	ClawedBackAt     *time.Time          `bson:"clawedBackAt,omitempty" json:"clawedBackAt,omitempty"`
	DisputeNote      string              `bson:"disputeNote,omitempty" json:"disputeNote,omitempty"`
	ApprovedBy       *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
}
