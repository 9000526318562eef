package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense approval states.
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Expense is an independent cost record. The ledger core never mutates
// expenses; only the aggregator reads them.
type Expense struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Category    string              `bson:"category" json:"category"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Amount      float64             `bson:"amount" json:"amount"`
	Vendor      string              `bson:"vendor,omitempty" json:"vendor,omitempty"`
	Status      string              `bson:"status" json:"status"`
	IncurredAt  time.Time           `bson:"incurredAt" json:"incurredAt"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	ApprovedBy  *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
}

// ExpenseRequest creates a new expense record.
type ExpenseRequest struct {
	Category    string    `json:"category" validate:"required"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	Vendor      string    `json:"vendor,omitempty"`
	IncurredAt  time.Time `json:"incurredAt" validate:"required"`
}
