package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invoice statuses. paid and cancelled are terminal.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPartial   = "partial"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// Payment statuses. A completed payment is immutable; a refund creates a
// compensating record instead of rewriting history.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// InvoiceItem is one billable line on an invoice. SupplierCost is an
// external input recorded at quote time, never derived from the price.
type InvoiceItem struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Description  string             `bson:"description" json:"description"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	UnitPrice    float64            `bson:"unitPrice" json:"unitPrice"`
	Total        float64            `bson:"total" json:"total"`
	SupplierCost float64            `bson:"supplierCost" json:"supplierCost"`
	BookingType  string             `bson:"bookingType,omitempty" json:"bookingType,omitempty"`
	TravelDate   *time.Time         `bson:"travelDate,omitempty" json:"travelDate,omitempty"`

	CancellationPolicy *CancellationPolicy `bson:"cancellationPolicy,omitempty" json:"cancellationPolicy,omitempty"`
}

// Payment is embedded in its invoice. PaymentIntentID is the gateway's
// identifier and the natural idempotency key for confirmation replays.
type Payment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PaymentIntentID string             `bson:"paymentIntentId" json:"paymentIntentId"`
	Amount          float64            `bson:"amount" json:"amount"`
	Method          string             `bson:"method" json:"method"`
	ProcessingFee   float64            `bson:"processingFee,omitempty" json:"processingFee,omitempty"`
	Status          string             `bson:"status" json:"status"`
	ReceivedAt      time.Time          `bson:"receivedAt" json:"receivedAt"`
	RefundedAt      *time.Time         `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
}

type Invoice struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InvoiceNumber   string             `bson:"invoiceNumber" json:"invoiceNumber"`
	QuoteID         primitive.ObjectID `bson:"quoteId" json:"quoteId"`
	AgentID         primitive.ObjectID `bson:"agentId,omitempty" json:"agentId,omitempty"`
	CustomerID      string             `bson:"customerId" json:"customerId"`
	CustomerName    string             `bson:"customerName" json:"customerName"`
	CustomerEmail   string             `bson:"customerEmail" json:"customerEmail"`
	Items           []InvoiceItem      `bson:"items" json:"items"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	TaxRate         float64            `bson:"taxRate" json:"taxRate"`
	TaxAmount       float64            `bson:"taxAmount" json:"taxAmount"`
	DiscountAmount  float64            `bson:"discountAmount,omitempty" json:"discountAmount,omitempty"`
	Total           float64            `bson:"total" json:"total"`
	Payments        []Payment          `bson:"payments" json:"payments"`
	PaidAmount      float64            `bson:"paidAmount" json:"paidAmount"`
	RemainingAmount float64            `bson:"remainingAmount" json:"remainingAmount"`
	Status          string             `bson:"status" json:"status"`
	DueDate         time.Time          `bson:"dueDate" json:"dueDate"`
	SentAt          *time.Time         `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`

	// OverrideCommissionRate, set at quote acceptance, replaces rule and
	// policy resolution for every commission earned on this invoice.
	OverrideCommissionRate *float64 `bson:"overrideCommissionRate,omitempty" json:"overrideCommissionRate,omitempty"`
}

// IsOverdue is a derived predicate, recomputed on every query so the flag
// can never go stale.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusCancelled {
		return false
	}
	return now.After(inv.DueDate)
}

// QuoteItemInput is one line of an accepted quote.
type QuoteItemInput struct {
	Description  string     `json:"description" validate:"required"`
	Quantity     int        `json:"quantity" validate:"required,gt=0"`
	UnitPrice    float64    `json:"unitPrice" validate:"required,gt=0"`
	SupplierCost float64    `json:"supplierCost" validate:"gte=0"`
	BookingType  string     `json:"bookingType,omitempty"`
	TravelDate   *time.Time `json:"travelDate,omitempty"`

	CancellationPolicy *CancellationPolicy `json:"cancellationPolicy,omitempty"`
}

// QuoteAcceptanceRequest is the external quote-acceptance input that
// produces an invoice.
type QuoteAcceptanceRequest struct {
	QuoteID                string           `json:"quoteId" validate:"required"`
	AgentID                string           `json:"agentId,omitempty"`
	CustomerID             string           `json:"customerId" validate:"required"`
	CustomerName           string           `json:"customerName" validate:"required"`
	CustomerEmail          string           `json:"customerEmail" validate:"required,email"`
	Items                  []QuoteItemInput `json:"items" validate:"required,min=1,dive"`
	TaxRate                float64          `json:"taxRate" validate:"gte=0,lte=100"`
	DiscountAmount         float64          `json:"discountAmount,omitempty" validate:"gte=0"`
	DueInDays              int              `json:"dueInDays,omitempty" validate:"gte=0"`
	OverrideCommissionRate *float64         `json:"overrideCommissionRate,omitempty"`
}

// PaymentConfirmation is the event delivered by the payment processor.
// Only status == completed triggers fund allocation.
type PaymentConfirmation struct {
	PaymentIntentID string  `json:"paymentIntentId" validate:"required"`
	InvoiceID       string  `json:"invoiceId" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Method          string  `json:"method" validate:"required"`
	ProcessingFee   float64 `json:"processingFee,omitempty" validate:"gte=0"`
	Status          string  `json:"status" validate:"required,oneof=completed failed"`
}
