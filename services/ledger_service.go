package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/utils"
)

// InvoiceMailer sends an invoice to its customer. Implemented in utils on
// top of gomail; nil disables sending.
type InvoiceMailer interface {
	SendInvoice(invoice *models.Invoice) error
}

// LedgerService owns the invoice lifecycle: creation from an accepted
// quote, payment application, and status transitions. Operations on one
// invoice are serialized through a per-invoice lock because they all
// read-then-write the same aggregate fields.
type LedgerService struct {
	invoices repositories.InvoiceRepository
	policy   repositories.PolicyProvider
	mailer   InvoiceMailer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService creates a new invoice ledger.
func NewLedgerService(invoices repositories.InvoiceRepository, policy repositories.PolicyProvider, mailer InvoiceMailer) *LedgerService {
	return &LedgerService{
		invoices: invoices,
		policy:   policy,
		mailer:   mailer,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *LedgerService) lockInvoice(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateInvoice builds an invoice from an accepted quote. Item totals,
// subtotal, tax and total are computed here; the invoice starts in draft
// with nothing paid.
func (s *LedgerService) CreateInvoice(ctx context.Context, req models.QuoteAcceptanceRequest) (*models.Invoice, error) {
	quoteID, err := primitive.ObjectIDFromHex(req.QuoteID)
	if err != nil {
		return nil, &ValidationError{Field: "quoteId", Reason: "invalid id"}
	}
	var agentID primitive.ObjectID
	if req.AgentID != "" {
		agentID, err = primitive.ObjectIDFromHex(req.AgentID)
		if err != nil {
			return nil, &ValidationError{Field: "agentId", Reason: "invalid id"}
		}
	}
	if req.TaxRate < 0 || req.TaxRate > 100 {
		return nil, &ValidationError{Field: "taxRate", Reason: "must be between 0 and 100"}
	}

	items := make([]models.InvoiceItem, 0, len(req.Items))
	subtotal := 0.0
	for i, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be positive"}
		}
		if in.UnitPrice <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].unitPrice", i), Reason: "must be positive"}
		}
		if in.SupplierCost < 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].supplierCost", i), Reason: "must not be negative"}
		}

		total := utils.RoundMoney(float64(in.Quantity) * in.UnitPrice)
		items = append(items, models.InvoiceItem{
			ID:                 primitive.NewObjectID(),
			Description:        in.Description,
			Quantity:           in.Quantity,
			UnitPrice:          in.UnitPrice,
			Total:              total,
			SupplierCost:       in.SupplierCost,
			BookingType:        in.BookingType,
			TravelDate:         in.TravelDate,
			CancellationPolicy: in.CancellationPolicy,
		})
		subtotal += total
	}
	subtotal = utils.RoundMoney(subtotal)

	if req.DiscountAmount < 0 || utils.MoneyGreater(req.DiscountAmount, subtotal) {
		return nil, &ValidationError{Field: "discountAmount", Reason: "must be between 0 and the subtotal"}
	}

	dueInDays := req.DueInDays
	if dueInDays <= 0 {
		policy, err := s.policy.GetPolicy(ctx)
		if err != nil {
			return nil, err
		}
		dueInDays = policy.DefaultPaymentTerms
	}

	taxAmount := utils.RoundMoney((subtotal - req.DiscountAmount) * req.TaxRate / 100.0)
	total := utils.RoundMoney(subtotal - req.DiscountAmount + taxAmount)
	now := time.Now()

	invoice := &models.Invoice{
		ID:              primitive.NewObjectID(),
		InvoiceNumber:   newInvoiceNumber(),
		QuoteID:         quoteID,
		AgentID:         agentID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		Items:           items,
		Subtotal:        subtotal,
		TaxRate:         req.TaxRate,
		TaxAmount:       taxAmount,
		DiscountAmount:  req.DiscountAmount,
		Total:           total,
		Payments:        []models.Payment{},
		PaidAmount:      0,
		RemainingAmount: total,
		Status:          models.InvoiceStatusDraft,
		DueDate:         now.AddDate(0, 0, dueInDays),
		CreatedAt:       now,
		UpdatedAt:       now,

		OverrideCommissionRate: req.OverrideCommissionRate,
	}

	if err := s.invoices.Insert(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// RecordPayment appends a completed payment to an invoice and advances
// its status. A replay of the same payment intent with the same amount
// returns the invoice unchanged; a conflicting replay and an overpayment
// beyond the rounding tolerance are both rejected.
func (s *LedgerService) RecordPayment(ctx context.Context, conf models.PaymentConfirmation) (*models.Invoice, error) {
	invoiceID, err := primitive.ObjectIDFromHex(conf.InvoiceID)
	if err != nil {
		return nil, &ValidationError{Field: "invoiceId", Reason: "invalid id"}
	}
	if conf.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if conf.PaymentIntentID == "" {
		return nil, &ValidationError{Field: "paymentIntentId", Reason: "required"}
	}

	unlock := s.lockInvoice(conf.InvoiceID)
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: conf.InvoiceID}
	}

	for i := range invoice.Payments {
		existing := &invoice.Payments[i]
		if existing.PaymentIntentID != conf.PaymentIntentID {
			continue
		}
		if utils.MoneyEquals(existing.Amount, conf.Amount) && existing.Status == models.PaymentStatusCompleted {
			log.Printf("Duplicate confirmation for intent %s on invoice %s, already applied", conf.PaymentIntentID, invoice.ID.Hex())
			return invoice, nil
		}
		return nil, &ConflictError{Reason: "payment intent " + conf.PaymentIntentID + " already recorded with different details"}
	}

	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, &ConflictError{Reason: "invoice is cancelled"}
	}
	if utils.MoneyGreater(invoice.PaidAmount+conf.Amount, invoice.Total) {
		return nil, &ConflictError{Reason: fmt.Sprintf("payment of %.2f would overpay invoice (paid %.2f of %.2f)", conf.Amount, invoice.PaidAmount, invoice.Total)}
	}

	invoice.Payments = append(invoice.Payments, models.Payment{
		ID:              primitive.NewObjectID(),
		PaymentIntentID: conf.PaymentIntentID,
		Amount:          conf.Amount,
		Method:          conf.Method,
		ProcessingFee:   conf.ProcessingFee,
		Status:          models.PaymentStatusCompleted,
		ReceivedAt:      time.Now(),
	})
	s.recomputeTotals(invoice)

	if err := s.invoices.Replace(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// RecordFailedPayment records a gateway failure against the invoice
// without touching totals or status.
func (s *LedgerService) RecordFailedPayment(ctx context.Context, conf models.PaymentConfirmation) (*models.Invoice, error) {
	invoiceID, err := primitive.ObjectIDFromHex(conf.InvoiceID)
	if err != nil {
		return nil, &ValidationError{Field: "invoiceId", Reason: "invalid id"}
	}

	unlock := s.lockInvoice(conf.InvoiceID)
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: conf.InvoiceID}
	}

	for i := range invoice.Payments {
		if invoice.Payments[i].PaymentIntentID == conf.PaymentIntentID {
			return invoice, nil
		}
	}

	invoice.Payments = append(invoice.Payments, models.Payment{
		ID:              primitive.NewObjectID(),
		PaymentIntentID: conf.PaymentIntentID,
		Amount:          conf.Amount,
		Method:          conf.Method,
		ProcessingFee:   conf.ProcessingFee,
		Status:          models.PaymentStatusFailed,
		ReceivedAt:      time.Now(),
	})

	if err := s.invoices.Replace(ctx, invoice); err != nil {
		return nil, err
	}
	log.Printf("Recorded failed payment intent %s on invoice %s", conf.PaymentIntentID, invoice.ID.Hex())
	return invoice, nil
}

// RemovePayment takes a just-applied payment back off the invoice. It is
// the compensating half of the payment/allocation saga and must only run
// while the caller still holds the operation for that intent.
func (s *LedgerService) RemovePayment(ctx context.Context, invoiceID primitive.ObjectID, paymentIntentID string) error {
	unlock := s.lockInvoice(invoiceID.Hex())
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return &NotFoundError{Entity: "invoice", ID: invoiceID.Hex()}
	}

	kept := invoice.Payments[:0]
	removed := false
	for _, payment := range invoice.Payments {
		if payment.PaymentIntentID == paymentIntentID && payment.Status == models.PaymentStatusCompleted {
			removed = true
			continue
		}
		kept = append(kept, payment)
	}
	if !removed {
		return nil
	}

	invoice.Payments = kept
	s.recomputeTotals(invoice)
	return s.invoices.Replace(ctx, invoice)
}

// AppendRefundRecord adds a compensating refund entry to the payment
// history. Completed payments stay untouched; paidAmount only counts
// completed payments, so history shows the refund without rewriting it.
func (s *LedgerService) AppendRefundRecord(ctx context.Context, invoiceID primitive.ObjectID, amount float64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	unlock := s.lockInvoice(invoiceID.Hex())
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return &NotFoundError{Entity: "invoice", ID: invoiceID.Hex()}
	}

	now := time.Now()
	invoice.Payments = append(invoice.Payments, models.Payment{
		ID:              primitive.NewObjectID(),
		PaymentIntentID: "refund-" + uuid.NewString(),
		Amount:          utils.RoundMoney(amount),
		Method:          "refund",
		Status:          models.PaymentStatusRefunded,
		ReceivedAt:      now,
		RefundedAt:      &now,
	})
	return s.invoices.Replace(ctx, invoice)
}

// MarkAsSent transitions a draft invoice to sent and emails it to the
// customer. A send failure is logged, not rolled back.
func (s *LedgerService) MarkAsSent(ctx context.Context, invoiceID primitive.ObjectID) (*models.Invoice, error) {
	unlock := s.lockInvoice(invoiceID.Hex())
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: invoiceID.Hex()}
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, &ConflictError{Reason: "only a draft invoice can be sent, current status is " + invoice.Status}
	}

	now := time.Now()
	invoice.Status = models.InvoiceStatusSent
	invoice.SentAt = &now
	if err := s.invoices.Replace(ctx, invoice); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendInvoice(invoice); err != nil {
			log.Printf("Failed to email invoice %s to %s: %v", invoice.InvoiceNumber, invoice.CustomerEmail, err)
		}
	}
	return invoice, nil
}

// Cancel cancels an invoice. Paid invoices cannot be cancelled.
func (s *LedgerService) Cancel(ctx context.Context, invoiceID primitive.ObjectID) (*models.Invoice, error) {
	unlock := s.lockInvoice(invoiceID.Hex())
	defer unlock()

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: invoiceID.Hex()}
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, &ConflictError{Reason: "a paid invoice cannot be cancelled"}
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return invoice, nil
	}

	invoice.Status = models.InvoiceStatusCancelled
	if err := s.invoices.Replace(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetInvoice returns one invoice by id.
func (s *LedgerService) GetInvoice(ctx context.Context, invoiceID primitive.ObjectID) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: invoiceID.Hex()}
	}
	return invoice, nil
}

// ListInvoices returns invoices matching the filter.
func (s *LedgerService) ListInvoices(ctx context.Context, filter repositories.InvoiceFilter) ([]models.Invoice, error) {
	return s.invoices.Find(ctx, filter)
}

// recomputeTotals re-derives paidAmount, remainingAmount and the status
// from the payment list. Only completed payments count toward paidAmount.
func (s *LedgerService) recomputeTotals(invoice *models.Invoice) {
	paid := 0.0
	for _, payment := range invoice.Payments {
		if payment.Status == models.PaymentStatusCompleted {
			paid += payment.Amount
		}
	}
	invoice.PaidAmount = utils.RoundMoney(paid)

	remaining := utils.RoundMoney(invoice.Total - invoice.PaidAmount)
	if remaining < 0 && remaining >= -utils.MoneyTolerance {
		remaining = 0
	}
	invoice.RemainingAmount = remaining

	switch {
	case invoice.Status == models.InvoiceStatusCancelled:
		// terminal, leave as is
	case invoice.RemainingAmount <= utils.MoneyTolerance && invoice.PaidAmount > 0:
		invoice.Status = models.InvoiceStatusPaid
		invoice.RemainingAmount = 0
	case invoice.PaidAmount > 0:
		invoice.Status = models.InvoiceStatusPartial
	case invoice.Status == models.InvoiceStatusPartial || invoice.Status == models.InvoiceStatusPaid:
		// a compensated payment can take paidAmount back to zero
		if invoice.SentAt != nil {
			invoice.Status = models.InvoiceStatusSent
		} else {
			invoice.Status = models.InvoiceStatusDraft
		}
	}
}

func newInvoiceNumber() string {
	return "INV-" + strings.ToUpper(uuid.NewString()[:8])
}
