package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/utils"
)

func newTestLedger() (*LedgerService, *memInvoiceRepo) {
	repo := newMemInvoiceRepo()
	return NewLedgerService(repo, staticPolicy{testPolicy()}, nil), repo
}

func acceptedQuote(items ...models.QuoteItemInput) models.QuoteAcceptanceRequest {
	return models.QuoteAcceptanceRequest{
		QuoteID:       primitive.NewObjectID().Hex(),
		AgentID:       primitive.NewObjectID().Hex(),
		CustomerID:    "cust-1",
		CustomerName:  "Ada Traveler",
		CustomerEmail: "ada@example.com",
		Items:         items,
		TaxRate:       10,
		DueInDays:     14,
	}
}

// TestInvoiceLifecycle mirrors the canonical flow: a $909.09 line with
// 10% tax comes to an even $1,000.00, and a full payment moves the
// invoice from sent to paid with nothing remaining.
func TestInvoiceLifecycle(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, err := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Hotel package", Quantity: 1, UnitPrice: 909.09, SupplierCost: 700,
	}))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.Subtotal != 909.09 {
		t.Errorf("subtotal: got %.2f, want 909.09", invoice.Subtotal)
	}
	if invoice.TaxAmount != 90.91 {
		t.Errorf("tax: got %.2f, want 90.91", invoice.TaxAmount)
	}
	if invoice.Total != 1000.00 {
		t.Errorf("total: got %.2f, want 1000.00", invoice.Total)
	}
	if invoice.Status != models.InvoiceStatusDraft {
		t.Errorf("status: got %s, want draft", invoice.Status)
	}

	invoice, err = ledger.MarkAsSent(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	if invoice.Status != models.InvoiceStatusSent {
		t.Errorf("status after send: got %s, want sent", invoice.Status)
	}

	invoice, err = ledger.RecordPayment(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-full",
		InvoiceID:       invoice.ID.Hex(),
		Amount:          1000.00,
		Method:          "card",
		Status:          models.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if invoice.Status != models.InvoiceStatusPaid {
		t.Errorf("status after payment: got %s, want paid", invoice.Status)
	}
	if invoice.RemainingAmount != 0 {
		t.Errorf("remaining: got %.2f, want 0", invoice.RemainingAmount)
	}
	if !utils.MoneyEquals(invoice.PaidAmount+invoice.RemainingAmount, invoice.Total) {
		t.Errorf("paid %.2f + remaining %.2f != total %.2f", invoice.PaidAmount, invoice.RemainingAmount, invoice.Total)
	}
}

func TestPartialPaymentThenOverpaymentRejected(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, err := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "City tour", Quantity: 2, UnitPrice: 500, SupplierCost: 350,
	}))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	total := invoice.Total // 1000 + 10% tax = 1100

	invoice, err = ledger.RecordPayment(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-1", InvoiceID: invoice.ID.Hex(), Amount: 400, Method: "card",
		Status: models.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if invoice.Status != models.InvoiceStatusPartial {
		t.Errorf("status: got %s, want partial", invoice.Status)
	}
	if !utils.MoneyEquals(invoice.RemainingAmount, total-400) {
		t.Errorf("remaining: got %.2f, want %.2f", invoice.RemainingAmount, total-400)
	}

	_, err = ledger.RecordPayment(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-2", InvoiceID: invoice.ID.Hex(), Amount: total, Method: "card",
		Status: models.PaymentStatusCompleted,
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("overpayment: got %v, want ConflictError", err)
	}
}

func TestDuplicateConfirmationIsIdempotent(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, _ := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Flight", Quantity: 1, UnitPrice: 500, SupplierCost: 400,
	}))
	conf := models.PaymentConfirmation{
		PaymentIntentID: "pi-dup", InvoiceID: invoice.ID.Hex(), Amount: 200, Method: "card",
		Status: models.PaymentStatusCompleted,
	}

	first, err := ledger.RecordPayment(ctx, conf)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := ledger.RecordPayment(ctx, conf)
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if len(second.Payments) != 1 {
		t.Errorf("payments after replay: got %d, want 1", len(second.Payments))
	}
	if second.PaidAmount != first.PaidAmount {
		t.Errorf("paidAmount changed on replay: %.2f vs %.2f", second.PaidAmount, first.PaidAmount)
	}

	// Same intent, different amount, is a genuine conflict.
	conf.Amount = 250
	_, err = ledger.RecordPayment(ctx, conf)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("conflicting replay: got %v, want ConflictError", err)
	}
}

func TestFailedPaymentLeavesTotalsUntouched(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, _ := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Cruise", Quantity: 1, UnitPrice: 2000, SupplierCost: 1500,
	}))

	updated, err := ledger.RecordFailedPayment(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-fail", InvoiceID: invoice.ID.Hex(), Amount: 500, Method: "card",
		Status: models.PaymentStatusFailed,
	})
	if err != nil {
		t.Fatalf("RecordFailedPayment: %v", err)
	}
	if updated.PaidAmount != 0 || updated.Status != models.InvoiceStatusDraft {
		t.Errorf("failed payment changed state: paid %.2f status %s", updated.PaidAmount, updated.Status)
	}
	if len(updated.Payments) != 1 || updated.Payments[0].Status != models.PaymentStatusFailed {
		t.Errorf("expected one failed payment record, got %+v", updated.Payments)
	}
}

func TestCancelTransitions(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, _ := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Transfer", Quantity: 1, UnitPrice: 100, SupplierCost: 80,
	}))

	if _, err := ledger.Cancel(ctx, invoice.ID); err != nil {
		t.Fatalf("cancel draft: %v", err)
	}

	paidInvoice, _ := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Transfer", Quantity: 1, UnitPrice: 100, SupplierCost: 80,
	}))
	if _, err := ledger.RecordPayment(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-paid", InvoiceID: paidInvoice.ID.Hex(), Amount: paidInvoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	}); err != nil {
		t.Fatalf("pay in full: %v", err)
	}

	_, err := ledger.Cancel(ctx, paidInvoice.ID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("cancel paid invoice: got %v, want ConflictError", err)
	}
}

func TestMarkAsSentRequiresDraft(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	invoice, _ := ledger.CreateInvoice(ctx, acceptedQuote(models.QuoteItemInput{
		Description: "Safari", Quantity: 1, UnitPrice: 300, SupplierCost: 200,
	}))
	if _, err := ledger.MarkAsSent(ctx, invoice.ID); err != nil {
		t.Fatalf("first send: %v", err)
	}
	_, err := ledger.MarkAsSent(ctx, invoice.ID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second send: got %v, want ConflictError", err)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	invoice := &models.Invoice{Status: models.InvoiceStatusSent, DueDate: now.Add(-time.Hour)}
	if !invoice.IsOverdue(now) {
		t.Error("past-due sent invoice should be overdue")
	}
	invoice.Status = models.InvoiceStatusPaid
	if invoice.IsOverdue(now) {
		t.Error("paid invoice can never be overdue")
	}
	invoice.Status = models.InvoiceStatusCancelled
	if invoice.IsOverdue(now) {
		t.Error("cancelled invoice can never be overdue")
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	cases := []struct {
		name string
		item models.QuoteItemInput
	}{
		{"zero quantity", models.QuoteItemInput{Description: "x", Quantity: 0, UnitPrice: 10}},
		{"zero price", models.QuoteItemInput{Description: "x", Quantity: 1, UnitPrice: 0}},
		{"negative supplier cost", models.QuoteItemInput{Description: "x", Quantity: 1, UnitPrice: 10, SupplierCost: -1}},
	}
	for _, tc := range cases {
		_, err := ledger.CreateInvoice(ctx, acceptedQuote(tc.item))
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("%s: got %v, want ValidationError", tc.name, err)
		}
	}
}
