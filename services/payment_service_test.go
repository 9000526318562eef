package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
)

type fakeGateway struct {
	status *GatewayPaymentStatus
	err    error
	calls  int
}

func (g *fakeGateway) VerifyPayment(_ context.Context, paymentIntentID string) (*GatewayPaymentStatus, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	status := *g.status
	status.PaymentIntentID = paymentIntentID
	return &status, nil
}

type paymentFixture struct {
	svc         *PaymentService
	ledger      *LedgerService
	invoices    *memInvoiceRepo
	allocations *memAllocationRepo
	commissions *memCommissionRepo
	rules       *memRuleRepo
}

func newPaymentFixture(gateway PaymentGateway) *paymentFixture {
	invoices := newMemInvoiceRepo()
	allocations := newMemAllocationRepo()
	commissions := newMemCommissionRepo()
	rules := &memRuleRepo{}
	provider := staticPolicy{testPolicy()}

	ledger := NewLedgerService(invoices, provider, nil)
	commissionSvc := NewCommissionService(rules, commissions, provider)
	allocationSvc := NewAllocationService(allocations, commissionSvc)

	return &paymentFixture{
		svc:         NewPaymentService(ledger, allocationSvc, gateway, nil),
		ledger:      ledger,
		invoices:    invoices,
		allocations: allocations,
		commissions: commissions,
		rules:       rules,
	}
}

func (f *paymentFixture) createInvoice(t *testing.T, supplierCost float64) *models.Invoice {
	t.Helper()
	invoice, err := f.ledger.CreateInvoice(context.Background(), models.QuoteAcceptanceRequest{
		QuoteID:       "65b000000000000000000001",
		AgentID:       "65b000000000000000000002",
		CustomerID:    "cust-1",
		CustomerName:  "Ada Traveler",
		CustomerEmail: "ada@example.com",
		Items: []models.QuoteItemInput{{
			Description: "Hotel week", Quantity: 1, UnitPrice: 1000,
			SupplierCost: supplierCost, BookingType: "hotel",
		}},
		DueInDays: 30,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return invoice
}

func TestConfirmationEndToEnd(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	invoice := f.createInvoice(t, 700)

	conf := models.PaymentConfirmation{
		PaymentIntentID: "pi-e2e", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	}
	outcome, err := f.svc.ApplyConfirmation(ctx, conf)
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}
	if outcome.Invoice.Status != models.InvoiceStatusPaid {
		t.Errorf("invoice status: got %s, want paid", outcome.Invoice.Status)
	}
	if outcome.Allocation == nil || len(outcome.Allocation.Allocations) != 1 {
		t.Fatalf("allocation missing or wrong shape: %+v", outcome.Allocation)
	}

	// A second delivery of the same event creates nothing new.
	replay, err := f.svc.ApplyConfirmation(ctx, conf)
	if err != nil {
		t.Fatalf("replayed confirmation: %v", err)
	}
	if len(replay.Invoice.Payments) != 1 {
		t.Errorf("payments after replay: got %d, want 1", len(replay.Invoice.Payments))
	}
	if len(f.allocations.docs) != 1 {
		t.Errorf("allocations after replay: got %d, want 1", len(f.allocations.docs))
	}
	commissions, _ := f.commissions.FindByInvoiceID(ctx, invoice.ID)
	if len(commissions) != 1 {
		t.Errorf("commissions after replay: got %d, want 1", len(commissions))
	}
}

// TestAllocationFailureRevertsPayment: when the split cannot balance the
// payment must come back off the invoice, not sit there unallocated.
func TestAllocationFailureRevertsPayment(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	invoice := f.createInvoice(t, 5000) // supplier cost far above the price

	_, err := f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-bad", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	})
	var consistency *ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("got %v, want ConsistencyError", err)
	}

	stored, _ := f.invoices.FindByID(ctx, invoice.ID)
	if stored.PaidAmount != 0 {
		t.Errorf("paidAmount advanced without an allocation: %.2f", stored.PaidAmount)
	}
	if len(stored.Payments) != 0 {
		t.Errorf("payment left behind after compensation: %d", len(stored.Payments))
	}
}

func TestFailedConfirmationRecordsFailedPayment(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	invoice := f.createInvoice(t, 700)

	outcome, err := f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-nope", InvoiceID: invoice.ID.Hex(), Amount: 100,
		Method: "card", Status: models.PaymentStatusFailed,
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}
	if outcome.Invoice.Status != models.InvoiceStatusDraft || outcome.Invoice.PaidAmount != 0 {
		t.Errorf("failed confirmation changed ledger state: %+v", outcome.Invoice)
	}
	if outcome.Allocation != nil {
		t.Error("failed confirmation must not allocate funds")
	}
}

// A quote-level override must follow the invoice all the way into the
// allocation, beating both rules and the booking-type default.
func TestQuoteOverrideRateReachesAllocation(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()

	override := 5.0
	invoice, err := f.ledger.CreateInvoice(ctx, models.QuoteAcceptanceRequest{
		QuoteID:       "65b000000000000000000001",
		AgentID:       "65b000000000000000000002",
		CustomerID:    "cust-1",
		CustomerName:  "Ada Traveler",
		CustomerEmail: "ada@example.com",
		Items: []models.QuoteItemInput{{
			Description: "Hotel fortnight", Quantity: 1, UnitPrice: 2000,
			SupplierCost: 1400, BookingType: "hotel",
		}},
		DueInDays:              30,
		OverrideCommissionRate: &override,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.OverrideCommissionRate == nil || *invoice.OverrideCommissionRate != 5 {
		t.Fatal("override rate not stored on the invoice")
	}

	outcome, err := f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-override", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}

	row := outcome.Allocation.Allocations[0]
	if row.CommissionRate != 5 {
		t.Errorf("allocation rate: got %.2f, want the 5.00 override, not the hotel default", row.CommissionRate)
	}
	if row.AgentCommission != 100.00 {
		t.Errorf("agent commission: got %.2f, want 100.00 (5%% of 2000)", row.AgentCommission)
	}
	commissions, _ := f.commissions.FindByInvoiceID(ctx, invoice.ID)
	if len(commissions) != 1 {
		t.Fatalf("commission records: got %d, want 1", len(commissions))
	}
	if commissions[0].CommissionRate != 5 || commissions[0].CommissionAmount != 100.00 {
		t.Errorf("commission record ignored the override: rate %.2f, amount %.2f",
			commissions[0].CommissionRate, commissions[0].CommissionAmount)
	}
}

// A rule rate outside the policy bounds fails the allocation with a
// validation error. That failure must compensate like any other: the
// payment comes back off the invoice.
func TestRuleBoundsFailureRevertsPayment(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	f.rules.rules = []models.CommissionRule{{
		ID:             primitive.NewObjectID(),
		Name:           "legacy promo",
		CommissionRate: 60, // above the policy maximum of 50
		IsActive:       true,
	}}
	invoice := f.createInvoice(t, 700)

	_, err := f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-oob", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got %v, want ValidationError", err)
	}

	stored, _ := f.invoices.FindByID(ctx, invoice.ID)
	if stored.PaidAmount != 0 || len(stored.Payments) != 0 {
		t.Errorf("payment left applied after allocation failure: paid %.2f, %d payments",
			stored.PaidAmount, len(stored.Payments))
	}
	if stored.Status != models.InvoiceStatusDraft {
		t.Errorf("invoice status: got %s, want draft", stored.Status)
	}
	if alloc, _ := f.allocations.FindByPaymentIntentID(ctx, "pi-oob"); alloc != nil {
		t.Error("no allocation may exist for a reverted payment")
	}
}

type flakyCommissionRepo struct {
	*memCommissionRepo
	failInserts int
}

func (r *flakyCommissionRepo) Insert(ctx context.Context, commission *models.Commission) error {
	if r.failInserts > 0 {
		r.failInserts--
		return errors.New("write timeout")
	}
	return r.memCommissionRepo.Insert(ctx, commission)
}

// A commission insert failing after the allocation is persisted must not
// undo the payment. The error surfaces so the gateway redelivers, and the
// redelivery writes the missing record.
func TestCommissionWriteFailureSurfacesAndHeals(t *testing.T) {
	ctx := context.Background()
	invoices := newMemInvoiceRepo()
	allocations := newMemAllocationRepo()
	commissions := &flakyCommissionRepo{memCommissionRepo: newMemCommissionRepo(), failInserts: 1}
	provider := staticPolicy{testPolicy()}

	ledger := NewLedgerService(invoices, provider, nil)
	commissionSvc := NewCommissionService(&memRuleRepo{}, commissions, provider)
	svc := NewPaymentService(ledger, NewAllocationService(allocations, commissionSvc), nil, nil)

	invoice, err := ledger.CreateInvoice(ctx, models.QuoteAcceptanceRequest{
		QuoteID: "65b000000000000000000001", AgentID: "65b000000000000000000002",
		CustomerID: "cust-1", CustomerName: "Ada Traveler", CustomerEmail: "ada@example.com",
		Items: []models.QuoteItemInput{{
			Description: "Hotel week", Quantity: 1, UnitPrice: 1000,
			SupplierCost: 700, BookingType: "hotel",
		}},
		DueInDays: 30,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	conf := models.PaymentConfirmation{
		PaymentIntentID: "pi-flaky", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	}
	_, err = svc.ApplyConfirmation(ctx, conf)
	var record *CommissionRecordError
	if !errors.As(err, &record) {
		t.Fatalf("got %v, want CommissionRecordError", err)
	}

	// The money stays applied; only the commission record is missing.
	stored, _ := invoices.FindByID(ctx, invoice.ID)
	if stored.PaidAmount != invoice.Total || len(stored.Payments) != 1 {
		t.Errorf("payment reverted although the allocation stands: paid %.2f, %d payments",
			stored.PaidAmount, len(stored.Payments))
	}
	if len(allocations.docs) != 1 {
		t.Fatalf("allocations: got %d, want 1", len(allocations.docs))
	}
	if got, _ := commissions.FindByInvoiceID(ctx, invoice.ID); len(got) != 0 {
		t.Fatalf("commissions after failed insert: got %d, want 0", len(got))
	}

	outcome, err := svc.ApplyConfirmation(ctx, conf)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(allocations.docs) != 1 || len(outcome.Invoice.Payments) != 1 {
		t.Errorf("redelivery duplicated state: %d allocations, %d payments",
			len(allocations.docs), len(outcome.Invoice.Payments))
	}
	got, _ := commissions.FindByInvoiceID(ctx, invoice.ID)
	if len(got) != 1 {
		t.Fatalf("commissions after redelivery: got %d, want 1", len(got))
	}
	if got[0].PaymentIntentID != "pi-flaky" {
		t.Errorf("commission not tied to its payment intent: %q", got[0].PaymentIntentID)
	}
}

func TestGatewayVerificationGuards(t *testing.T) {
	ctx := context.Background()

	// The gateway disagrees with the event: record a failed payment.
	declined := &fakeGateway{status: &GatewayPaymentStatus{Status: "failed"}}
	f := newPaymentFixture(declined)
	invoice := f.createInvoice(t, 700)

	outcome, err := f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-declined", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}
	if declined.calls != 1 {
		t.Errorf("gateway calls: got %d, want 1", declined.calls)
	}
	if outcome.Invoice.PaidAmount != 0 {
		t.Errorf("declined payment advanced paidAmount: %.2f", outcome.Invoice.PaidAmount)
	}

	// The gateway is unreachable: surface the error, touch nothing.
	down := &fakeGateway{err: &ExternalGatewayError{Op: "verify", Err: errors.New("timeout")}}
	f = newPaymentFixture(down)
	invoice = f.createInvoice(t, 700)

	_, err = f.svc.ApplyConfirmation(ctx, models.PaymentConfirmation{
		PaymentIntentID: "pi-down", InvoiceID: invoice.ID.Hex(), Amount: invoice.Total,
		Method: "card", Status: models.PaymentStatusCompleted,
	})
	var gatewayErr *ExternalGatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("got %v, want ExternalGatewayError", err)
	}
	stored, _ := f.invoices.FindByID(ctx, invoice.ID)
	if len(stored.Payments) != 0 || stored.PaidAmount != 0 {
		t.Errorf("gateway failure touched the invoice: %+v", stored)
	}
}
