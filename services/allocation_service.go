package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/utils"
)

// AllocationService splits completed payments across an invoice's items
// into supplier cost, platform fee and agent commission, and owns the
// escrow state of the resulting rows.
type AllocationService struct {
	allocations repositories.AllocationRepository
	commission  *CommissionService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAllocationService creates a new fund allocation engine.
func NewAllocationService(allocations repositories.AllocationRepository, commission *CommissionService) *AllocationService {
	return &AllocationService{
		allocations: allocations,
		commission:  commission,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *AllocationService) lockAllocation(id string) func() {
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

// AllocatePayment creates the per-item split for one completed payment
// and opens escrow on every row. Replaying the same payment intent
// returns the existing allocation without creating anything. The split
// must balance exactly; an unbalanced row aborts the whole operation
// before anything is persisted.
func (s *AllocationService) AllocatePayment(ctx context.Context, invoice *models.Invoice, payment models.Payment, overrideRate *float64) (*models.FundAllocation, error) {
	existing, err := s.allocations.FindByPaymentIntentID(ctx, payment.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// A replay also heals commission records a prior delivery failed
		// to write.
		if err := s.ensureCommissions(ctx, invoice, existing, overrideRate); err != nil {
			return existing, err
		}
		return existing, nil
	}

	if len(invoice.Items) == 0 || invoice.Subtotal <= 0 || invoice.Total <= 0 {
		return nil, &ConsistencyError{Reason: "invoice has no billable items to allocate against"}
	}

	var agentID *primitive.ObjectID
	if !invoice.AgentID.IsZero() {
		id := invoice.AgentID
		agentID = &id
	}
	paidFraction := payment.Amount / invoice.Total

	rows := make([]models.ItemAllocation, 0, len(invoice.Items))
	allocated := 0.0
	for i, item := range invoice.Items {
		// The item's share of the payment, weighted by its line total.
		// The last row absorbs the rounding remainder so the rows sum
		// to the payment amount exactly.
		var clientPaid float64
		if i == len(invoice.Items)-1 {
			clientPaid = utils.RoundMoney(payment.Amount - allocated)
		} else {
			clientPaid = utils.RoundMoney(payment.Amount * item.Total / invoice.Subtotal)
		}
		allocated = utils.RoundMoney(allocated + clientPaid)

		supplierShare := utils.RoundMoney(item.SupplierCost * paidFraction)

		resolved, err := s.commission.ResolveRate(ctx, agentID, clientPaid, item.BookingType, overrideRate)
		if err != nil {
			return nil, err
		}
		agentCommission := 0.0
		if agentID != nil {
			agentCommission, err = s.commission.Calculate(ctx, clientPaid, resolved)
			if err != nil {
				return nil, err
			}
		}

		platformFee := utils.RoundMoney(clientPaid - supplierShare - agentCommission)
		if platformFee < -utils.MoneyTolerance {
			return nil, &ConsistencyError{Reason: fmt.Sprintf(
				"negative platform fee %.2f on item %q (client paid %.2f, supplier %.2f, commission %.2f)",
				platformFee, item.Description, clientPaid, supplierShare, agentCommission)}
		}
		if platformFee < 0 {
			// sub-cent rounding dust, fold it into the supplier share
			supplierShare = utils.RoundMoney(supplierShare + platformFee)
			platformFee = 0
		}

		rows = append(rows, models.ItemAllocation{
			QuoteItemID:     item.ID,
			Description:     item.Description,
			ClientPaid:      clientPaid,
			SupplierCost:    supplierShare,
			PlatformFee:     platformFee,
			AgentCommission: agentCommission,
			CommissionRate:  resolved.Rate,
			EscrowStatus:    models.EscrowStatusHeld,
		})
	}

	if !utils.MoneyEquals(allocated, payment.Amount) {
		return nil, &ConsistencyError{Reason: fmt.Sprintf("allocation rows sum to %.2f, payment amount is %.2f", allocated, payment.Amount)}
	}

	now := time.Now()
	allocation := &models.FundAllocation{
		ID:              primitive.NewObjectID(),
		PaymentIntentID: payment.PaymentIntentID,
		InvoiceID:       invoice.ID,
		QuoteID:         invoice.QuoteID,
		TotalAmount:     payment.Amount,
		Allocations:     rows,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.allocations.Insert(ctx, allocation); err != nil {
		// A concurrent delivery of the same intent may have won the
		// unique index race; the stored allocation is the answer.
		if mongo.IsDuplicateKeyError(err) {
			return s.allocations.FindByPaymentIntentID(ctx, payment.PaymentIntentID)
		}
		return nil, err
	}

	if err := s.ensureCommissions(ctx, invoice, allocation, overrideRate); err != nil {
		return allocation, err
	}

	log.Printf("Allocated payment %s across %d items of invoice %s ($%.2f held in escrow)",
		payment.PaymentIntentID, len(rows), invoice.ID.Hex(), payment.Amount)
	return allocation, nil
}

// ensureCommissions writes the commission record behind each allocation
// row, skipping rows that already have one for this payment intent. It
// runs on creation and again on replays, so a record whose insert failed
// is retried on the next delivery instead of being lost. Failures come
// back as a CommissionRecordError; the allocation itself stands.
func (s *AllocationService) ensureCommissions(ctx context.Context, invoice *models.Invoice, allocation *models.FundAllocation, overrideRate *float64) error {
	if invoice.AgentID.IsZero() {
		return nil
	}
	agentID := invoice.AgentID

	existing, err := s.commission.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return &CommissionRecordError{PaymentIntentID: allocation.PaymentIntentID, Errs: []error{err}}
	}
	recorded := make(map[primitive.ObjectID]bool)
	for _, commission := range existing {
		if commission.PaymentIntentID == allocation.PaymentIntentID {
			recorded[commission.QuoteItemID] = true
		}
	}

	itemsByID := make(map[primitive.ObjectID]*models.InvoiceItem, len(invoice.Items))
	for i := range invoice.Items {
		itemsByID[invoice.Items[i].ID] = &invoice.Items[i]
	}

	var errs []error
	for i := range allocation.Allocations {
		row := &allocation.Allocations[i]
		if recorded[row.QuoteItemID] || row.ClientPaid <= 0 {
			continue
		}
		item, ok := itemsByID[row.QuoteItemID]
		if !ok {
			continue
		}
		resolved, err := s.commission.ResolveRate(ctx, &agentID, row.ClientPaid, item.BookingType, overrideRate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.commission.CreateCommission(ctx, agentID, invoice, item, allocation.PaymentIntentID, row.ClientPaid, resolved, row.AgentCommission); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &CommissionRecordError{PaymentIntentID: allocation.PaymentIntentID, Errs: errs}
	}
	return nil
}

// ReleaseEscrow transitions held rows to released for one of the defined
// triggers. Cancellations do not come through here; they move rows to
// refunded via MarkRowsRefunded.
func (s *AllocationService) ReleaseEscrow(ctx context.Context, req models.EscrowReleaseRequest) (*models.FundAllocation, error) {
	allocationID, err := primitive.ObjectIDFromHex(req.AllocationID)
	if err != nil {
		return nil, &ValidationError{Field: "allocationId", Reason: "invalid id"}
	}
	switch req.Trigger {
	case models.ReleaseTriggerBookingConfirmed,
		models.ReleaseTriggerCancellationWindowClosed,
		models.ReleaseTriggerTravelCompleted,
		models.ReleaseTriggerManualOverride:
	default:
		return nil, &ValidationError{Field: "trigger", Reason: "unknown release trigger " + req.Trigger}
	}

	unlock := s.lockAllocation(req.AllocationID)
	defer unlock()

	allocation, err := s.allocations.FindByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if allocation == nil {
		return nil, &NotFoundError{Entity: "fund allocation", ID: req.AllocationID}
	}

	effective := time.Now()
	if req.EffectiveDate != nil {
		effective = *req.EffectiveDate
	}

	released := 0
	for i := range allocation.Allocations {
		row := &allocation.Allocations[i]
		if row.EscrowStatus != models.EscrowStatusHeld {
			continue
		}
		row.EscrowStatus = models.EscrowStatusReleased
		row.ReleaseTrigger = req.Trigger
		row.ReleasedAt = &effective
		released++
	}
	if released == 0 {
		return nil, &ConflictError{Reason: "allocation has no held rows to release"}
	}

	if err := s.allocations.Replace(ctx, allocation); err != nil {
		return nil, err
	}
	log.Printf("Released %d escrow rows on allocation %s (trigger: %s)", released, allocation.ID.Hex(), req.Trigger)
	return allocation, nil
}

// MarkRowsRefunded moves the held rows for the given items to refunded
// across every allocation of the invoice. An empty item set means all
// items. Rows already released stay released; their funds are gone and
// recovering them is a manual process.
func (s *AllocationService) MarkRowsRefunded(ctx context.Context, invoiceID primitive.ObjectID, itemIDs map[primitive.ObjectID]bool) error {
	allocations, err := s.allocations.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return err
	}

	for i := range allocations {
		allocation := &allocations[i]
		unlock := s.lockAllocation(allocation.ID.Hex())

		changed := false
		for j := range allocation.Allocations {
			row := &allocation.Allocations[j]
			if len(itemIDs) > 0 && !itemIDs[row.QuoteItemID] {
				continue
			}
			if row.EscrowStatus != models.EscrowStatusHeld {
				continue
			}
			row.EscrowStatus = models.EscrowStatusRefunded
			changed = true
		}
		if changed {
			err = s.allocations.Replace(ctx, allocation)
		}
		unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// GetAllocation returns one allocation by id.
func (s *AllocationService) GetAllocation(ctx context.Context, allocationID primitive.ObjectID) (*models.FundAllocation, error) {
	allocation, err := s.allocations.FindByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if allocation == nil {
		return nil, &NotFoundError{Entity: "fund allocation", ID: allocationID.Hex()}
	}
	return allocation, nil
}

// ListByInvoice returns every allocation created for one invoice.
func (s *AllocationService) ListByInvoice(ctx context.Context, invoiceID primitive.ObjectID) ([]models.FundAllocation, error) {
	return s.allocations.FindByInvoiceID(ctx, invoiceID)
}
