package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/utils"
)

// RefundService computes refunds from cancellation-policy tiers and
// decides commission clawbacks. The calculation itself is pure: the same
// ledger state always produces the same numbers, and calling it never
// mutates anything. Applying a calculation is a separate operation.
type RefundService struct {
	invoices    repositories.InvoiceRepository
	allocations repositories.AllocationRepository
	commissions repositories.CommissionRepository
	policy      repositories.PolicyProvider
	ledger      *LedgerService
	allocation  *AllocationService
}

// NewRefundService creates a new refund calculator.
func NewRefundService(
	invoices repositories.InvoiceRepository,
	allocations repositories.AllocationRepository,
	commissions repositories.CommissionRepository,
	policy repositories.PolicyProvider,
	ledger *LedgerService,
	allocation *AllocationService,
) *RefundService {
	return &RefundService{
		invoices:    invoices,
		allocations: allocations,
		commissions: commissions,
		policy:      policy,
		ledger:      ledger,
		allocation:  allocation,
	}
}

// DaysBeforeTravel returns the whole days between cancellation and
// travel. A cancellation after the travel date yields a negative count.
func DaysBeforeTravel(cancellationDate, travelDate time.Time) int {
	hours := travelDate.Sub(cancellationDate).Hours()
	if hours < 0 {
		return int(hours/24) - 1
	}
	return int(hours / 24)
}

// RefundPercentage selects the percentage the cancellation qualifies for:
// the tier with the largest days-before-travel threshold that the actual
// lead time still meets. Non-refundable policies and cancellations past
// the hard deadline get nothing.
func RefundPercentage(policy *models.CancellationPolicy, cancellationDate, travelDate time.Time) float64 {
	if policy == nil || policy.NonRefundable {
		return 0
	}
	if policy.CancellationDeadline != nil && cancellationDate.After(*policy.CancellationDeadline) {
		return 0
	}

	daysBefore := DaysBeforeTravel(cancellationDate, travelDate)
	best := -1
	pct := 0.0
	for _, tier := range policy.Tiers {
		if daysBefore >= tier.DaysBeforeTravel && tier.DaysBeforeTravel > best {
			best = tier.DaysBeforeTravel
			pct = tier.RefundPercentage
		}
	}
	return pct
}

// CalculateRefund computes the refund for a cancellation without touching
// any state. Per item it applies the item's policy tiers, subtracts the
// service fee (never below zero), and flags a clawback when the item's
// commission is already paid and the refund is partial.
func (s *RefundService) CalculateRefund(ctx context.Context, req models.CancellationRequest) (*models.RefundCalculation, error) {
	invoiceID, err := primitive.ObjectIDFromHex(req.InvoiceID)
	if err != nil {
		return nil, &ValidationError{Field: "invoiceId", Reason: "invalid id"}
	}
	if req.CancellationDate.IsZero() || req.TravelDate.IsZero() {
		return nil, &ValidationError{Field: "cancellationDate", Reason: "cancellation and travel dates are required"}
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, &NotFoundError{Entity: "invoice", ID: req.InvoiceID}
	}

	itemFilter, err := parseItemIDs(req.QuoteItemIDs)
	if err != nil {
		return nil, err
	}

	paidByItem, err := s.clientPaidByItem(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	commissionsByItem, err := s.commissionsByItem(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	feePolicy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.RefundCalculation{}
	for _, item := range invoice.Items {
		if len(itemFilter) > 0 && !itemFilter[item.ID] {
			continue
		}
		clientPaid := paidByItem[item.ID]
		if clientPaid <= 0 {
			continue
		}

		travelDate := req.TravelDate
		if item.TravelDate != nil {
			travelDate = *item.TravelDate
		}
		pct := RefundPercentage(item.CancellationPolicy, req.CancellationDate, travelDate)

		gross := utils.RoundMoney(clientPaid * pct / 100.0)
		fee := 0.0
		if gross > 0 {
			fee = utils.RoundMoney(feePolicy.ServiceFeeFor(gross))
			if fee > gross {
				fee = gross
			}
		}
		refund := utils.RoundMoney(gross - fee)

		// Partial payments each earn their own commission record; the
		// clawback covers the unearned share of every paid one.
		clawback := 0.0
		if pct < 100 {
			for _, commission := range commissionsByItem[item.ID] {
				if commission.Status != models.CommissionStatusPaid {
					continue
				}
				clawback = utils.RoundMoney(clawback + commission.CommissionAmount*(1-pct/100.0))
			}
		}

		result.Breakdown = append(result.Breakdown, models.RefundItemBreakdown{
			QuoteItemID:        item.ID,
			Description:        item.Description,
			ClientPaid:         clientPaid,
			RefundPercentage:   pct,
			RefundAmount:       refund,
			ServiceFee:         fee,
			CommissionClawback: clawback,
		})
		result.RefundAmount = utils.RoundMoney(result.RefundAmount + refund)
		result.ServiceFee = utils.RoundMoney(result.ServiceFee + fee)
		result.CommissionClawback = utils.RoundMoney(result.CommissionClawback + clawback)
	}

	result.ShouldClawbackCommission = result.CommissionClawback > 0
	return result, nil
}

// ApplyRefund executes a cancellation against the ledger: held escrow
// rows for the cancelled items move to refunded and the invoice gets a
// compensating refund record. The commission clawback is only reported;
// reducing the commission stays a separate, auditable call.
func (s *RefundService) ApplyRefund(ctx context.Context, req models.CancellationRequest) (*models.RefundCalculation, error) {
	calc, err := s.CalculateRefund(ctx, req)
	if err != nil {
		return nil, err
	}

	invoiceID, _ := primitive.ObjectIDFromHex(req.InvoiceID)
	itemFilter, err := parseItemIDs(req.QuoteItemIDs)
	if err != nil {
		return nil, err
	}

	if err := s.allocation.MarkRowsRefunded(ctx, invoiceID, itemFilter); err != nil {
		return nil, err
	}
	if calc.RefundAmount > 0 {
		if err := s.ledger.AppendRefundRecord(ctx, invoiceID, calc.RefundAmount); err != nil {
			return nil, err
		}
	}

	log.Printf("Applied refund of $%.2f to invoice %s (service fee $%.2f, clawback reported $%.2f)",
		calc.RefundAmount, req.InvoiceID, calc.ServiceFee, calc.CommissionClawback)
	return calc, nil
}

// clientPaidByItem sums the non-refunded allocation rows per item.
func (s *RefundService) clientPaidByItem(ctx context.Context, invoiceID primitive.ObjectID) (map[primitive.ObjectID]float64, error) {
	allocations, err := s.allocations.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	paid := make(map[primitive.ObjectID]float64)
	for _, allocation := range allocations {
		for _, row := range allocation.Allocations {
			if row.EscrowStatus == models.EscrowStatusRefunded {
				continue
			}
			paid[row.QuoteItemID] = utils.RoundMoney(paid[row.QuoteItemID] + row.ClientPaid)
		}
	}
	return paid, nil
}

func (s *RefundService) commissionsByItem(ctx context.Context, invoiceID primitive.ObjectID) (map[primitive.ObjectID][]models.Commission, error) {
	commissions, err := s.commissions.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[primitive.ObjectID][]models.Commission)
	for _, commission := range commissions {
		byItem[commission.QuoteItemID] = append(byItem[commission.QuoteItemID], commission)
	}
	return byItem, nil
}

func parseItemIDs(ids []string) (map[primitive.ObjectID]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parsed := make(map[primitive.ObjectID]bool, len(ids))
	for _, raw := range ids {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, &ValidationError{Field: "quoteItemIds", Reason: "invalid id " + raw}
		}
		parsed[id] = true
	}
	return parsed, nil
}
