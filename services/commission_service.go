package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/utils"
)

// Rate sources, recorded on resolved rates for auditing.
const (
	RateSourceQuoteOverride = "quote_override"
	RateSourceRule          = "commission_rule"
	RateSourcePolicyDefault = "policy_default"
)

// ResolvedRate is the outcome of commission rate resolution for one
// booking.
type ResolvedRate struct {
	Rate    float64
	FlatFee float64
	RuleID  *primitive.ObjectID
	Source  string
}

// CommissionService resolves commission rates and owns the commission
// records' lifecycle. It reads rules and policy through injected
// read-only capabilities and never reaches into another store.
type CommissionService struct {
	rules       repositories.CommissionRuleRepository
	commissions repositories.CommissionRepository
	policy      repositories.PolicyProvider
}

// NewCommissionService creates a new commission service.
func NewCommissionService(rules repositories.CommissionRuleRepository, commissions repositories.CommissionRepository, policy repositories.PolicyProvider) *CommissionService {
	return &CommissionService{rules: rules, commissions: commissions, policy: policy}
}

// ruleMatchers is the explicit resolution order: agent-specific before
// generic, range-bounded before unbounded within each scope. Each
// predicate narrows the candidate set already filtered by Matches.
var ruleMatchers = []func(r *models.CommissionRule) bool{
	func(r *models.CommissionRule) bool { return r.AgentScoped() && r.RangeBounded() && r.BookingType != "" },
	func(r *models.CommissionRule) bool { return r.AgentScoped() && r.RangeBounded() },
	func(r *models.CommissionRule) bool { return r.AgentScoped() && r.BookingType != "" },
	func(r *models.CommissionRule) bool { return r.AgentScoped() },
	func(r *models.CommissionRule) bool { return r.RangeBounded() && r.BookingType != "" },
	func(r *models.CommissionRule) bool { return r.RangeBounded() },
	func(r *models.CommissionRule) bool { return r.BookingType != "" },
	func(r *models.CommissionRule) bool { return true },
}

// ResolveRate picks the commission rate for a booking. A quote-level
// override wins outright; otherwise the most specific active matching
// rule applies, and with no match the policy default for the booking
// type. Identical inputs always yield the same result.
func (s *CommissionService) ResolveRate(ctx context.Context, agentID *primitive.ObjectID, bookingAmount float64, bookingType string, overrideRate *float64) (ResolvedRate, error) {
	if bookingAmount <= 0 {
		return ResolvedRate{}, &ValidationError{Field: "bookingAmount", Reason: "must be positive"}
	}

	if overrideRate != nil {
		return ResolvedRate{Rate: *overrideRate, Source: RateSourceQuoteOverride}, nil
	}

	rules, err := s.rules.FindActive(ctx)
	if err != nil {
		return ResolvedRate{}, err
	}

	var candidates []models.CommissionRule
	for _, rule := range rules {
		if rule.Matches(agentID, bookingType, bookingAmount) {
			candidates = append(candidates, rule)
		}
	}

	for _, matcher := range ruleMatchers {
		var best *models.CommissionRule
		for i := range candidates {
			rule := &candidates[i]
			if !matcher(rule) {
				continue
			}
			// Ties inside one specificity bucket break on id so the
			// outcome never depends on insertion order.
			if best == nil || rule.ID.Hex() < best.ID.Hex() {
				best = rule
			}
		}
		if best != nil {
			id := best.ID
			return ResolvedRate{Rate: best.CommissionRate, FlatFee: best.FlatFee, RuleID: &id, Source: RateSourceRule}, nil
		}
	}

	policy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		return ResolvedRate{}, err
	}
	return ResolvedRate{Rate: policy.RateForType(bookingType), Source: RateSourcePolicyDefault}, nil
}

// Calculate turns a resolved rate and booking amount into a commission
// value. The rate must sit inside the policy bounds; a violation is
// rejected, never clamped.
func (s *CommissionService) Calculate(ctx context.Context, bookingAmount float64, resolved ResolvedRate) (float64, error) {
	if bookingAmount <= 0 {
		return 0, &ValidationError{Field: "bookingAmount", Reason: "must be positive"}
	}

	policy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		return 0, err
	}
	if resolved.Rate < policy.MinCommissionRate || resolved.Rate > policy.MaxCommissionRate {
		return 0, &ValidationError{
			Field:  "commissionRate",
			Reason: fmt.Sprintf("rate %.2f outside configured bounds [%.2f, %.2f]", resolved.Rate, policy.MinCommissionRate, policy.MaxCommissionRate),
		}
	}

	return utils.RoundMoney(bookingAmount*resolved.Rate/100.0 + resolved.FlatFee), nil
}

// CreateCommission persists a pending commission for a confirmed booking
// item. The payment intent id ties the record to the allocation it was
// earned on, so partial payments each carry their own commission.
func (s *CommissionService) CreateCommission(ctx context.Context, agentID primitive.ObjectID, invoice *models.Invoice, item *models.InvoiceItem, paymentIntentID string, bookingAmount float64, resolved ResolvedRate, amount float64) (*models.Commission, error) {
	commission := &models.Commission{
		ID:               primitive.NewObjectID(),
		AgentID:          agentID,
		InvoiceID:        invoice.ID,
		QuoteID:          invoice.QuoteID,
		QuoteItemID:      item.ID,
		PaymentIntentID:  paymentIntentID,
		BookingType:      item.BookingType,
		BookingAmount:    utils.RoundMoney(bookingAmount),
		CommissionRate:   resolved.Rate,
		FlatFee:          resolved.FlatFee,
		CommissionAmount: amount,
		Status:           models.CommissionStatusPending,
		CreatedAt:        time.Now(),
	}
	if err := s.commissions.Insert(ctx, commission); err != nil {
		return nil, err
	}
	return commission, nil
}

// Approve moves a pending commission to approved.
func (s *CommissionService) Approve(ctx context.Context, commissionID primitive.ObjectID, approvedBy *primitive.ObjectID) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, &NotFoundError{Entity: "commission", ID: commissionID.Hex()}
	}
	if commission.Status != models.CommissionStatusPending {
		return nil, &ConflictError{Reason: "only a pending commission can be approved, current status is " + commission.Status}
	}

	now := time.Now()
	commission.Status = models.CommissionStatusApproved
	commission.ApprovedAt = &now
	commission.ApprovedBy = approvedBy
	if err := s.commissions.Replace(ctx, commission); err != nil {
		return nil, err
	}
	return commission, nil
}

// MarkPaid moves an approved commission to paid.
func (s *CommissionService) MarkPaid(ctx context.Context, commissionID primitive.ObjectID) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, &NotFoundError{Entity: "commission", ID: commissionID.Hex()}
	}
	if commission.Status != models.CommissionStatusApproved {
		return nil, &ConflictError{Reason: "only an approved commission can be paid, current status is " + commission.Status}
	}

	now := time.Now()
	commission.Status = models.CommissionStatusPaid
	commission.PaidAt = &now
	if err := s.commissions.Replace(ctx, commission); err != nil {
		return nil, err
	}
	return commission, nil
}

// Dispute flags a commission for manual review.
func (s *CommissionService) Dispute(ctx context.Context, commissionID primitive.ObjectID, note string) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, &NotFoundError{Entity: "commission", ID: commissionID.Hex()}
	}

	commission.Status = models.CommissionStatusDisputed
	commission.DisputeNote = note
	if err := s.commissions.Replace(ctx, commission); err != nil {
		return nil, err
	}
	return commission, nil
}

// ApplyClawback reduces a commission by a previously computed clawback
// amount. This is the only path that ever lowers CommissionAmount, and it
// is an explicit call so the caller can log or approve the clawback first.
func (s *CommissionService) ApplyClawback(ctx context.Context, req models.ClawbackRequest) (*models.Commission, error) {
	commissionID, err := primitive.ObjectIDFromHex(req.CommissionID)
	if err != nil {
		return nil, &ValidationError{Field: "commissionId", Reason: "invalid id"}
	}
	if req.ClawbackAmount <= 0 {
		return nil, &ValidationError{Field: "clawbackAmount", Reason: "must be positive"}
	}

	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, &NotFoundError{Entity: "commission", ID: req.CommissionID}
	}
	if utils.MoneyGreater(req.ClawbackAmount, commission.CommissionAmount) {
		return nil, &ValidationError{Field: "clawbackAmount", Reason: "exceeds remaining commission amount"}
	}

	now := time.Now()
	commission.CommissionAmount = utils.RoundMoney(commission.CommissionAmount - req.ClawbackAmount)
	commission.ClawbackAmount = utils.RoundMoney(commission.ClawbackAmount + req.ClawbackAmount)
	commission.ClawedBackAt = &now
	if err := s.commissions.Replace(ctx, commission); err != nil {
		return nil, err
	}

	log.Printf("Clawback of $%.2f applied to commission %s (reason: %s)", req.ClawbackAmount, commission.ID.Hex(), req.Reason)
	return commission, nil
}

// ListByAgent returns an agent's commission history.
func (s *CommissionService) ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	return s.commissions.FindByAgentID(ctx, agentID)
}

// ListByInvoice returns the commissions created for one invoice.
func (s *CommissionService) ListByInvoice(ctx context.Context, invoiceID primitive.ObjectID) ([]models.Commission, error) {
	return s.commissions.FindByInvoiceID(ctx, invoiceID)
}
