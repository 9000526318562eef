package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
)

// In-memory repository fakes. They copy documents on the way in and out
// so a service mutating a loaded document cannot bypass Replace.

type memInvoiceRepo struct {
	docs map[primitive.ObjectID]models.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{docs: make(map[primitive.ObjectID]models.Invoice)}
}

func copyInvoice(in models.Invoice) models.Invoice {
	out := in
	out.Items = append([]models.InvoiceItem(nil), in.Items...)
	out.Payments = append([]models.Payment(nil), in.Payments...)
	return out
}

func (r *memInvoiceRepo) Insert(_ context.Context, invoice *models.Invoice) error {
	if invoice.ID.IsZero() {
		invoice.ID = primitive.NewObjectID()
	}
	r.docs[invoice.ID] = copyInvoice(*invoice)
	return nil
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	out := copyInvoice(doc)
	return &out, nil
}

func (r *memInvoiceRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*models.Invoice, error) {
	for _, doc := range r.docs {
		for _, payment := range doc.Payments {
			if payment.PaymentIntentID == intentID {
				out := copyInvoice(doc)
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) Replace(_ context.Context, invoice *models.Invoice) error {
	r.docs[invoice.ID] = copyInvoice(*invoice)
	return nil
}

func (r *memInvoiceRepo) Find(_ context.Context, filter repositories.InvoiceFilter) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, doc := range r.docs {
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if doc.Status == status {
					matched = true
				}
			}
			if !matched {
				continue
			}
		}
		if !filter.From.IsZero() && doc.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && doc.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, copyInvoice(doc))
	}
	return out, nil
}

type memCommissionRepo struct {
	docs map[primitive.ObjectID]models.Commission
}

func newMemCommissionRepo() *memCommissionRepo {
	return &memCommissionRepo{docs: make(map[primitive.ObjectID]models.Commission)}
}

func (r *memCommissionRepo) Insert(_ context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	r.docs[commission.ID] = *commission
	return nil
}

func (r *memCommissionRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Commission, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	out := doc
	return &out, nil
}

func (r *memCommissionRepo) FindByInvoiceID(_ context.Context, invoiceID primitive.ObjectID) ([]models.Commission, error) {
	var out []models.Commission
	for _, doc := range r.docs {
		if doc.InvoiceID == invoiceID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memCommissionRepo) FindByAgentID(_ context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	var out []models.Commission
	for _, doc := range r.docs {
		if doc.AgentID == agentID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memCommissionRepo) FindPaidInRange(_ context.Context, from, to time.Time) ([]models.Commission, error) {
	var out []models.Commission
	for _, doc := range r.docs {
		if doc.Status != models.CommissionStatusPaid || doc.PaidAt == nil {
			continue
		}
		if !from.IsZero() && doc.PaidAt.Before(from) {
			continue
		}
		if !to.IsZero() && doc.PaidAt.After(to) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *memCommissionRepo) Replace(_ context.Context, commission *models.Commission) error {
	r.docs[commission.ID] = *commission
	return nil
}

type memRuleRepo struct {
	rules []models.CommissionRule
}

func (r *memRuleRepo) FindActive(_ context.Context) ([]models.CommissionRule, error) {
	var out []models.CommissionRule
	for _, rule := range r.rules {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

type memAllocationRepo struct {
	docs map[primitive.ObjectID]models.FundAllocation
}

func newMemAllocationRepo() *memAllocationRepo {
	return &memAllocationRepo{docs: make(map[primitive.ObjectID]models.FundAllocation)}
}

func copyAllocation(in models.FundAllocation) models.FundAllocation {
	out := in
	out.Allocations = append([]models.ItemAllocation(nil), in.Allocations...)
	return out
}

func (r *memAllocationRepo) Insert(_ context.Context, allocation *models.FundAllocation) error {
	if allocation.ID.IsZero() {
		allocation.ID = primitive.NewObjectID()
	}
	r.docs[allocation.ID] = copyAllocation(*allocation)
	return nil
}

func (r *memAllocationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.FundAllocation, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	out := copyAllocation(doc)
	return &out, nil
}

func (r *memAllocationRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*models.FundAllocation, error) {
	for _, doc := range r.docs {
		if doc.PaymentIntentID == intentID {
			out := copyAllocation(doc)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memAllocationRepo) FindByInvoiceID(_ context.Context, invoiceID primitive.ObjectID) ([]models.FundAllocation, error) {
	var out []models.FundAllocation
	for _, doc := range r.docs {
		if doc.InvoiceID == invoiceID {
			out = append(out, copyAllocation(doc))
		}
	}
	return out, nil
}

func (r *memAllocationRepo) Replace(_ context.Context, allocation *models.FundAllocation) error {
	r.docs[allocation.ID] = copyAllocation(*allocation)
	return nil
}

type memExpenseRepo struct {
	docs map[primitive.ObjectID]models.Expense
}

func newMemExpenseRepo() *memExpenseRepo {
	return &memExpenseRepo{docs: make(map[primitive.ObjectID]models.Expense)}
}

func (r *memExpenseRepo) Insert(_ context.Context, expense *models.Expense) error {
	if expense.ID.IsZero() {
		expense.ID = primitive.NewObjectID()
	}
	r.docs[expense.ID] = *expense
	return nil
}

func (r *memExpenseRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Expense, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	out := doc
	return &out, nil
}

func (r *memExpenseRepo) FindApprovedInRange(_ context.Context, from, to time.Time) ([]models.Expense, error) {
	var out []models.Expense
	for _, doc := range r.docs {
		if doc.Status != models.ExpenseStatusApproved {
			continue
		}
		if !from.IsZero() && doc.IncurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && doc.IncurredAt.After(to) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *memExpenseRepo) Find(_ context.Context, status string) ([]models.Expense, error) {
	var out []models.Expense
	for _, doc := range r.docs {
		if status == "" || doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memExpenseRepo) Replace(_ context.Context, expense *models.Expense) error {
	r.docs[expense.ID] = *expense
	return nil
}

// staticPolicy is a PolicyProvider with fixed values.
type staticPolicy struct {
	policy models.FinancePolicy
}

func (p staticPolicy) GetPolicy(_ context.Context) (models.FinancePolicy, error) {
	return p.policy, nil
}

func testPolicy() models.FinancePolicy {
	return models.FinancePolicy{
		DefaultCommissionRate: 10,
		TypeCommissionRates:   map[string]float64{"hotel": 12, "flight": 5},
		MinCommissionRate:     0,
		MaxCommissionRate:     50,
		DefaultPaymentTerms:   30,
		ServiceFeeMode:        models.ServiceFeeModeFlat,
		ServiceFeeValue:       0,
	}
}
