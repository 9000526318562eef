package services

import (
	"context"
	"time"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/utils"
)

// ReportService is the read side of the ledger. Every metric is a fold
// over the collections, recomputed on demand; nothing here mutates state
// and nothing derived is cached.
type ReportService struct {
	invoices    repositories.InvoiceRepository
	commissions repositories.CommissionRepository
	expenses    repositories.ExpenseRepository
}

// NewReportService creates a new financial aggregator.
func NewReportService(invoices repositories.InvoiceRepository, commissions repositories.CommissionRepository, expenses repositories.ExpenseRepository) *ReportService {
	return &ReportService{invoices: invoices, commissions: commissions, expenses: expenses}
}

// GetFinancialSummary computes revenue, outstanding, overdue, profit and
// collection metrics for invoices created in [from, to]. Ratios fall back
// to zero instead of dividing by zero.
func (s *ReportService) GetFinancialSummary(ctx context.Context, from, to time.Time) (*models.FinancialSummary, error) {
	invoices, err := s.invoices.Find(ctx, repositories.InvoiceFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.FindApprovedInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	paidCommissions, err := s.commissions.FindPaidInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summary := &models.FinancialSummary{From: from, To: to}
	invoicedTotal := 0.0
	for _, invoice := range invoices {
		summary.InvoiceCount++
		invoicedTotal += invoice.Total

		if invoice.Status == models.InvoiceStatusPaid {
			summary.TotalRevenue += invoice.Total
		}
		if invoice.Status != models.InvoiceStatusPaid && invoice.Status != models.InvoiceStatusCancelled {
			summary.TotalOutstanding += invoice.RemainingAmount
		}
		if invoice.IsOverdue(now) {
			summary.OverdueCount++
			summary.OverdueAmount += invoice.RemainingAmount
		}
	}

	for _, expense := range expenses {
		summary.TotalExpenses += expense.Amount
	}
	for _, commission := range paidCommissions {
		summary.PaidCommissions += commission.CommissionAmount
	}

	summary.TotalRevenue = utils.RoundMoney(summary.TotalRevenue)
	summary.TotalOutstanding = utils.RoundMoney(summary.TotalOutstanding)
	summary.OverdueAmount = utils.RoundMoney(summary.OverdueAmount)
	summary.TotalExpenses = utils.RoundMoney(summary.TotalExpenses)
	summary.PaidCommissions = utils.RoundMoney(summary.PaidCommissions)
	summary.NetProfit = utils.RoundMoney(summary.TotalRevenue - summary.TotalExpenses - summary.PaidCommissions)

	if summary.TotalRevenue > 0 {
		summary.ProfitMargin = summary.NetProfit / summary.TotalRevenue
	}
	if invoicedTotal > 0 {
		summary.CollectionRate = summary.TotalRevenue / invoicedTotal
	}
	return summary, nil
}
