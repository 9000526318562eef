package models

import "time"

// FinancialSummary is the aggregator's output for one date range. All
// figures are recomputed on demand; nothing here is persisted.
type FinancialSummary struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	TotalRevenue     float64   `json:"totalRevenue"`
	TotalOutstanding float64   `json:"totalOutstanding"`
	OverdueAmount    float64   `json:"overdueAmount"`
	TotalExpenses    float64   `json:"totalExpenses"`
	PaidCommissions  float64   `json:"paidCommissions"`
	NetProfit        float64   `json:"netProfit"`
	ProfitMargin     float64   `json:"profitMargin"`
	CollectionRate   float64   `json:"collectionRate"`
	InvoiceCount     int       `json:"invoiceCount"`
	OverdueCount     int       `json:"overdueCount"`
}
