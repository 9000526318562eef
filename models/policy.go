package models

// Service-fee modes for refunds.
const (
	ServiceFeeModeFlat    = "flat"
	ServiceFeeModePercent = "percent"
)

// FinancePolicy is the read-only policy configuration supplied by the
// admin settings screens. The core consumes it through a PolicyProvider;
// it never writes it.
type FinancePolicy struct {
	DefaultCommissionRate float64            `bson:"defaultCommissionRate" json:"defaultCommissionRate"`
	TypeCommissionRates   map[string]float64 `bson:"typeCommissionRates,omitempty" json:"typeCommissionRates,omitempty"`
	MinCommissionRate     float64            `bson:"minCommissionRate" json:"minCommissionRate"`
	MaxCommissionRate     float64            `bson:"maxCommissionRate" json:"maxCommissionRate"`
	DefaultPaymentTerms   int                `bson:"defaultPaymentTermsDays" json:"defaultPaymentTermsDays"`
	ServiceFeeMode        string             `bson:"serviceFeeMode" json:"serviceFeeMode"`
	ServiceFeeValue       float64            `bson:"serviceFeeValue" json:"serviceFeeValue"`
}

// ServiceFeeFor returns the cancellation service fee for a refund of the
// given gross amount.
func (p FinancePolicy) ServiceFeeFor(grossRefund float64) float64 {
	if grossRefund <= 0 {
		return 0
	}
	if p.ServiceFeeMode == ServiceFeeModePercent {
		return grossRefund * p.ServiceFeeValue / 100.0
	}
	return p.ServiceFeeValue
}

// RateForType returns the configured default rate for a booking type,
// falling back to the global default when the type is unknown.
func (p FinancePolicy) RateForType(bookingType string) float64 {
	if rate, ok := p.TypeCommissionRates[bookingType]; ok {
		return rate
	}
	return p.DefaultCommissionRate
}
