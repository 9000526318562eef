package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionRule is configured by the admin settings screens and read-only
// to the ledger core. A rule may be scoped three ways, independently:
// to one agent (AgentID set) or all agents, to one booking type or all,
// and to a booking-amount range or unbounded. More specific rules win;
// resolution order lives in services.CommissionService.
type CommissionRule struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string              `bson:"name" json:"name"`
	AgentID        *primitive.ObjectID `bson:"agentId,omitempty" json:"agentId,omitempty"`
	BookingType    string              `bson:"bookingType,omitempty" json:"bookingType,omitempty"`
	MinAmount      *float64            `bson:"minAmount,omitempty" json:"minAmount,omitempty"`
	MaxAmount      *float64            `bson:"maxAmount,omitempty" json:"maxAmount,omitempty"`
	CommissionRate float64             `bson:"commissionRate" json:"commissionRate"`
	FlatFee        float64             `bson:"flatFee,omitempty" json:"flatFee,omitempty"`
	IsActive       bool                `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Matches reports whether the rule applies to the given booking. Inactive
// rules never match. A nil AgentID means the rule applies to every agent.
func (r *CommissionRule) Matches(agentID *primitive.ObjectID, bookingType string, amount float64) bool {
	if !r.IsActive {
		return false
	}
	if r.AgentID != nil {
		if agentID == nil || *r.AgentID != *agentID {
			return false
		}
	}
	if r.BookingType != "" && r.BookingType != bookingType {
		return false
	}
	if r.MinAmount != nil && amount < *r.MinAmount {
		return false
	}
	if r.MaxAmount != nil && amount > *r.MaxAmount {
		return false
	}
	return true
}

// AgentScoped reports whether the rule targets a single agent.
func (r *CommissionRule) AgentScoped() bool { return r.AgentID != nil }

// RangeBounded reports whether the rule restricts the booking amount.
func (r *CommissionRule) RangeBounded() bool { return r.MinAmount != nil || r.MaxAmount != nil }
