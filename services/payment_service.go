package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tripledger/travel_backend/models"
)

// intentGuardTTL bounds how long a payment-intent key blocks concurrent
// deliveries in Redis. The Mongo unique indexes stay authoritative.
const intentGuardTTL = 24 * time.Hour

// PaymentService applies payment-confirmation events end to end: verify
// with the gateway, record the payment on the invoice, then allocate the
// funds. If allocation fails the payment is taken back off the invoice,
// so paidAmount never advances without a matching allocation.
type PaymentService struct {
	ledger     *LedgerService
	allocation *AllocationService
	gateway    PaymentGateway
	redis      *redis.Client
}

// NewPaymentService creates the confirmation pipeline. gateway and redis
// may be nil; verification and the replay fast path degrade gracefully.
func NewPaymentService(ledger *LedgerService, allocation *AllocationService, gateway PaymentGateway, redisClient *redis.Client) *PaymentService {
	return &PaymentService{ledger: ledger, allocation: allocation, gateway: gateway, redis: redisClient}
}

// PaymentOutcome is what one confirmation produced.
type PaymentOutcome struct {
	Invoice    *models.Invoice        `json:"invoice"`
	Allocation *models.FundAllocation `json:"allocation,omitempty"`
	Duplicate  bool                   `json:"duplicate,omitempty"`
}

// ApplyConfirmation applies one payment-confirmation event idempotently,
// keyed by the gateway's payment-intent id. A duplicate delivery returns
// the already-applied state and creates nothing.
func (s *PaymentService) ApplyConfirmation(ctx context.Context, conf models.PaymentConfirmation) (*PaymentOutcome, error) {
	if conf.Status != models.PaymentStatusCompleted {
		invoice, err := s.ledger.RecordFailedPayment(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{Invoice: invoice}, nil
	}

	firstDelivery := s.claimIntent(ctx, conf.PaymentIntentID)
	if !firstDelivery {
		log.Printf("Payment intent %s seen before, replaying idempotently", conf.PaymentIntentID)
	}

	if s.gateway != nil {
		status, err := s.gateway.VerifyPayment(ctx, conf.PaymentIntentID)
		if err != nil {
			s.releaseIntent(ctx, conf.PaymentIntentID)
			return nil, err
		}
		if status.Status != "success" && status.Status != models.PaymentStatusCompleted {
			log.Printf("Gateway reports intent %s as %q, recording failed payment", conf.PaymentIntentID, status.Status)
			s.releaseIntent(ctx, conf.PaymentIntentID)
			invoice, err := s.ledger.RecordFailedPayment(ctx, conf)
			if err != nil {
				return nil, err
			}
			return &PaymentOutcome{Invoice: invoice}, nil
		}
	}

	invoice, err := s.ledger.RecordPayment(ctx, conf)
	if err != nil {
		s.releaseIntent(ctx, conf.PaymentIntentID)
		return nil, err
	}

	var payment *models.Payment
	for i := range invoice.Payments {
		if invoice.Payments[i].PaymentIntentID == conf.PaymentIntentID {
			payment = &invoice.Payments[i]
			break
		}
	}
	if payment == nil || payment.Status != models.PaymentStatusCompleted {
		return nil, &ConsistencyError{Reason: "recorded payment not found on invoice"}
	}

	allocation, err := s.allocation.AllocatePayment(ctx, invoice, *payment, invoice.OverrideCommissionRate)
	if err != nil {
		var record *CommissionRecordError
		if errors.As(err, &record) {
			// The funds are applied and allocated; only commission records
			// are missing. Surfacing the error makes the gateway redeliver,
			// and the replay fills in whatever is still absent.
			log.Printf("Payment %s allocated but commission records incomplete: %v", conf.PaymentIntentID, err)
			return nil, err
		}
		// Compensate: no allocation failure may leave the payment applied
		// with no allocation behind it.
		if revertErr := s.ledger.RemovePayment(ctx, invoice.ID, conf.PaymentIntentID); revertErr != nil {
			log.Printf("CRITICAL: failed to revert payment %s after allocation failure: %v", conf.PaymentIntentID, revertErr)
		}
		s.releaseIntent(ctx, conf.PaymentIntentID)
		return nil, err
	}

	return &PaymentOutcome{Invoice: invoice, Allocation: allocation, Duplicate: !firstDelivery}, nil
}

// claimIntent is the Redis fast path against duplicate deliveries. With
// Redis down every delivery looks first; the unique index still holds.
func (s *PaymentService) claimIntent(ctx context.Context, intentID string) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, "payment_intent:"+intentID, 1, intentGuardTTL).Result()
	if err != nil {
		log.Printf("Warning: Redis intent guard unavailable: %v", err)
		return true
	}
	return ok
}

func (s *PaymentService) releaseIntent(ctx context.Context, intentID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "payment_intent:"+intentID).Err(); err != nil {
		log.Printf("Warning: failed to release intent guard for %s: %v", intentID, err)
	}
}
