package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripledger/travel_backend/models"
)

// PolicyProvider is the read-only capability handed to the commission and
// refund services. The settings screens own the document; the core only
// reads it.
type PolicyProvider interface {
	GetPolicy(ctx context.Context) (models.FinancePolicy, error)
}

type mongoPolicyRepository struct {
	collection *mongo.Collection
	defaults   models.FinancePolicy
}

// NewPolicyRepository returns a PolicyProvider backed by the settings
// collection, falling back to the given defaults when no finance_policy
// document has been configured yet.
func NewPolicyRepository(db *mongo.Database, defaults models.FinancePolicy) PolicyProvider {
	return &mongoPolicyRepository{
		collection: db.Collection("settings"),
		defaults:   defaults,
	}
}

func (r *mongoPolicyRepository) GetPolicy(ctx context.Context) (models.FinancePolicy, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var doc struct {
		Key    string               `bson:"key"`
		Policy models.FinancePolicy `bson:"policy"`
	}
	err := r.collection.FindOne(ctx, bson.M{"key": "finance_policy"}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return r.defaults, nil
		}
		return models.FinancePolicy{}, err
	}

	policy := doc.Policy
	if policy.MaxCommissionRate == 0 {
		policy.MaxCommissionRate = r.defaults.MaxCommissionRate
	}
	if policy.DefaultPaymentTerms == 0 {
		policy.DefaultPaymentTerms = r.defaults.DefaultPaymentTerms
	}
	return policy, nil
}
