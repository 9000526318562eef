package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripledger/travel_backend/models"
)

// CommissionRuleRepository reads the commission_rules collection. Rules
// are written by the admin settings screens, never by the ledger core, so
// the interface is read-only.
type CommissionRuleRepository interface {
	FindActive(ctx context.Context) ([]models.CommissionRule, error)
}

type mongoCommissionRuleRepository struct {
	collection *mongo.Collection
}

// NewCommissionRuleRepository returns a Mongo-backed rule repository.
func NewCommissionRuleRepository(db *mongo.Database) CommissionRuleRepository {
	return &mongoCommissionRuleRepository{collection: db.Collection("commission_rules")}
}

func (r *mongoCommissionRuleRepository) FindActive(ctx context.Context) ([]models.CommissionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []models.CommissionRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
