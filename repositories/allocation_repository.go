package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripledger/travel_backend/models"
)

// AllocationRepository owns the fund_allocations collection. The unique
// index on paymentIntentId (config/db.go) is the authoritative guard
// against duplicate confirmation replays.
type AllocationRepository interface {
	Insert(ctx context.Context, allocation *models.FundAllocation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.FundAllocation, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.FundAllocation, error)
	FindByInvoiceID(ctx context.Context, invoiceID primitive.ObjectID) ([]models.FundAllocation, error)
	Replace(ctx context.Context, allocation *models.FundAllocation) error
}

type mongoAllocationRepository struct {
	collection *mongo.Collection
}

// NewAllocationRepository returns a Mongo-backed allocation repository.
func NewAllocationRepository(db *mongo.Database) AllocationRepository {
	return &mongoAllocationRepository{collection: db.Collection("fund_allocations")}
}

func (r *mongoAllocationRepository) Insert(ctx context.Context, allocation *models.FundAllocation) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if allocation.ID.IsZero() {
		allocation.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, allocation)
	return err
}

func (r *mongoAllocationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.FundAllocation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var allocation models.FundAllocation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&allocation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &allocation, nil
}

func (r *mongoAllocationRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.FundAllocation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var allocation models.FundAllocation
	err := r.collection.FindOne(ctx, bson.M{"paymentIntentId": intentID}).Decode(&allocation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &allocation, nil
}

func (r *mongoAllocationRepository) FindByInvoiceID(ctx context.Context, invoiceID primitive.ObjectID) ([]models.FundAllocation, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"invoiceId": invoiceID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var allocations []models.FundAllocation
	if err := cursor.All(ctx, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *mongoAllocationRepository) Replace(ctx context.Context, allocation *models.FundAllocation) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	allocation.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": allocation.ID}, allocation)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
