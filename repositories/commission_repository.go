package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tripledger/travel_backend/models"
)

// CommissionRepository owns the commissions collection.
type CommissionRepository interface {
	Insert(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindByInvoiceID(ctx context.Context, invoiceID primitive.ObjectID) ([]models.Commission, error)
	FindByAgentID(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error)
	FindPaidInRange(ctx context.Context, from, to time.Time) ([]models.Commission, error)
	Replace(ctx context.Context, commission *models.Commission) error
}

type mongoCommissionRepository struct {
	collection *mongo.Collection
}

// NewCommissionRepository returns a Mongo-backed commission repository.
func NewCommissionRepository(db *mongo.Database) CommissionRepository {
	return &mongoCommissionRepository{collection: db.Collection("commissions")}
}

func (r *mongoCommissionRepository) Insert(ctx context.Context, commission *models.Commission) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, commission)
	return err
}

func (r *mongoCommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&commission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

func (r *mongoCommissionRepository) FindByInvoiceID(ctx context.Context, invoiceID primitive.ObjectID) ([]models.Commission, error) {
	return r.findAll(ctx, bson.M{"invoiceId": invoiceID})
}

func (r *mongoCommissionRepository) FindByAgentID(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	return r.findAll(ctx, bson.M{"agentId": agentID})
}

func (r *mongoCommissionRepository) FindPaidInRange(ctx context.Context, from, to time.Time) ([]models.Commission, error) {
	query := bson.M{"status": models.CommissionStatusPaid}
	dateRange := bson.M{}
	if !from.IsZero() {
		dateRange["$gte"] = from
	}
	if !to.IsZero() {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		query["paidAt"] = dateRange
	}
	return r.findAll(ctx, query)
}

func (r *mongoCommissionRepository) Replace(ctx context.Context, commission *models.Commission) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": commission.ID}, commission)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoCommissionRepository) findAll(ctx context.Context, query bson.M) ([]models.Commission, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}
