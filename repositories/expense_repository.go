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

// ExpenseRepository owns the expenses collection.
type ExpenseRepository interface {
	Insert(ctx context.Context, expense *models.Expense) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error)
	FindApprovedInRange(ctx context.Context, from, to time.Time) ([]models.Expense, error)
	Find(ctx context.Context, status string) ([]models.Expense, error)
	Replace(ctx context.Context, expense *models.Expense) error
}

type mongoExpenseRepository struct {
	collection *mongo.Collection
}

// NewExpenseRepository returns a Mongo-backed expense repository.
func NewExpenseRepository(db *mongo.Database) ExpenseRepository {
	return &mongoExpenseRepository{collection: db.Collection("expenses")}
}

func (r *mongoExpenseRepository) Insert(ctx context.Context, expense *models.Expense) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if expense.ID.IsZero() {
		expense.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, expense)
	return err
}

func (r *mongoExpenseRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var expense models.Expense
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&expense)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *mongoExpenseRepository) FindApprovedInRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	query := bson.M{"status": models.ExpenseStatusApproved}
	dateRange := bson.M{}
	if !from.IsZero() {
		dateRange["$gte"] = from
	}
	if !to.IsZero() {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		query["incurredAt"] = dateRange
	}
	return r.findAll(ctx, query)
}

func (r *mongoExpenseRepository) Find(ctx context.Context, status string) ([]models.Expense, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	return r.findAll(ctx, query)
}

func (r *mongoExpenseRepository) Replace(ctx context.Context, expense *models.Expense) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": expense.ID}, expense)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoExpenseRepository) findAll(ctx context.Context, query bson.M) ([]models.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "incurredAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var expenses []models.Expense
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}
