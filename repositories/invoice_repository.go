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

// InvoiceFilter narrows invoice listings. Zero values mean "no filter".
type InvoiceFilter struct {
	Statuses []string
	AgentID  *primitive.ObjectID
	From     time.Time
	To       time.Time
}

// InvoiceRepository owns the invoices collection. Updates replace the
// whole document so every ledger operation commits all-or-nothing; the
// services recompute derived fields before calling Replace.
type InvoiceRepository interface {
	Insert(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Invoice, error)
	Replace(ctx context.Context, invoice *models.Invoice) error
	Find(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error)
}

type mongoInvoiceRepository struct {
	collection *mongo.Collection
}

// NewInvoiceRepository returns a Mongo-backed invoice repository.
func NewInvoiceRepository(db *mongo.Database) InvoiceRepository {
	return &mongoInvoiceRepository{collection: db.Collection("invoices")}
}

func (r *mongoInvoiceRepository) Insert(ctx context.Context, invoice *models.Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if invoice.ID.IsZero() {
		invoice.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, invoice)
	return err
}

func (r *mongoInvoiceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var invoice models.Invoice
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&invoice)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *mongoInvoiceRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var invoice models.Invoice
	err := r.collection.FindOne(ctx, bson.M{"payments.paymentIntentId": intentID}).Decode(&invoice)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *mongoInvoiceRepository) Replace(ctx context.Context, invoice *models.Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	invoice.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": invoice.ID}, invoice)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoInvoiceRepository) Find(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.AgentID != nil {
		query["agentId"] = *filter.AgentID
	}
	dateRange := bson.M{}
	if !filter.From.IsZero() {
		dateRange["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		dateRange["$lte"] = filter.To
	}
	if len(dateRange) > 0 {
		query["createdAt"] = dateRange
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}
