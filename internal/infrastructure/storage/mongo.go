package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// AssociationsCollection holds one document per normalized description
const AssociationsCollection = "associations"

// DataStore is the subset of *mongo.Collection used by the repository
type DataStore interface {
	UpdateOne(
		ctx context.Context,
		filter interface{},
		update interface{},
		opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(
		ctx context.Context,
		filter interface{},
		opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(
		ctx context.Context,
		filter interface{},
		opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// CollectionProvider defines the interface for obtaining a collection
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoProvider adapts *mongo.Client to CollectionProvider
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a provider for collections of database
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{client: client, database: database}
}

// Collection returns a DataStore for the given collection name
func (p *MongoProvider) Collection(name string) DataStore {
	return p.client.Database(p.database).Collection(name)
}

// ConnectToMongoDB establishes and verifies a connection to MongoDB
func ConnectToMongoDB(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	logger.DebugContext(ctx, "Connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.InfoContext(ctx, "Connected to MongoDB")
	return client, nil
}

// MongoAssociationRepository implements AssociationRepository on MongoDB.
// Documents carry a created_at used to keep the SQLite listing order.
type MongoAssociationRepository struct {
	provider CollectionProvider
	now      func() time.Time
}

var _ AssociationRepository = (*MongoAssociationRepository)(nil)

// NewMongoAssociationRepository creates a new repository
func NewMongoAssociationRepository(provider CollectionProvider) *MongoAssociationRepository {
	return &MongoAssociationRepository{
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveAssociation upserts by normalized description
func (r *MongoAssociationRepository) SaveAssociation(ctx context.Context, a matcher.LearnedAssociation) error {
	if a.NormalizedDescription == "" {
		return fmt.Errorf("association has an empty description key")
	}

	now := r.now()
	filter := bson.M{"normalized_description": a.NormalizedDescription}
	update := bson.M{
		"$set": bson.M{
			"church_id":        a.ChurchID,
			"contributor_name": strings.TrimSpace(a.ContributorName),
			"updated_at":       now,
		},
		"$inc":         bson.M{"times_confirmed": 1},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := r.provider.Collection(AssociationsCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert association %q: %w", a.NormalizedDescription, err)
	}
	return nil
}

// GetAssociation retrieves an association by normalized description
func (r *MongoAssociationRepository) GetAssociation(ctx context.Context, normalizedDescription string) (*Association, error) {
	var a Association
	err := r.provider.Collection(AssociationsCollection).
		FindOne(ctx, bson.M{"normalized_description": normalizedDescription}).
		Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find association: %w", err)
	}
	return &a, nil
}

// ListAssociations returns every association, oldest first
func (r *MongoAssociationRepository) ListAssociations(ctx context.Context) ([]Association, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.provider.Collection(AssociationsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	associations := make([]Association, 0)
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("failed to decode associations: %w", err)
	}
	return associations, nil
}
