package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// Open builds the repository selected by cfg.Driver. With the mongo driver
// associations live in MongoDB while runs and ledger entries stay in SQLite.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Repository, error) {
	store, err := NewStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		return store, nil
	case config.DriverMongo:
		client, err := ConnectToMongoDB(ctx, cfg.MongoURI, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return &MongoBackedRepository{
			Storage:      store,
			associations: NewMongoAssociationRepository(NewMongoProvider(client, cfg.MongoDatabase)),
			client:       client,
		}, nil
	default:
		_ = store.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// MongoBackedRepository routes association calls to MongoDB and everything
// else to the embedded SQLite storage
type MongoBackedRepository struct {
	*Storage
	associations AssociationRepository
	client       *mongo.Client
}

var _ Repository = (*MongoBackedRepository)(nil)

// SaveAssociation delegates to MongoDB
func (r *MongoBackedRepository) SaveAssociation(ctx context.Context, a matcher.LearnedAssociation) error {
	return r.associations.SaveAssociation(ctx, a)
}

// GetAssociation delegates to MongoDB
func (r *MongoBackedRepository) GetAssociation(ctx context.Context, normalizedDescription string) (*Association, error) {
	return r.associations.GetAssociation(ctx, normalizedDescription)
}

// ListAssociations delegates to MongoDB
func (r *MongoBackedRepository) ListAssociations(ctx context.Context) ([]Association, error) {
	return r.associations.ListAssociations(ctx)
}

// Close disconnects from MongoDB and closes the SQLite database
func (r *MongoBackedRepository) Close() error {
	var mongoErr error
	if r.client != nil {
		mongoErr = r.client.Disconnect(context.Background())
	}
	if err := r.Storage.Close(); err != nil {
		return err
	}
	return mongoErr
}
