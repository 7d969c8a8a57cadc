package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoArchive хранит сырые IPN-уведомления вместе с результатом обработки.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoArchive(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoArchive, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	ctxIndex, cancelIndex := context.WithTimeout(ctx, timeout)
	defer cancelIndex()

	if err := dropLegacyUniqueIndex(ctxIndex, coll); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to drop legacy index: %w", err)
	}

	if _, err := coll.Indexes().CreateMany(ctxIndex, archiveIndexes()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoArchive{
		client:     client,
		collection: coll,
	}, nil
}

// archiveIndexes индексы для выборок по txn_id и по времени приёма.
// Уникальности нет: каждое входящее уведомление хранится отдельным документом,
// в том числе повторные доставки и смена статуса одного txn_id.
func archiveIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "txn_id", Value: 1}, {Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}, {Key: "received_at", Value: -1}}},
	}
}

const (
	legacyUniqueIndex     = "txn_id_1_outcome_1"
	namespaceNotFoundCode = 26
	indexNotFoundCode     = 27
)

// dropLegacyUniqueIndex убирает уникальный индекс (txn_id, outcome) прежних версий,
// из-за которого терялись уведомления с тем же txn_id.
func dropLegacyUniqueIndex(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().DropOne(ctx, legacyUniqueIndex)
	var cmdErr mongo.CommandError
	if err == nil || (errors.As(err, &cmdErr) && (cmdErr.Code == indexNotFoundCode || cmdErr.Code == namespaceNotFoundCode)) {
		return nil
	}
	return err
}

func newArchiveFromCollection(coll *mongo.Collection) *MongoArchive {
	return &MongoArchive{collection: coll}
}

func (a *MongoArchive) SaveNotification(ctx context.Context, notification *models.ArchivedNotification) error {
	notification.ArchivedAt = time.Now()

	if _, err := a.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to archive notification: %w", err)
	}

	return nil
}

func (a *MongoArchive) Close() error {
	if a.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.client.Disconnect(ctx)
}

// NoOpArchive используется, когда MONGO_ENABLED=false.
type NoOpArchive struct{}

func NewNoOpArchive() storage.Archive {
	return NoOpArchive{}
}

func (NoOpArchive) SaveNotification(context.Context, *models.ArchivedNotification) error {
	return nil
}

func (NoOpArchive) Close() error {
	return nil
}
