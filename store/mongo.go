package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appconfig "krakensync/config"
	"krakensync/logger"
	"krakensync/models"
)

// MongoStore persists records, watermarks and the asset pair cache in
// MongoDB, one document per record keyed by its upstream ID.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Log
}

// NewMongoStore connects, verifies reachability and ensures indexes. An
// unreachable server is fatal here: there is no point retrieving data that
// cannot be saved.
func NewMongoStore(ctx context.Context, cfg appconfig.MongoDBConfig) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb unreachable: %w", err)
	}

	store := &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
		log:    logger.GetLogger(),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	store.log.WithComponent("mongo_store").WithFields(logger.Fields{"database": cfg.Database}).Info("mongodb store initialized")
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	for _, name := range recordCollections {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "time", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	_, err := s.db.Collection(metadataCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "data_type", Value: 1}, {Key: "record_timestamp_end", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", metadataCollection, err)
	}
	return nil
}

// LatestMetadata returns the most recent watermark for the data type, or nil
// when no prior sync has been recorded.
func (s *MongoStore) LatestMetadata(ctx context.Context, dataType models.DataType) (*models.Metadata, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "record_timestamp_end", Value: -1}})

	var metadata models.Metadata
	err := s.db.Collection(metadataCollection).
		FindOne(ctx, bson.M{"data_type": dataType}, opts).
		Decode(&metadata)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark for '%s': %w", dataType, err)
	}
	return &metadata, nil
}

// InsertMetadata appends a new watermark document. Existing watermarks are
// never touched; readers pick the most recent one.
func (s *MongoStore) InsertMetadata(ctx context.Context, metadata *models.Metadata) error {
	if metadata == nil {
		return nil
	}
	if _, err := s.db.Collection(metadataCollection).InsertOne(ctx, metadata); err != nil {
		return fmt.Errorf("failed to insert watermark: %w", err)
	}
	return nil
}

// InsertRecords inserts records by upstream ID and reports how many were
// actually new. Duplicate-key conflicts are expected when a run re-fetches
// overlap around the watermark and are silently skipped.
func (s *MongoStore) InsertRecords(ctx context.Context, dataType models.DataType, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	name, err := recordCollectionName(dataType)
	if err != nil {
		return 0, err
	}

	docs := make([]interface{}, 0, len(records))
	for _, record := range records {
		docs = append(docs, record)
	}

	result, err := s.db.Collection(name).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if result != nil {
		inserted = len(result.InsertedIDs)
	}
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && onlyDuplicateErrors(bulkErr) {
			s.log.WithComponent("mongo_store").WithFields(logger.Fields{
				"data_type":  dataType,
				"duplicates": len(bulkErr.WriteErrors),
			}).Debug("skipped already-persisted records")
			return inserted, nil
		}
		return inserted, fmt.Errorf("failed to insert %s records: %w", dataType, err)
	}
	return inserted, nil
}

func onlyDuplicateErrors(err mongo.BulkWriteException) bool {
	if len(err.WriteErrors) == 0 {
		return false
	}
	for _, writeErr := range err.WriteErrors {
		if writeErr.Code != 11000 {
			return false
		}
	}
	return true
}

// AssetPair looks up cached pair metadata; nil when the pair is unknown.
func (s *MongoStore) AssetPair(ctx context.Context, pair string) (*models.AssetPair, error) {
	var info models.AssetPair
	err := s.db.Collection(assetPairCollection).FindOne(ctx, bson.M{"_id": pair}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset pair '%s': %w", pair, err)
	}
	return &info, nil
}

// SaveAssetPairs refreshes the asset pair cache. Pairs are replaced in place;
// this is derived metadata, not history, so append-only does not apply.
func (s *MongoStore) SaveAssetPairs(ctx context.Context, pairs map[string]models.AssetPair) error {
	coll := s.db.Collection(assetPairCollection)
	opts := options.Replace().SetUpsert(true)
	for pair, info := range pairs {
		info.Pair = pair
		if _, err := coll.ReplaceOne(ctx, bson.M{"_id": pair}, info, opts); err != nil {
			return fmt.Errorf("failed to save asset pair '%s': %w", pair, err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
