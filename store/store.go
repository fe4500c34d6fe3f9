package store

import (
	"context"
	"fmt"

	"krakensync/models"
)

// Store is the persistence contract the sync job writes through. Records and
// metadata are append-only: the engine never updates or deletes a persisted
// document, and a re-fetched record is skipped, not rewritten. The asset pair
// cache is the one exception since it is derived data, not history.
type Store interface {
	LatestMetadata(ctx context.Context, dataType models.DataType) (*models.Metadata, error)
	InsertMetadata(ctx context.Context, metadata *models.Metadata) error
	InsertRecords(ctx context.Context, dataType models.DataType, records []models.Record) (int, error)
	AssetPair(ctx context.Context, pair string) (*models.AssetPair, error)
	SaveAssetPairs(ctx context.Context, pairs map[string]models.AssetPair) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Explicit data-type to collection lookup; unknown types fail loudly instead
// of dispatching dynamically.
var recordCollections = map[models.DataType]string{
	models.DataTypeTrades:  "kraken_trades",
	models.DataTypeRewards: "kraken_rewards",
}

const (
	metadataCollection  = "kraken_metadata"
	assetPairCollection = "kraken_asset_pairs"
)

func recordCollectionName(dataType models.DataType) (string, error) {
	name, ok := recordCollections[dataType]
	if !ok {
		return "", fmt.Errorf("no collection mapped for data type '%s'", dataType)
	}
	return name, nil
}

// NopStore satisfies Store when persistence is disabled. Reads find nothing,
// writes go nowhere, and every run behaves like a first full retrieval.
type NopStore struct{}

func NewNopStore() *NopStore {
	return &NopStore{}
}

func (*NopStore) LatestMetadata(context.Context, models.DataType) (*models.Metadata, error) {
	return nil, nil
}

func (*NopStore) InsertMetadata(context.Context, *models.Metadata) error {
	return nil
}

func (*NopStore) InsertRecords(_ context.Context, _ models.DataType, records []models.Record) (int, error) {
	return len(records), nil
}

func (*NopStore) AssetPair(context.Context, string) (*models.AssetPair, error) {
	return nil, nil
}

func (*NopStore) SaveAssetPairs(context.Context, map[string]models.AssetPair) error {
	return nil
}

func (*NopStore) Ping(context.Context) error {
	return nil
}

func (*NopStore) Close(context.Context) error {
	return nil
}
