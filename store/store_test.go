package store

import (
	"context"
	"testing"

	"krakensync/models"
)

func TestRecordCollectionName(t *testing.T) {
	cases := []struct {
		dataType models.DataType
		want     string
		fails    bool
	}{
		{models.DataTypeTrades, "kraken_trades", false},
		{models.DataTypeRewards, "kraken_rewards", false},
		{models.DataType("balances"), "", true},
	}
	for _, c := range cases {
		got, err := recordCollectionName(c.dataType)
		if c.fails {
			if err == nil {
				t.Errorf("recordCollectionName(%s) expected error", c.dataType)
			}
			continue
		}
		if err != nil {
			t.Errorf("recordCollectionName(%s) unexpected error: %v", c.dataType, err)
			continue
		}
		if got != c.want {
			t.Errorf("recordCollectionName(%s) = %s, want %s", c.dataType, got, c.want)
		}
	}
}

func TestNopStoreBehavesLikeFirstRun(t *testing.T) {
	ctx := context.Background()
	s := NewNopStore()

	metadata, err := s.LatestMetadata(ctx, models.DataTypeTrades)
	if err != nil || metadata != nil {
		t.Errorf("LatestMetadata = (%v, %v), want (nil, nil)", metadata, err)
	}

	records := []models.Record{&models.Trade{ID: "a"}, &models.Trade{ID: "b"}}
	inserted, err := s.InsertRecords(ctx, models.DataTypeTrades, records)
	if err != nil {
		t.Fatalf("InsertRecords failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	if err := s.InsertMetadata(ctx, &models.Metadata{DataType: models.DataTypeTrades}); err != nil {
		t.Errorf("InsertMetadata failed: %v", err)
	}
	pair, err := s.AssetPair(ctx, "XXBTZUSD")
	if err != nil || pair != nil {
		t.Errorf("AssetPair = (%v, %v), want (nil, nil)", pair, err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
