package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/time/rate"

	appconfig "krakensync/config"
	"krakensync/logger"
	"krakensync/models"
)

// fakeSource replays a fixed sequence of batches, one per FetchPage call.
type fakeSource struct {
	batches []*models.Batch
	errAt   int // 1-based call index that fails, 0 for never
	calls   int
	cursors []int64
}

func (s *fakeSource) FetchPage(_ context.Context, cursor int64) (*models.Batch, error) {
	s.calls++
	s.cursors = append(s.cursors, cursor)
	if s.errAt > 0 && s.calls == s.errAt {
		return nil, errors.New("upstream unavailable")
	}
	if s.calls > len(s.batches) {
		return &models.Batch{}, nil
	}
	return s.batches[s.calls-1], nil
}

// fakeMeta hands back a fixed prior watermark.
type fakeMeta struct {
	metadata *models.Metadata
}

func (m *fakeMeta) LatestMetadata(context.Context, models.DataType) (*models.Metadata, error) {
	return m.metadata, nil
}

func testSyncConfig(pageSize int) *appconfig.Config {
	return &appconfig.Config{
		Sync: appconfig.SyncConfig{
			PageSize: pageSize,
			Throttle: time.Millisecond,
			Trades:   appconfig.DataTypeSync{Enabled: true, Strategy: appconfig.StrategyOffset},
			Rewards: appconfig.RewardSync{
				DataTypeSync: appconfig.DataTypeSync{Enabled: true, Strategy: appconfig.StrategyOffset},
				Asset:        "all",
				Type:         "staking",
			},
		},
	}
}

func newTestSyncer(cfg *appconfig.Config, meta MetadataSource) *Syncer {
	return &Syncer{
		cfg:     cfg,
		meta:    meta,
		log:     logger.GetLogger(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
}

// makeTrades builds n trades newest-first starting at the given ID number,
// one second apart. TXID<k> has timestamp base-k.
func makeTrades(n int, firstID int, base int64) []models.Record {
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, &models.Trade{
			ID:   fmt.Sprintf("TXID%d", firstID+i),
			Pair: "XXBTZUSD",
			Time: models.UnixTime(base - int64(i)),
		})
	}
	return records
}

func TestRunDeduplicatesAcrossBatches(t *testing.T) {
	// Second page overlaps the first by 3 records; one extra duplicate inside
	// the second page itself.
	page1 := makeTrades(5, 1, 1000)
	page2 := append(makeTrades(3, 3, 998), makeTrades(5, 6, 995)...)

	src := &fakeSource{batches: []*models.Batch{
		{Records: page1},
		{Records: page2},
		{},
	}}
	s := newTestSyncer(testSyncConfig(5), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(5), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Records) != 10 {
		t.Errorf("expected 10 distinct records, got %d", len(result.Records))
	}
	seen := make(map[string]bool)
	for _, record := range result.Records {
		if seen[record.RecordID()] {
			t.Errorf("record %s appears twice in the result", record.RecordID())
		}
		seen[record.RecordID()] = true
	}
}

func TestRunStopsAtWatermarkRecord(t *testing.T) {
	// Watermark record sits at position 7 of the page; exactly the 6 records
	// before it must be accumulated, and the watermark record itself excluded.
	page := makeTrades(10, 36, 1000) // TXID36..TXID45, newest first
	stopID := page[6].RecordID()     // TXID42

	src := &fakeSource{batches: []*models.Batch{{Records: page}}}
	s := newTestSyncer(testSyncConfig(10), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(10), stopID, 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopWatermarkReached {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 6 {
		t.Fatalf("expected 6 records before the watermark, got %d", len(result.Records))
	}
	for _, record := range result.Records {
		if record.RecordID() == stopID {
			t.Errorf("watermark record %s must not be re-included", stopID)
		}
	}
	if src.calls != 1 {
		t.Errorf("pagination should stop within the first page, made %d calls", src.calls)
	}
}

func TestRunStopsAtTimestampFloor(t *testing.T) {
	// Records at or before the floor belong to the prior run.
	page := makeTrades(6, 1, 1000) // times 1000..995
	floor := int64(997)

	src := &fakeSource{batches: []*models.Batch{{Records: page}}}
	s := newTestSyncer(testSyncConfig(6), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeRewards, src, NewOffsetCursor(6), "", floor, false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopWatermarkReached {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records newer than the floor, got %d", len(result.Records))
	}
	for _, record := range result.Records {
		if record.RecordTime().Unix() <= floor {
			t.Errorf("record %s at %d is not newer than floor %d", record.RecordID(), record.RecordTime().Unix(), floor)
		}
	}
}

func TestRunEmptyFirstPage(t *testing.T) {
	src := &fakeSource{batches: []*models.Batch{{}}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopEmptyPage {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 0 {
		t.Errorf("expected no records, got %d", len(result.Records))
	}
	if result.Metadata != nil {
		t.Error("empty session must not produce a watermark")
	}
}

func TestRunFullHistoryTwoPages(t *testing.T) {
	// Two full pages followed by an empty one: all 100 records accumulated,
	// last trade ID taken from the first record of the first page.
	page1 := makeTrades(50, 51, 2000) // TXID51..TXID100
	page2 := makeTrades(50, 1, 1950)  // TXID1..TXID50

	src := &fakeSource{batches: []*models.Batch{
		{Records: page1},
		{Records: page2},
		{},
	}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopEmptyPage {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 100 {
		t.Errorf("expected 100 records, got %d", len(result.Records))
	}
	if result.Metadata == nil {
		t.Fatal("expected a watermark for a non-empty session")
	}
	if result.Metadata.LastTradeID != "TXID51" {
		t.Errorf("last trade ID = %s, want TXID51 (first record of first page)", result.Metadata.LastTradeID)
	}
	if src.cursors[0] != 0 || src.cursors[1] != 50 || src.cursors[2] != 100 {
		t.Errorf("unexpected offset sequence: %v", src.cursors)
	}
}

func TestRunStopsWhenOffsetReachesTotal(t *testing.T) {
	page1 := makeTrades(50, 51, 2000)
	page2 := makeTrades(50, 1, 1950)

	src := &fakeSource{batches: []*models.Batch{
		{Records: page1, Total: 100},
		{Records: page2, Total: 100},
	}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopOffsetComplete {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if src.calls != 2 {
		t.Errorf("expected pagination to stop after 2 calls, made %d", src.calls)
	}
	if len(result.Records) != 100 {
		t.Errorf("expected 100 records, got %d", len(result.Records))
	}
}

func TestRunStopsOnShortPage(t *testing.T) {
	src := &fakeSource{batches: []*models.Batch{{Records: makeTrades(7, 1, 1000)}}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopFinalBatch {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if src.calls != 1 {
		t.Errorf("short page should end pagination, made %d calls", src.calls)
	}
}

func TestRunKeepsPartialResultOnFetchFailure(t *testing.T) {
	src := &fakeSource{
		batches: []*models.Batch{{Records: makeTrades(50, 51, 2000)}},
		errAt:   2,
	}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("fetch failure must not surface as an error: %v", err)
	}
	if result.Reason != StopFetchFailed {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 50 {
		t.Errorf("expected the 50 records gathered before the failure, got %d", len(result.Records))
	}
	if result.Metadata == nil {
		t.Error("partial session with records still derives a watermark")
	}
}

func TestRunStopsWhenBatchAddsNothing(t *testing.T) {
	page := makeTrades(50, 1, 1000)
	src := &fakeSource{batches: []*models.Batch{
		{Records: page},
		{Records: page}, // upstream repeats itself
	}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(context.Background(), models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Reason != StopNoNewRecords {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
	if len(result.Records) != 50 {
		t.Errorf("expected 50 records, got %d", len(result.Records))
	}
}

func TestSyncTradesResumesFromStoredWatermark(t *testing.T) {
	page := makeTrades(10, 36, 1000) // TXID36..TXID45 newest first
	meta := &fakeMeta{metadata: &models.Metadata{
		DataType:    models.DataTypeTrades,
		LastTradeID: "TXID42",
	}}
	src := &fakeSource{batches: []*models.Batch{{Records: page}}}

	s := newTestSyncer(testSyncConfig(10), meta)
	s.trades = src

	result, err := s.SyncTrades(context.Background())
	if err != nil {
		t.Fatalf("SyncTrades failed: %v", err)
	}
	if len(result.Records) != 6 {
		t.Errorf("expected 6 new records, got %d", len(result.Records))
	}
	if result.Reason != StopWatermarkReached {
		t.Errorf("unexpected stop reason: %s", result.Reason)
	}
}

func TestSyncRewardsResumesFromTimestamp(t *testing.T) {
	end := int64(997)
	start := int64(900)
	meta := &fakeMeta{metadata: &models.Metadata{
		DataType:             models.DataTypeRewards,
		RecordTimestampStart: &start,
		RecordTimestampEnd:   &end,
	}}
	src := &fakeSource{batches: []*models.Batch{{Records: makeTrades(6, 1, 1000)}}}

	s := newTestSyncer(testSyncConfig(6), meta)
	s.rewards = src

	result, err := s.SyncRewards(context.Background())
	if err != nil {
		t.Fatalf("SyncRewards failed: %v", err)
	}
	if len(result.Records) != 3 {
		t.Errorf("expected 3 records newer than %d, got %d", end, len(result.Records))
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{batches: []*models.Batch{{Records: makeTrades(50, 1, 1000)}}}
	s := newTestSyncer(testSyncConfig(50), &fakeMeta{})

	result, err := s.run(ctx, models.DataTypeTrades, src, NewOffsetCursor(50), "", 0, true)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// The fake source ignores the context, so the loop stops at the throttle.
	if result.Reason == StopNone {
		t.Error("cancelled context must terminate the loop")
	}
}
