package syncer

import (
	"testing"

	"krakensync/models"
)

func TestDeriveWindow(t *testing.T) {
	records := []models.Record{
		&models.Trade{ID: "a", Time: 1500.7},
		&models.Trade{ID: "b", Time: 1200.2},
		&models.Trade{ID: "c"}, // no timestamp, skipped for derivation
		&models.Trade{ID: "d", Time: 1800.9},
	}

	start, end := DeriveWindow(records)
	if start == nil || end == nil {
		t.Fatal("expected both window bounds")
	}
	if *start != 1200 {
		t.Errorf("start = %d, want 1200", *start)
	}
	if *end != 1800 {
		t.Errorf("end = %d, want 1800", *end)
	}
	if *start > *end {
		t.Error("window start must not exceed end")
	}
}

func TestDeriveWindowEmpty(t *testing.T) {
	start, end := DeriveWindow(nil)
	if start != nil || end != nil {
		t.Error("empty set must derive nil bounds")
	}

	start, end = DeriveWindow([]models.Record{&models.Trade{ID: "a"}})
	if start != nil || end != nil {
		t.Error("timestamp-free set must derive nil bounds")
	}
}

func TestBuildMetadata(t *testing.T) {
	records := []models.Record{
		&models.Trade{ID: "a", Time: 1500},
		&models.Trade{ID: "b", Time: 1200},
	}

	m := BuildMetadata(models.DataTypeTrades, records, "TXID99", 1700000000)
	if m == nil {
		t.Fatal("expected metadata for a non-empty set")
	}
	if m.DataType != models.DataTypeTrades {
		t.Errorf("unexpected data type: %s", m.DataType)
	}
	if m.Timestamp != 1700000000 {
		t.Errorf("unexpected run timestamp: %d", m.Timestamp)
	}
	if m.LastTradeID != "TXID99" {
		t.Errorf("unexpected last trade id: %s", m.LastTradeID)
	}
	start, end, ok := m.Window()
	if !ok || start != 1200 || end != 1500 {
		t.Errorf("Window() = (%d, %d, %v), want (1200, 1500, true)", start, end, ok)
	}
}

func TestBuildMetadataEmptySession(t *testing.T) {
	if m := BuildMetadata(models.DataTypeRewards, nil, "", 1700000000); m != nil {
		t.Errorf("empty session must not produce metadata, got %+v", m)
	}
}

func TestAccumulatorRejectsRepeats(t *testing.T) {
	a := NewAccumulator()
	if !a.Add("x", &models.Trade{ID: "x"}) {
		t.Error("first insert must succeed")
	}
	if a.Add("x", &models.Trade{ID: "x"}) {
		t.Error("repeat insert must be rejected")
	}
	if !a.Has("x") || a.Has("y") {
		t.Error("membership reporting is wrong")
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
	if got := a.Records(); len(got) != 1 || got[0].RecordID() != "x" {
		t.Errorf("unexpected records: %v", got)
	}
}

func TestStopReasonStrings(t *testing.T) {
	reasons := []StopReason{
		StopNone, StopFetchFailed, StopEmptyPage, StopWatermarkReached,
		StopNoNewRecords, StopOffsetComplete, StopFinalBatch,
	}
	seen := make(map[string]bool)
	for _, r := range reasons {
		s := r.String()
		if s == "" {
			t.Errorf("stop reason %d has no string", r)
		}
		if seen[s] {
			t.Errorf("stop reason string %q is not unique", s)
		}
		seen[s] = true
	}
}
