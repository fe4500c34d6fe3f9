package logger

import (
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "yaml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestRunCounters(t *testing.T) {
	before := atomic.LoadInt64(&statsFor("trades").batches)
	IncrementBatch("trades")
	IncrementBatch("trades")
	if got := atomic.LoadInt64(&statsFor("trades").batches); got != before+2 {
		t.Errorf("batches = %d, want %d", got, before+2)
	}

	AddRecords("trades", 50)
	AddDuplicates("trades", 3)
	IncrementRetry("trades")

	fields, _ := snapshotFields()
	if _, ok := fields["trades_records"]; !ok {
		t.Errorf("snapshot missing trades_records: %v", fields)
	}
	if _, ok := fields["trades_duplicates"]; !ok {
		t.Errorf("snapshot missing trades_duplicates: %v", fields)
	}
}
