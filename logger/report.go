package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// runStats accumulates per-data-type counters for one process lifetime. They
// feed the periodic report log line and, when configured, CloudWatch.
type runStats struct {
	batches    int64
	records    int64
	duplicates int64
	retries    int64
}

var (
	warnCount  int64
	errorCount int64
	stats      sync.Map // map[string]*runStats keyed by data type
)

func statsFor(dataType string) *runStats {
	if v, ok := stats.Load(dataType); ok {
		return v.(*runStats)
	}
	v, _ := stats.LoadOrStore(dataType, &runStats{})
	return v.(*runStats)
}

func recordWarn(string) {
	atomic.AddInt64(&warnCount, 1)
}

func recordError(string) {
	atomic.AddInt64(&errorCount, 1)
}

// IncrementBatch counts one fetched page for the given data type.
func IncrementBatch(dataType string) {
	atomic.AddInt64(&statsFor(dataType).batches, 1)
}

// AddRecords counts newly accumulated records for the given data type.
func AddRecords(dataType string, n int) {
	atomic.AddInt64(&statsFor(dataType).records, int64(n))
}

// AddDuplicates counts records rejected by the dedup accumulator.
func AddDuplicates(dataType string, n int) {
	atomic.AddInt64(&statsFor(dataType).duplicates, int64(n))
}

// IncrementRetry counts one rate-limit backoff retry.
func IncrementRetry(dataType string) {
	atomic.AddInt64(&statsFor(dataType).retries, 1)
}

func snapshotFields() (Fields, []cwtypes.MetricDatum) {
	fields := Fields{
		"warns":  atomic.LoadInt64(&warnCount),
		"errors": atomic.LoadInt64(&errorCount),
	}
	data := []cwtypes.MetricDatum{
		counterDatum("Warns", "", atomic.LoadInt64(&warnCount)),
		counterDatum("Errors", "", atomic.LoadInt64(&errorCount)),
	}
	stats.Range(func(key, value any) bool {
		dt := key.(string)
		s := value.(*runStats)
		fields[dt+"_batches"] = atomic.LoadInt64(&s.batches)
		fields[dt+"_records"] = atomic.LoadInt64(&s.records)
		fields[dt+"_duplicates"] = atomic.LoadInt64(&s.duplicates)
		fields[dt+"_retries"] = atomic.LoadInt64(&s.retries)
		data = append(data,
			counterDatum("BatchesFetched", dt, atomic.LoadInt64(&s.batches)),
			counterDatum("RecordsAccumulated", dt, atomic.LoadInt64(&s.records)),
			counterDatum("DuplicatesSkipped", dt, atomic.LoadInt64(&s.duplicates)),
			counterDatum("RateLimitRetries", dt, atomic.LoadInt64(&s.retries)),
		)
		return true
	})
	return fields, data
}

// ReportRun emits the current counters once, typically at the end of a sync
// run, and publishes them to CloudWatch when the client is configured.
func ReportRun(log *Log) {
	fields, data := snapshotFields()
	log.WithComponent("report").WithFields(fields).Info("sync run report")
	publishMetrics(context.Background(), data)
}

// StartReport periodically emits the counters until the context is done. Used
// by the long-running trigger service; the batch job calls ReportRun once.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ReportRun(log)
			}
		}
	}()
}
