package models

// Batch is one page of records returned by a single API call, ordered
// newest-first. Total carries the API's reported record count; Kraken only
// reports it on the trade history endpoint, so zero means "not reported".
type Batch struct {
	Records []Record
	Total   int64
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// MinTime returns the smallest record timestamp in the batch, or zero when
// the batch is empty or no record carries a timestamp.
func (b *Batch) MinTime() UnixTime {
	var min UnixTime
	for _, rec := range b.Records {
		t := rec.RecordTime()
		if t.IsZero() {
			continue
		}
		if min.IsZero() || t < min {
			min = t
		}
	}
	return min
}

// Metadata is the per-data-type watermark document persisted at the end of a
// successful sync and read back at the start of the next one. Documents are
// append-only; the most recent one wins by record_timestamp_end.
type Metadata struct {
	DataType             DataType `json:"data_type" bson:"data_type"`
	Timestamp            int64    `json:"timestamp" bson:"timestamp"`
	RecordTimestampStart *int64   `json:"record_timestamp_start" bson:"record_timestamp_start"`
	RecordTimestampEnd   *int64   `json:"record_timestamp_end" bson:"record_timestamp_end"`

	// LastTradeID is the identifier of the most recent trade of the run.
	// Trade sync resumes by stopping at this ID; reward sync resumes by
	// timestamp and leaves it empty.
	LastTradeID string `json:"last_trade_id,omitempty" bson:"last_trade_id,omitempty"`
}

// Window returns the covered record timestamp range. The second return is
// false when the metadata covers no records.
func (m *Metadata) Window() (start, end int64, ok bool) {
	if m == nil || m.RecordTimestampStart == nil || m.RecordTimestampEnd == nil {
		return 0, 0, false
	}
	return *m.RecordTimestampStart, *m.RecordTimestampEnd, true
}
