package syncer

import "krakensync/models"

// DeriveWindow computes the earliest and latest record timestamps, truncated
// to whole seconds. Records without a usable time field are skipped for
// derivation but remain part of the accumulated set. Both returns are nil for
// an empty or timestamp-free set.
func DeriveWindow(records []models.Record) (start, end *int64) {
	for _, record := range records {
		t := record.RecordTime()
		if t.IsZero() {
			continue
		}
		ts := t.Unix()
		if start == nil || ts < *start {
			v := ts
			start = &v
		}
		if end == nil || ts > *end {
			v := ts
			end = &v
		}
	}
	return start, end
}

// BuildMetadata assembles the watermark document for a finished session.
// lastTradeID is the ID of the first record of the first batch, i.e. the most
// recent record chronologically; reward sync passes it empty and resumes by
// timestamp instead. Returns nil for an empty session so a vacuous watermark
// never replaces a valid prior one.
func BuildMetadata(dataType models.DataType, records []models.Record, lastTradeID string, runTime int64) *models.Metadata {
	if len(records) == 0 {
		return nil
	}
	start, end := DeriveWindow(records)
	return &models.Metadata{
		DataType:             dataType,
		Timestamp:            runTime,
		RecordTimestampStart: start,
		RecordTimestampEnd:   end,
		LastTradeID:          lastTradeID,
	}
}
