package processor

import (
	"sort"

	"krakensync/models"
)

// SortByTime orders records oldest-first, the order export consumers expect.
// The accumulator hands records over unordered, so this runs before any
// serialization. Ties break on ID for stable output.
func SortByTime(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].RecordTime(), records[j].RecordTime()
		if ti != tj {
			return ti < tj
		}
		return records[i].RecordID() < records[j].RecordID()
	})
}
