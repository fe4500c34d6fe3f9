package syncer

import "krakensync/models"

// Accumulator absorbs records across batches, rejecting repeats by ID. It is
// scoped to one retrieval session and never shared.
type Accumulator struct {
	records map[string]models.Record
}

func NewAccumulator() *Accumulator {
	return &Accumulator{records: make(map[string]models.Record)}
}

// Add inserts the record unless its ID is already present. Returns whether
// the record was newly added.
func (a *Accumulator) Add(id string, record models.Record) bool {
	if _, ok := a.records[id]; ok {
		return false
	}
	a.records[id] = record
	return true
}

// Has reports whether the ID has been accumulated.
func (a *Accumulator) Has(id string) bool {
	_, ok := a.records[id]
	return ok
}

// Len returns the number of distinct records accumulated so far.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Records returns the accumulated records in unspecified order; downstream
// consumers sort by timestamp.
func (a *Accumulator) Records() []models.Record {
	out := make([]models.Record, 0, len(a.records))
	for _, record := range a.records {
		out = append(out, record)
	}
	return out
}
