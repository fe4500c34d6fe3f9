package syncer

import "krakensync/models"

// Cursor tracks the evolving pagination position handed to the next page
// request. Implementations cover the two upstream pagination styles.
type Cursor interface {
	// Value is the position sent with the next request.
	Value() int64
	// Advance moves the cursor past a successfully processed batch.
	Advance(batch *models.Batch)
	// Exhausted reports whether the cursor itself knows pagination is
	// complete. Only the offset strategy can tell; it compares the offset
	// against the total the API reported on the first page.
	Exhausted() bool
}

// OffsetCursor pages by integer offset with a fixed page size.
type OffsetCursor struct {
	offset     int64
	pageSize   int64
	total      int64
	totalKnown bool
}

func NewOffsetCursor(pageSize int) *OffsetCursor {
	return &OffsetCursor{pageSize: int64(pageSize)}
}

func (c *OffsetCursor) Value() int64 {
	return c.offset
}

func (c *OffsetCursor) Advance(batch *models.Batch) {
	// The total is only reported on the first page; later pages repeat or
	// omit it, so only the first capture counts.
	if !c.totalKnown && batch.Total > 0 {
		c.total = batch.Total
		c.totalKnown = true
	}
	c.offset += c.pageSize
}

func (c *OffsetCursor) Exhausted() bool {
	return c.totalKnown && c.offset >= c.total
}

// TimestampCursor pages backwards through history by requesting records
// strictly older than its current boundary.
type TimestampCursor struct {
	before int64
}

// NewTimestampCursor starts at the given boundary, usually just past the
// current time.
func NewTimestampCursor(start int64) *TimestampCursor {
	return &TimestampCursor{before: start}
}

func (c *TimestampCursor) Value() int64 {
	return c.before
}

func (c *TimestampCursor) Advance(batch *models.Batch) {
	if min := batch.MinTime(); !min.IsZero() {
		c.before = min.Unix() - 1
	}
}

func (c *TimestampCursor) Exhausted() bool {
	return false
}
