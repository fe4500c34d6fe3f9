package syncer

// StopReason records why pagination halted. The conditions are evaluated in
// a fixed precedence after each batch: fetch failure, empty page, watermark
// hit (checked per record, mid-page), zero new records, offset past the
// reported total, short final batch.
type StopReason int

const (
	StopNone StopReason = iota
	StopFetchFailed
	StopEmptyPage
	StopWatermarkReached
	StopNoNewRecords
	StopOffsetComplete
	StopFinalBatch
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopFetchFailed:
		return "fetch_failed"
	case StopEmptyPage:
		return "empty_page"
	case StopWatermarkReached:
		return "watermark_reached"
	case StopNoNewRecords:
		return "no_new_records"
	case StopOffsetComplete:
		return "offset_complete"
	case StopFinalBatch:
		return "final_batch"
	default:
		return "unknown"
	}
}
