package kraken

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"krakensync/models"
)

// response is the envelope every Kraken endpoint wraps its payload in.
type response struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// APIError carries the error strings Kraken returned for a call that is not
// rate-limit related.
type APIError struct {
	Errors []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kraken api error: %s", strings.Join(e.Errors, "; "))
}

// isRateLimited reports whether any of the returned error strings indicates
// throttling. Kraken phrases it as "EAPI:Rate limit exceeded"; matching is a
// case-insensitive substring check.
func isRateLimited(errs []string) bool {
	for _, msg := range errs {
		if strings.Contains(strings.ToLower(msg), "rate limit exceeded") {
			return true
		}
	}
	return false
}

type tradesResult struct {
	Count  int64                    `json:"count"`
	Trades map[string]*models.Trade `json:"trades"`
}

type ledgerResult struct {
	Count  int64                          `json:"count"`
	Ledger map[string]*models.LedgerEntry `json:"ledger"`
}

// sortNewestFirst restores the upstream newest-first page ordering that is
// lost when the trades/ledger JSON objects are decoded into Go maps. Ties
// break on ID so pages order deterministically.
func sortNewestFirst(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].RecordTime(), records[j].RecordTime()
		if ti != tj {
			return ti > tj
		}
		return records[i].RecordID() < records[j].RecordID()
	})
}
