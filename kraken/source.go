package kraken

import (
	"context"

	"krakensync/models"
)

// TradesSource exposes trade history as a paginated record source for the
// sync engine. The cursor is an offset or an "older than" timestamp
// depending on the configured strategy.
type TradesSource struct {
	client      *Client
	byTimestamp bool
}

// Trades returns the trade history source.
func (c *Client) Trades(byTimestamp bool) *TradesSource {
	return &TradesSource{client: c, byTimestamp: byTimestamp}
}

func (s *TradesSource) FetchPage(ctx context.Context, cursor int64) (*models.Batch, error) {
	query := TradesQuery{}
	if s.byTimestamp {
		query.Before = cursor
	} else {
		query.Offset = cursor
	}
	return s.client.TradesPage(ctx, query)
}

// LedgerSource exposes ledger entries as a paginated record source. The
// cursor is either an offset or an "older than" timestamp depending on the
// configured strategy.
type LedgerSource struct {
	client      *Client
	asset       string
	entryType   string
	byTimestamp bool
}

// Ledger returns a ledger source filtered to the given asset and entry type.
func (c *Client) Ledger(asset, entryType string, byTimestamp bool) *LedgerSource {
	return &LedgerSource{client: c, asset: asset, entryType: entryType, byTimestamp: byTimestamp}
}

func (s *LedgerSource) FetchPage(ctx context.Context, cursor int64) (*models.Batch, error) {
	query := LedgerQuery{Asset: s.asset, Type: s.entryType}
	if s.byTimestamp {
		query.Before = cursor
	} else {
		query.Offset = cursor
	}
	return s.client.LedgerPage(ctx, query)
}
