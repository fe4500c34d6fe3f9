package processor

import (
	"context"

	"krakensync/logger"
	"krakensync/models"
)

// Kraken still reports some assets under their legacy X-prefixed names; the
// maps translate those to the names the rest of the tooling expects.
var baseTransformMap = map[string]string{
	"XXDG": "DOGE",
	"XETC": "ETC",
	"XETH": "ETH",
	"XLTC": "LTC",
	"XMLN": "MLN",
	"XREP": "REP",
	"XXBT": "BTC",
	"XXLM": "XLM",
	"XXMR": "XMR",
	"XXRP": "XRP",
	"XZEC": "ZEC",
}

var wsNameTransformMap = map[string]string{
	"XDG/USD": "DOGE/USD",
	"XBT/USD": "BTC/USD",
}

// AssetPairLookup resolves cached asset pair metadata. The store implements
// it; lookups returning (nil, nil) mean the pair is unknown.
type AssetPairLookup interface {
	AssetPair(ctx context.Context, pair string) (*models.AssetPair, error)
}

// EnrichTrades fills the base and wsname fields of each trade from the asset
// pair cache. Unknown pairs fall back to the raw pair string and are warned
// about once each; other record types pass through untouched. Returns the
// number of trades enriched.
func EnrichTrades(ctx context.Context, records []models.Record, pairs AssetPairLookup) int {
	log := logger.GetLogger().WithComponent("enricher")

	if len(records) == 0 {
		log.Warn("no trades provided for enrichment")
		return 0
	}

	missingPairs := make(map[string]struct{})
	enriched := 0

	for _, record := range records {
		trade, ok := record.(*models.Trade)
		if !ok {
			continue
		}
		if trade.Pair == "" {
			log.WithFields(logger.Fields{"trade_id": trade.ID}).Warn("trade is missing pair field, skipping")
			continue
		}

		info, err := pairs.AssetPair(ctx, trade.Pair)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"pair": trade.Pair}).Warn("asset pair lookup failed")
			info = nil
		}

		if info != nil {
			trade.Base = normalizeBase(info.Base)
			trade.WSName = normalizeWSName(info.WSName, trade.Pair)
		} else {
			if _, seen := missingPairs[trade.Pair]; !seen {
				log.WithFields(logger.Fields{"pair": trade.Pair}).Warn("no asset metadata found for pair, using fallback values")
				missingPairs[trade.Pair] = struct{}{}
			}
			trade.Base = trade.Pair
			trade.WSName = trade.Pair
		}
		enriched++
	}

	log.WithFields(logger.Fields{"enriched": enriched}).Info("enriched trades with asset metadata")
	return enriched
}

func normalizeBase(base string) string {
	if normalized, ok := baseTransformMap[base]; ok {
		return normalized
	}
	return base
}

func normalizeWSName(wsname, fallback string) string {
	if wsname == "" {
		return fallback
	}
	if normalized, ok := wsNameTransformMap[wsname]; ok {
		return normalized
	}
	return wsname
}
