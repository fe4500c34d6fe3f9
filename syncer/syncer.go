package syncer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	appconfig "krakensync/config"
	"krakensync/kraken"
	"krakensync/logger"
	"krakensync/models"
)

// Source yields one page of records per call. The meaning of the cursor
// (offset or timestamp boundary) is fixed by the paired Cursor strategy.
type Source interface {
	FetchPage(ctx context.Context, cursor int64) (*models.Batch, error)
}

// MetadataSource provides the prior run's watermark. The store package
// implements it; a nil result means no prior sync exists.
type MetadataSource interface {
	LatestMetadata(ctx context.Context, dataType models.DataType) (*models.Metadata, error)
}

// Result is what one sync session hands back to its caller: the deduplicated
// records, the derived watermark (nil when nothing was accumulated), and why
// pagination stopped. Persisting records and metadata is the caller's job.
type Result struct {
	Records  []models.Record
	Metadata *models.Metadata
	Reason   StopReason
}

// Syncer runs the incremental retrieval session for each record type. It is
// strictly batch-sequential: one request in flight, a fixed throttle between
// pages, and backoff inside the client when the API pushes back.
type Syncer struct {
	cfg     *appconfig.Config
	meta    MetadataSource
	log     *logger.Log
	limiter *rate.Limiter
	now     func() time.Time

	trades  Source
	rewards Source
}

// New wires a Syncer from the API client and the metadata source. The
// throttle limiter is shared across both record types since the rate budget
// is per credential, not per endpoint.
func New(cfg *appconfig.Config, client *kraken.Client, meta MetadataSource) *Syncer {
	limiter := rate.NewLimiter(rate.Every(cfg.Sync.Throttle), 1)
	// Burn the initial burst token so the very first inter-batch wait
	// throttles like all the others.
	limiter.Allow()

	return &Syncer{
		cfg:     cfg,
		meta:    meta,
		log:     logger.GetLogger(),
		limiter: limiter,
		now:     time.Now,
		trades:  client.Trades(cfg.Sync.Trades.Strategy == appconfig.StrategyTimestamp),
		rewards: client.Ledger(cfg.Sync.Rewards.Asset, cfg.Sync.Rewards.Type, cfg.Sync.Rewards.Strategy == appconfig.StrategyTimestamp),
	}
}

// SyncTrades retrieves all trades newer than the last persisted watermark.
// Resumption is identifier-based: pagination stops as soon as the previously
// stored last_trade_id shows up in a page.
func (s *Syncer) SyncTrades(ctx context.Context) (*Result, error) {
	log := s.log.WithComponent("trade_sync")

	metadata, err := s.meta.LatestMetadata(ctx, models.DataTypeTrades)
	if err != nil {
		return nil, err
	}

	stopID := ""
	if metadata != nil {
		stopID = metadata.LastTradeID
		log.WithFields(logger.Fields{"last_trade_id": stopID}).Info("resuming trade sync from watermark")
	} else {
		log.Info("no prior watermark found, running full history retrieval")
	}

	return s.run(ctx, models.DataTypeTrades, s.trades, s.newCursor(s.cfg.Sync.Trades.Strategy), stopID, 0, true)
}

// SyncRewards retrieves all staking reward ledger entries newer than the last
// persisted watermark. Resumption is timestamp-based: entries at or before
// the prior record_timestamp_end are treated as already persisted.
func (s *Syncer) SyncRewards(ctx context.Context) (*Result, error) {
	log := s.log.WithComponent("reward_sync")

	metadata, err := s.meta.LatestMetadata(ctx, models.DataTypeRewards)
	if err != nil {
		return nil, err
	}

	var floor int64
	if metadata != nil {
		if _, end, ok := metadata.Window(); ok {
			floor = end
			log.WithFields(logger.Fields{"since": floor}).Info("resuming reward sync from watermark")
		}
	}
	if floor == 0 {
		log.Info("no prior watermark found, running full history retrieval")
	}

	return s.run(ctx, models.DataTypeRewards, s.rewards, s.newCursor(s.cfg.Sync.Rewards.Strategy), "", floor, false)
}

func (s *Syncer) newCursor(strategy string) Cursor {
	if strategy == appconfig.StrategyTimestamp {
		return NewTimestampCursor(s.now().Unix() + 1)
	}
	return NewOffsetCursor(s.cfg.Sync.PageSize)
}

// run drives one retrieval session through its batch loop. Transient
// failures never surface as errors: the loop stops gracefully and whatever
// was accumulated is returned, since re-fetching is absorbed by dedup on the
// next run.
func (s *Syncer) run(ctx context.Context, dataType models.DataType, src Source, cursor Cursor, stopID string, floor int64, captureLastID bool) (*Result, error) {
	log := s.log.WithComponent(string(dataType) + "_sync")

	accumulator := NewAccumulator()
	reason := StopNone
	lastTradeID := ""
	firstBatch := true

	for reason == StopNone {
		batch, err := src.FetchPage(ctx, cursor.Value())
		if err != nil {
			log.WithError(err).Warn("fetch failed, stopping pagination")
			reason = StopFetchFailed
			break
		}
		logger.IncrementBatch(string(dataType))

		if batch.Len() == 0 {
			log.Info("reached end of history")
			reason = StopEmptyPage
			break
		}

		if firstBatch {
			if captureLastID {
				// Newest-first ordering makes the first record of the
				// first page the most recent one of the whole run.
				lastTradeID = batch.Records[0].RecordID()
			}
			if batch.Total > 0 {
				log.WithFields(logger.Fields{"total": batch.Total}).Debug("upstream reported total record count")
			}
			firstBatch = false
		}

		added, duplicates := 0, 0
		for _, record := range batch.Records {
			if stopID != "" && record.RecordID() == stopID {
				log.WithFields(logger.Fields{"record_id": stopID}).Info("watermark record reached, stopping")
				reason = StopWatermarkReached
				break
			}
			if t := record.RecordTime(); floor > 0 && !t.IsZero() && t.Unix() <= floor {
				log.WithFields(logger.Fields{"record_id": record.RecordID(), "time": t.Unix()}).Info("watermark timestamp reached, stopping")
				reason = StopWatermarkReached
				break
			}
			if accumulator.Add(record.RecordID(), record) {
				added++
			} else {
				duplicates++
			}
		}
		logger.AddRecords(string(dataType), added)
		logger.AddDuplicates(string(dataType), duplicates)
		logger.LogDataFlowEntry(log, "kraken_api", "accumulator", added, string(dataType))

		if reason == StopWatermarkReached {
			break
		}
		if added == 0 {
			log.Warn("batch yielded no new records, stopping to avoid stalled pagination")
			reason = StopNoNewRecords
			break
		}

		cursor.Advance(batch)
		if cursor.Exhausted() {
			log.Info("offset reached reported total, pagination complete")
			reason = StopOffsetComplete
			break
		}
		if batch.Len() < s.cfg.Sync.PageSize {
			log.Info("short page, final batch reached")
			reason = StopFinalBatch
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("throttle interrupted, stopping pagination")
			reason = StopFetchFailed
			break
		}
	}

	result := &Result{Records: accumulator.Records(), Reason: reason}
	if accumulator.Len() > 0 {
		result.Metadata = BuildMetadata(dataType, result.Records, lastTradeID, s.now().Unix())
		start, end, _ := result.Metadata.Window()
		log.WithFields(logger.Fields{
			"records": accumulator.Len(),
			"reason":  reason.String(),
			"start":   start,
			"end":     end,
		}).Info("sync session finished")
	} else {
		log.WithFields(logger.Fields{"reason": reason.String()}).Info("no new records accumulated, keeping prior watermark")
	}
	return result, nil
}
