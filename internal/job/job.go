package job

import (
	"context"
	"fmt"

	appconfig "krakensync/config"
	"krakensync/kraken"
	"krakensync/logger"
	"krakensync/models"
	"krakensync/processor"
	"krakensync/store"
	"krakensync/syncer"
	"krakensync/writer"
)

// Runner wires one full synchronization pass: refresh the asset pair cache,
// sync each enabled record type, persist records then watermark, and export.
type Runner struct {
	cfg      *appconfig.Config
	log      *logger.Log
	client   *kraken.Client
	store    store.Store
	syncer   *syncer.Syncer
	exporter *writer.Exporter
	uploader *writer.S3Uploader
}

// NewRunner builds the pipeline from configuration. An enabled but
// unreachable MongoDB is fatal: there is no point retrieving data that
// cannot be saved.
func NewRunner(ctx context.Context, cfg *appconfig.Config) (*Runner, error) {
	log := logger.GetLogger()

	client, err := kraken.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.Storage.MongoDB.Enabled {
		st, err = store.NewMongoStore(ctx, cfg.Storage.MongoDB)
		if err != nil {
			return nil, err
		}
	} else {
		log.WithComponent("job").Info("mongodb storage disabled, watermarks will not persist across runs")
		st = store.NewNopStore()
	}

	runner := &Runner{
		cfg:      cfg,
		log:      log,
		client:   client,
		store:    st,
		syncer:   syncer.New(cfg, client, st),
		exporter: writer.NewExporter(cfg),
	}

	if cfg.Storage.S3.Enabled {
		runner.uploader, err = writer.NewS3Uploader(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
	}

	return runner, nil
}

// Close releases the store connection.
func (r *Runner) Close(ctx context.Context) {
	if err := r.store.Close(ctx); err != nil {
		r.log.WithComponent("job").WithError(err).Warn("failed to close store")
	}
}

// Run executes one synchronization pass end to end.
func (r *Runner) Run(ctx context.Context) error {
	log := r.log.WithComponent("job")

	r.refreshAssetPairs(ctx)

	if r.cfg.Sync.Trades.Enabled {
		result, err := r.syncer.SyncTrades(ctx)
		if err != nil {
			return fmt.Errorf("trade sync failed: %w", err)
		}
		processor.EnrichTrades(ctx, result.Records, r.store)
		if err := r.persist(ctx, models.DataTypeTrades, result); err != nil {
			return err
		}
	}

	if r.cfg.Sync.Rewards.Enabled {
		result, err := r.syncer.SyncRewards(ctx)
		if err != nil {
			return fmt.Errorf("reward sync failed: %w", err)
		}
		if err := r.persist(ctx, models.DataTypeRewards, result); err != nil {
			return err
		}
	}

	logger.ReportRun(r.log)
	log.Info("synchronization pass complete")
	return nil
}

// refreshAssetPairs updates the enrichment cache. Failures only degrade
// enrichment, never the sync itself.
func (r *Runner) refreshAssetPairs(ctx context.Context) {
	log := r.log.WithComponent("job")

	pairs, err := r.client.AssetPairs(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to refresh asset pair cache, enrichment may fall back")
		return
	}
	if err := r.store.SaveAssetPairs(ctx, pairs); err != nil {
		log.WithError(err).Warn("failed to save asset pair cache")
		return
	}
	log.WithFields(logger.Fields{"pairs": len(pairs)}).Debug("asset pair cache refreshed")
}

// persist writes records before the watermark so a partial failure can only
// leave the watermark behind the stored records; the next run then re-fetches
// a harmless overlap that dedup absorbs.
func (r *Runner) persist(ctx context.Context, dataType models.DataType, result *syncer.Result) error {
	log := r.log.WithComponent("job").WithFields(logger.Fields{"data_type": dataType})

	if len(result.Records) == 0 {
		log.Info("nothing new to persist")
		return nil
	}

	processor.SortByTime(result.Records)

	inserted, err := r.store.InsertRecords(ctx, dataType, result.Records)
	if err != nil {
		return fmt.Errorf("failed to store %s records: %w", dataType, err)
	}
	logger.LogDataFlowEntry(log, "accumulator", "record_store", inserted, string(dataType))

	if result.Metadata != nil {
		if err := r.store.InsertMetadata(ctx, result.Metadata); err != nil {
			return fmt.Errorf("failed to store %s watermark: %w", dataType, err)
		}
	}

	if r.cfg.Export.Enabled {
		paths, err := r.exporter.Export(dataType, result.Records)
		if err != nil {
			return err
		}
		if r.uploader != nil && len(paths) > 0 {
			if err := r.uploader.UploadFiles(ctx, paths); err != nil {
				log.WithError(err).Warn("some export files failed to upload")
			}
		}
	}

	return nil
}
