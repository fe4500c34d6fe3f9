package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	appconfig "krakensync/config"
	"krakensync/logger"
	"krakensync/models"
)

// Exporter serializes synced records to local files. One file per format per
// run, named <data_type>_<unix>.<ext> under the output directory.
type Exporter struct {
	cfg *appconfig.Config
	log *logger.Log
	now func() time.Time
}

func NewExporter(cfg *appconfig.Config) *Exporter {
	return &Exporter{
		cfg: cfg,
		log: logger.GetLogger(),
		now: time.Now,
	}
}

// Export writes the records in every configured format and returns the paths
// written. Records should already be sorted; the exporter does not reorder.
func (e *Exporter) Export(dataType models.DataType, records []models.Record) ([]string, error) {
	log := e.log.WithComponent("exporter").WithFields(logger.Fields{"data_type": dataType})

	if len(records) == 0 {
		log.Warn("no records to export, files will not be created")
		return nil, nil
	}

	if err := os.MkdirAll(e.cfg.Export.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	stamp := e.now().Unix()
	var paths []string
	for _, format := range e.cfg.Export.Formats {
		path := filepath.Join(e.cfg.Export.Directory, fmt.Sprintf("%s_%d.%s", dataType, stamp, format))

		var err error
		switch format {
		case "json":
			err = writeJSON(path, records)
		case "csv":
			err = writeCSV(path, dataType, records)
		case "parquet":
			err = writeParquet(path, dataType, records)
		default:
			err = fmt.Errorf("unsupported export format '%s'", format)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", format, err)
		}

		log.WithFields(logger.Fields{"path": path, "records": len(records)}).Info("export file written")
		paths = append(paths, path)
	}

	logger.LogDataFlowEntry(log, "accumulator", "export_files", len(records), string(dataType))
	return paths, nil
}

func writeJSON(path string, records []models.Record) error {
	data, err := json.MarshalIndent(exportable(records), "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// exportable re-keys records by ID so JSON output mirrors the upstream
// id -> record shape.
func exportable(records []models.Record) map[string]models.Record {
	out := make(map[string]models.Record, len(records))
	for _, record := range records {
		out[record.RecordID()] = record
	}
	return out
}

func writeCSV(path string, dataType models.DataType, records []models.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader(dataType)); err != nil {
		return err
	}
	for _, record := range records {
		if err := w.Write(csvRow(record)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvHeader(dataType models.DataType) []string {
	if dataType == models.DataTypeRewards {
		return []string{"id", "refid", "time", "type", "subtype", "asset", "amount", "fee", "balance"}
	}
	return []string{"txid", "ordertxid", "pair", "time", "type", "ordertype", "price", "cost", "fee", "vol", "margin", "base", "wsname"}
}

func csvRow(record models.Record) []string {
	switch r := record.(type) {
	case *models.Trade:
		return []string{
			r.ID, r.OrderTxID, r.Pair, formatTime(r.Time), r.Type, r.OrderType,
			r.Price, r.Cost, r.Fee, r.Volume, r.Margin, r.Base, r.WSName,
		}
	case *models.LedgerEntry:
		return []string{
			r.ID, r.RefID, formatTime(r.Time), r.Type, r.Subtype,
			r.Asset, r.Amount, r.Fee, r.Balance,
		}
	default:
		return []string{record.RecordID(), formatTime(record.RecordTime())}
	}
}

func formatTime(t models.UnixTime) string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}
