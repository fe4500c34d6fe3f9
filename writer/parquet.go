package writer

import (
	"bytes"
	"os"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"krakensync/models"
)

// TradeParquetRow is the flat parquet schema for trade exports.
type TradeParquetRow struct {
	TxID      string  `parquet:"name=txid, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderTxID string  `parquet:"name=ordertxid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Pair      string  `parquet:"name=pair, type=BYTE_ARRAY, convertedtype=UTF8"`
	Time      float64 `parquet:"name=time, type=DOUBLE"`
	Type      string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderType string  `parquet:"name=ordertype, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price     string  `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cost      string  `parquet:"name=cost, type=BYTE_ARRAY, convertedtype=UTF8"`
	Fee       string  `parquet:"name=fee, type=BYTE_ARRAY, convertedtype=UTF8"`
	Volume    string  `parquet:"name=vol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Base      string  `parquet:"name=base, type=BYTE_ARRAY, convertedtype=UTF8"`
	WSName    string  `parquet:"name=wsname, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// RewardParquetRow is the flat parquet schema for reward ledger exports.
type RewardParquetRow struct {
	ID      string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	RefID   string  `parquet:"name=refid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Time    float64 `parquet:"name=time, type=DOUBLE"`
	Type    string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Subtype string  `parquet:"name=subtype, type=BYTE_ARRAY, convertedtype=UTF8"`
	Asset   string  `parquet:"name=asset, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount  string  `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Fee     string  `parquet:"name=fee, type=BYTE_ARRAY, convertedtype=UTF8"`
	Balance string  `parquet:"name=balance, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func writeParquet(path string, dataType models.DataType, records []models.Record) error {
	mfw := newMemoryFileWriter()

	var schema interface{}
	if dataType == models.DataTypeRewards {
		schema = new(RewardParquetRow)
	} else {
		schema = new(TradeParquetRow)
	}

	pw, err := writer.NewParquetWriter(mfw, schema, 1)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		if err := pw.Write(parquetRow(record)); err != nil {
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return err
	}

	return os.WriteFile(path, mfw.buffer.Bytes(), 0o644)
}

func parquetRow(record models.Record) interface{} {
	switch r := record.(type) {
	case *models.Trade:
		return TradeParquetRow{
			TxID:      r.ID,
			OrderTxID: r.OrderTxID,
			Pair:      r.Pair,
			Time:      float64(r.Time),
			Type:      r.Type,
			OrderType: r.OrderType,
			Price:     r.Price,
			Cost:      r.Cost,
			Fee:       r.Fee,
			Volume:    r.Volume,
			Base:      r.Base,
			WSName:    r.WSName,
		}
	case *models.LedgerEntry:
		return RewardParquetRow{
			ID:      r.ID,
			RefID:   r.RefID,
			Time:    float64(r.Time),
			Type:    r.Type,
			Subtype: r.Subtype,
			Asset:   r.Asset,
			Amount:  r.Amount,
			Fee:     r.Fee,
			Balance: r.Balance,
		}
	default:
		return nil
	}
}
