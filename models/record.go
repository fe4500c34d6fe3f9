package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DataType identifies one of the synchronized record families.
type DataType string

const (
	DataTypeTrades  DataType = "trades"
	DataTypeRewards DataType = "rewards"
)

// UnixTime is a Kraken timestamp. The API returns it as a float, an int or a
// stringified float depending on the endpoint, so decoding accepts all three.
type UnixTime float64

// UnmarshalJSON accepts numeric and quoted-numeric timestamps.
func (t *UnixTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*t = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
	}
	if s == "" {
		*t = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = UnixTime(f)
	return nil
}

// Unix returns the timestamp as whole seconds, truncating any fractional part.
func (t UnixTime) Unix() int64 {
	return int64(t)
}

// IsZero reports whether the timestamp is absent.
func (t UnixTime) IsZero() bool {
	return t == 0
}

// Record is one immutable upstream record, either a trade or a reward ledger
// entry. IDs are opaque strings, unique within their data type.
type Record interface {
	RecordID() string
	RecordTime() UnixTime
}

// Trade is a single entry from the Kraken TradesHistory endpoint. Numeric
// fields are kept as the decimal strings Kraken sends so no precision is lost
// on storage.
type Trade struct {
	ID        string   `json:"-" bson:"_id"`
	OrderTxID string   `json:"ordertxid" bson:"ordertxid"`
	PosTxID   string   `json:"postxid,omitempty" bson:"postxid,omitempty"`
	Pair      string   `json:"pair" bson:"pair"`
	Time      UnixTime `json:"time" bson:"time"`
	Type      string   `json:"type" bson:"type"`
	OrderType string   `json:"ordertype" bson:"ordertype"`
	Price     string   `json:"price" bson:"price"`
	Cost      string   `json:"cost" bson:"cost"`
	Fee       string   `json:"fee" bson:"fee"`
	Volume    string   `json:"vol" bson:"vol"`
	Margin    string   `json:"margin,omitempty" bson:"margin,omitempty"`
	Misc      string   `json:"misc,omitempty" bson:"misc,omitempty"`

	// Enrichment fields, filled from the asset pair cache after retrieval.
	Base   string `json:"base,omitempty" bson:"base,omitempty"`
	WSName string `json:"wsname,omitempty" bson:"wsname,omitempty"`
}

func (t *Trade) RecordID() string {
	return t.ID
}

func (t *Trade) RecordTime() UnixTime {
	return t.Time
}

// LedgerEntry is a single entry from the Kraken Ledgers endpoint. Reward sync
// requests only staking entries but the shape covers any ledger type.
type LedgerEntry struct {
	ID         string   `json:"-" bson:"_id"`
	RefID      string   `json:"refid" bson:"refid"`
	Time       UnixTime `json:"time" bson:"time"`
	Type       string   `json:"type" bson:"type"`
	Subtype    string   `json:"subtype,omitempty" bson:"subtype,omitempty"`
	AssetClass string   `json:"aclass" bson:"aclass"`
	Asset      string   `json:"asset" bson:"asset"`
	Amount     string   `json:"amount" bson:"amount"`
	Fee        string   `json:"fee" bson:"fee"`
	Balance    string   `json:"balance" bson:"balance"`
}

func (e *LedgerEntry) RecordID() string {
	return e.ID
}

func (e *LedgerEntry) RecordTime() UnixTime {
	return e.Time
}

// AssetPair is cached Kraken asset pair metadata used to enrich trades.
type AssetPair struct {
	Pair    string `json:"-" bson:"_id"`
	AltName string `json:"altname,omitempty" bson:"altname,omitempty"`
	WSName  string `json:"wsname,omitempty" bson:"wsname,omitempty"`
	Base    string `json:"base" bson:"base"`
	Quote   string `json:"quote" bson:"quote"`
}
