package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"

	appconfig "krakensync/config"
	"krakensync/logger"
	"krakensync/models"
)

const (
	tradesHistoryPath = "/0/private/TradesHistory"
	ledgersPath       = "/0/private/Ledgers"
	assetPairsPath    = "/0/public/AssetPairs"
)

// ErrRetriesExhausted is returned when every backoff attempt for one call was
// answered with a rate-limit error. Fatal for the call, not for the run: the
// sync engine treats it as end-of-data and keeps what it gathered.
var ErrRetriesExhausted = errors.New("kraken: rate limit retries exhausted")

// Client issues signed, form-encoded requests against the Kraken REST API and
// retries rate-limited calls with exponential backoff.
type Client struct {
	baseURL     string
	key         string
	secret      string
	httpClient  *http.Client
	log         *logger.Log
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64

	// sleep and nonce are indirected for tests.
	sleep func(time.Duration)
	nonce func() int64
}

// NewClient builds a client from configuration. Private endpoints require
// both API key and secret.
func NewClient(cfg *appconfig.Config) (*Client, error) {
	if cfg.API.Key == "" || cfg.API.Secret == "" {
		return nil, fmt.Errorf("kraken API credentials are missing")
	}

	factor := float64(cfg.Sync.Retry.BackoffMultiplier)
	if factor < 2 {
		factor = 2
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		key:     cfg.API.Key,
		secret:  cfg.API.Secret,
		httpClient: &http.Client{
			Timeout: cfg.API.Timeout,
			Transport: userAgentTransport{
				agent: cfg.API.UserAgent,
				base:  http.DefaultTransport,
			},
		},
		log:         logger.GetLogger(),
		maxAttempts: cfg.Sync.Retry.MaxAttempts,
		baseDelay:   cfg.Sync.Retry.BaseDelay,
		maxDelay:    cfg.Sync.Retry.MaxDelay,
		factor:      factor,
		sleep:       time.Sleep,
		nonce:       func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// call sends one request and retries while the API reports rate limiting.
// The delay doubles per retry (2s,4s,8s,16s,32s with default settings). Any
// other API error is returned to the caller immediately. The context is only
// consulted between attempts, never mid-backoff.
func (c *Client) call(ctx context.Context, label, path string, form url.Values) (json.RawMessage, error) {
	log := c.log.WithComponent("kraken_client").WithFields(logger.Fields{"endpoint": path, "data_type": label})

	retry := &backoff.Backoff{
		Min:    c.baseDelay,
		Max:    c.maxDelay,
		Factor: c.factor,
		Jitter: false,
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		envelope, err := c.do(ctx, path, form)
		if err != nil {
			return nil, err
		}
		if len(envelope.Error) == 0 {
			return envelope.Result, nil
		}
		if !isRateLimited(envelope.Error) {
			return nil, &APIError{Errors: envelope.Error}
		}

		delay := retry.Duration()
		log.WithFields(logger.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("rate limited, backing off")
		logger.IncrementRetry(label)
		c.sleep(delay)
	}

	log.Error("rate limit retries exhausted")
	return nil, ErrRetriesExhausted
}

// do performs a single signed POST. The passed form is not mutated.
func (c *Client) do(ctx context.Context, path string, form url.Values) (*response, error) {
	payload := url.Values{}
	for k, vs := range form {
		payload[k] = vs
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")

	if strings.Contains(path, "/private/") {
		nonce := strconv.FormatInt(c.nonce(), 10)
		payload.Set("nonce", nonce)
		body := payload.Encode()
		signature, err := signRequest(c.secret, path, nonce, body)
		if err != nil {
			return nil, err
		}
		headers.Set("API-Key", c.key)
		headers.Set("API-Sign", signature)
		return c.post(ctx, path, body, headers)
	}

	return c.post(ctx, path, payload.Encode(), headers)
}

func (c *Client) post(ctx context.Context, path, body string, headers http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		req.Header[k] = vs
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return &envelope, nil
}

// TradesQuery selects a page of trade history. Before > 0 requests trades
// strictly older than that timestamp, otherwise Offset is sent.
type TradesQuery struct {
	Offset int64
	Before int64
}

// TradesPage fetches one page of trade history. Records are returned
// newest-first; Total carries the API's reported overall count.
func (c *Client) TradesPage(ctx context.Context, query TradesQuery) (*models.Batch, error) {
	form := url.Values{}
	if query.Before > 0 {
		form.Set("end", strconv.FormatInt(query.Before, 10))
	} else {
		form.Set("ofs", strconv.FormatInt(query.Offset, 10))
	}
	raw, err := c.call(ctx, string(models.DataTypeTrades), tradesHistoryPath, form)
	if err != nil {
		return nil, err
	}

	var result tradesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("malformed trades result: %w", err)
	}

	records := make([]models.Record, 0, len(result.Trades))
	for id, trade := range result.Trades {
		trade.ID = id
		records = append(records, trade)
	}
	sortNewestFirst(records)
	return &models.Batch{Records: records, Total: result.Count}, nil
}

// LedgerQuery selects a page of ledger entries. Exactly one of Offset or
// Before drives pagination: Before > 0 requests entries strictly older than
// that timestamp, otherwise Offset is sent.
type LedgerQuery struct {
	Asset  string
	Type   string
	Offset int64
	Before int64
}

// LedgerPage fetches one page of ledger entries, newest-first.
func (c *Client) LedgerPage(ctx context.Context, query LedgerQuery) (*models.Batch, error) {
	form := url.Values{
		"asset": {query.Asset},
		"type":  {query.Type},
	}
	if query.Before > 0 {
		form.Set("end", strconv.FormatInt(query.Before, 10))
	} else {
		form.Set("ofs", strconv.FormatInt(query.Offset, 10))
	}

	raw, err := c.call(ctx, string(models.DataTypeRewards), ledgersPath, form)
	if err != nil {
		return nil, err
	}

	var result ledgerResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("malformed ledger result: %w", err)
	}

	records := make([]models.Record, 0, len(result.Ledger))
	for id, entry := range result.Ledger {
		entry.ID = id
		records = append(records, entry)
	}
	sortNewestFirst(records)
	return &models.Batch{Records: records, Total: result.Count}, nil
}

// AssetPairs fetches the public asset pair metadata used to enrich trades.
func (c *Client) AssetPairs(ctx context.Context) (map[string]models.AssetPair, error) {
	raw, err := c.call(ctx, "asset_pairs", assetPairsPath, url.Values{})
	if err != nil {
		return nil, err
	}

	var result map[string]models.AssetPair
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("malformed asset pairs result: %w", err)
	}
	for pair, info := range result {
		info.Pair = pair
		result[pair] = info
	}
	return result, nil
}
