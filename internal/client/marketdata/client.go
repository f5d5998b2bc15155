package marketdata

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

	"walletscope/internal/models"
)

const maxBodyBytes = 4 << 20

// Client talks to the market data gateway: wallet transaction history,
// candles, market snapshots, counterparty risk and token overview analytics.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Code   int
	Body   string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("API error (%d, code %d): %s", e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       strings.TrimRight(strings.TrimSpace(host), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Code != 0 {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Body: env.Msg}
	}
	return env.Data, nil
}

// Transactions returns one page of a wallet's swap history, oldest cursor
// first. An empty cursor requests the first page.
func (c *Client) Transactions(ctx context.Context, wallet, cursor string, limit int) (models.TransactionPage, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return models.TransactionPage{}, fmt.Errorf("wallet is required")
	}
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.doRequest(ctx, "/v1/wallets/"+url.PathEscape(wallet)+"/transactions", query)
	if err != nil {
		return models.TransactionPage{}, err
	}
	return parseTransactionPage(data)
}

// Candles returns OHLC candles for [from, to]. The gateway answers
// newest-first; order is left as received.
func (c *Client) Candles(ctx context.Context, token string, granularity models.Granularity, from, to time.Time) ([]models.Candle, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	query := url.Values{}
	query.Set("bar", string(granularity))
	query.Set("after", strconv.FormatInt(from.UnixMilli(), 10))
	query.Set("before", strconv.FormatInt(to.UnixMilli(), 10))
	data, err := c.doRequest(ctx, "/v1/tokens/"+url.PathEscape(token)+"/candles", query)
	if err != nil {
		return nil, err
	}
	return parseCandles(data)
}

func (c *Client) MarketSnapshot(ctx context.Context, token string) (models.MarketSnapshot, error) {
	var out wireMarket
	if err := c.getToken(ctx, token, "market", &out); err != nil {
		return models.MarketSnapshot{}, err
	}
	return out.model(), nil
}

func (c *Client) CounterpartyRisk(ctx context.Context, token string) (models.CounterpartyRisk, error) {
	var out wireRisk
	if err := c.getToken(ctx, token, "risk", &out); err != nil {
		return models.CounterpartyRisk{}, err
	}
	return models.CounterpartyRisk{Level: int(out.RiskLevel.Int())}, nil
}

func (c *Client) TokenOverview(ctx context.Context, token string) (models.TokenOverview, error) {
	var out wireOverview
	if err := c.getToken(ctx, token, "overview", &out); err != nil {
		return models.TokenOverview{}, err
	}
	return out.model(), nil
}

func (c *Client) getToken(ctx context.Context, token, resource string, dst any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is required")
	}
	data, err := c.doRequest(ctx, "/v1/tokens/"+url.PathEscape(token)+"/"+resource, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", resource, token, err)
	}
	return nil
}
