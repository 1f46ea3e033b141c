// Package marketdata is the REST client for the quote and price-history
// service the ledger marks positions against.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// Client implements domain.MarketData over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a market-data client.
//
// baseURL is the service root, e.g. "http://localhost:5000".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// quoteResponse covers the stock, crypto and commodity payloads, which carry
// currentPrice, and the mutual-fund payload, which carries nav.
type quoteResponse struct {
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	NAV          decimal.NullDecimal `json:"nav"`
}

// Quote returns the latest price for symbol from the route matching its
// asset type.
func (c *Client) Quote(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	path := fmt.Sprintf("/api/%s/%s", assetType.QuotePath(), url.PathEscape(symbol))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("marketdata: quote %s: %w", symbol, err)
	}

	var q quoteResponse
	if err := json.Unmarshal(body, &q); err != nil {
		return decimal.Zero, fmt.Errorf("marketdata: decode quote %s: %w", symbol, err)
	}

	switch {
	case q.CurrentPrice.Valid:
		return q.CurrentPrice.Decimal, nil
	case q.NAV.Valid:
		return q.NAV.Decimal, nil
	default:
		return decimal.Zero, fmt.Errorf("marketdata: quote %s: %w: no price in response", symbol, domain.ErrNotFound)
	}
}

type historyPoint struct {
	Time  string              `json:"time"`
	Close decimal.NullDecimal `json:"close"`
	NAV   decimal.NullDecimal `json:"nav"`
}

type historyResponse struct {
	Data []historyPoint `json:"data"`
}

// History returns the price series for symbol. Mutual-fund points carry nav,
// which takes precedence over close; points with neither are dropped.
func (c *Client) History(ctx context.Context, symbol, period, interval string) ([]domain.PricePoint, error) {
	symbol = domain.NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("period", strings.ToUpper(period))
	if interval != "" {
		params.Set("interval", strings.ToLower(interval))
	}
	path := fmt.Sprintf("/api/history/%s?%s", url.PathEscape(symbol), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("marketdata: history %s: %w", symbol, err)
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("marketdata: decode history %s: %w", symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Time == "" {
			continue
		}
		var price decimal.Decimal
		switch {
		case p.NAV.Valid:
			price = p.NAV.Decimal
		case p.Close.Valid:
			price = p.Close.Decimal
		default:
			continue
		}
		points = append(points, domain.PricePoint{Date: p.Time, Price: price})
	}
	return points, nil
}

// Ping checks the service's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doGet(ctx, "/health"); err != nil {
		return fmt.Errorf("marketdata: ping: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a GET request and returns the body of a 2xx response. A 404 is
// reported as domain.ErrNotFound.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface check.
var _ domain.MarketData = (*Client)(nil)
