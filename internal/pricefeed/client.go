package pricefeed

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
)

const DefaultBaseURL = "https://api.binance.com"

// APIError is a non-2xx response from the price API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("price api http %d: %s", e.StatusCode, e.Body)
}

// Client fetches spot prices over the Binance-compatible REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetPrice returns the current price for symbol and the time it was fetched.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, time.Time{}, fmt.Errorf("symbol is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	endpoint := base + "/api/v3/ticker/price?symbol=" + url.QueryEscape(symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, time.Time{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tr tickerPriceResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(tr.Price))
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("unparsable price %q for %s", tr.Price, symbol)
	}
	if !price.IsPositive() {
		return decimal.Zero, time.Time{}, fmt.Errorf("non-positive price %s for %s", price, symbol)
	}
	return price, time.Now().UTC(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
