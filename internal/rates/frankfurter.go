package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const defaultBaseURL = "https://api.frankfurter.app"

// Client fetches fiat exchange rates with the base settlement currency at 1.
type Client struct {
	baseURL    string
	httpClient http.Client
}

func NewClient() (*Client, error) {
	return NewClientWithURL(defaultBaseURL)
}

func NewClientWithURL(baseURL string) (*Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 15 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:        5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("unable to configure transport: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		},
	}, nil
}

// Latest returns the rate table for the given base currency. The base itself
// is always present with rate 1, so a failed or partial response still leaves
// the converter with a usable table.
func (c *Client) Latest(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	endpoint := c.baseURL + "/latest?from=" + url.QueryEscape(baseCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("unable to decode rates response: %w", err)
	}

	table := make(map[string]decimal.Decimal, len(payload.Rates)+1)
	for code, rate := range payload.Rates {
		table[code] = rate
	}
	table[baseCurrency] = decimal.NewFromInt(1)

	zap.L().Debug("Exchange rates refreshed",
		zap.String("base", baseCurrency),
		zap.Int("count", len(table)))

	return table, nil
}
