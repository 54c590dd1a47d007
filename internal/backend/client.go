package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Client is the REST implementation of Service against the platform API.
type Client struct {
	baseURL    string
	httpClient http.Client
}

var _ Service = (*Client)(nil)

func NewClient(cfg models.PlatformConfig) (*Client, error) {
	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// envelope is the platform's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// do issues one request and decodes the envelope. Any transport failure or
// non-2xx response comes back as a *ServiceError carrying the backend's own
// message when one was provided.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &ServiceError{Message: ""}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ServiceError{StatusCode: resp.StatusCode}
	}

	var env envelope
	if len(raw) > 0 {
		// A non-JSON body is tolerated; the envelope stays zero-valued and
		// the status code decides the outcome.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zap.L().Warn("Backend returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", env.Error))
		return &ServiceError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if !env.Success && env.Error != "" {
		return &ServiceError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("unable to decode response data: %w", err)
		}
	}

	return nil
}

func (c *Client) CreateBuyOrder(ctx context.Context, params OrderParams) error {
	return c.do(ctx, http.MethodPost, "/orders/buy", map[string]any{
		"asset":       params.AssetSymbol,
		"assetAmount": params.AssetAmount,
		"unitPrice":   params.UnitPrice,
	}, nil)
}

func (c *Client) CreateSellOrder(ctx context.Context, params OrderParams) error {
	return c.do(ctx, http.MethodPost, "/orders/sell", map[string]any{
		"asset":       params.AssetSymbol,
		"assetAmount": params.AssetAmount,
		"unitPrice":   params.UnitPrice,
	}, nil)
}

func (c *Client) CreateConversion(ctx context.Context, params ConversionParams) error {
	return c.do(ctx, http.MethodPost, "/conversions", map[string]any{
		"fromAsset":    params.FromAsset,
		"toAsset":      params.ToAsset,
		"amount":       params.Amount,
		"rate":         params.Rate,
		"fromPriceUsd": params.FromPriceBase,
		"toPriceUsd":   params.ToPriceBase,
	}, nil)
}

func (c *Client) CreateTransfer(ctx context.Context, params TransferParams) (*TransferResult, error) {
	var data struct {
		RecipientName string `json:"recipientName"`
	}
	err := c.do(ctx, http.MethodPost, "/transfers", map[string]any{
		"asset":       params.AssetSymbol,
		"amount":      params.Amount,
		"destination": params.Destination,
		"memo":        params.Memo,
	}, &data)
	if err != nil {
		return nil, err
	}
	return &TransferResult{RecipientName: data.RecipientName}, nil
}

func (c *Client) CreateWithdrawal(ctx context.Context, params WithdrawalParams) (*WithdrawalResult, error) {
	var data struct {
		Id   string `json:"id"`
		Fees struct {
			Breakdown []struct {
				Label  string          `json:"label"`
				Amount decimal.Decimal `json:"amount"`
			} `json:"breakdown"`
			Total decimal.Decimal `json:"total"`
		} `json:"fees"`
	}
	err := c.do(ctx, http.MethodPost, "/withdrawals", map[string]any{
		"amount":   params.Amount,
		"currency": params.Currency,
		"method":   params.Method,
		"address":  params.Address,
		"memo":     params.Memo,
	}, &data)
	if err != nil {
		return nil, err
	}

	breakdown := models.FeeBreakdown{Total: data.Fees.Total}
	for _, line := range data.Fees.Breakdown {
		breakdown.Lines = append(breakdown.Lines, models.FeeLine{
			Label:  line.Label,
			Amount: line.Amount,
		})
	}

	return &WithdrawalResult{WithdrawalId: data.Id, Fees: breakdown}, nil
}

func (c *Client) AuthorizeWithdrawalFee(ctx context.Context, withdrawalId, paymentMethod string) error {
	return c.do(ctx, http.MethodPost, "/withdrawals/"+url.PathEscape(withdrawalId)+"/authorize-fee", map[string]any{
		"paymentMethod": paymentMethod,
	}, nil)
}

func (c *Client) CreateDepositPayment(ctx context.Context, params DepositParams) (*models.PaymentSession, error) {
	var data struct {
		SessionId      string          `json:"sessionId"`
		PaymentAddress string          `json:"paymentAddress"`
		ExpectedAmount decimal.Decimal `json:"expectedAmount"`
		ExpiresAt      time.Time       `json:"expiresAt"`
		Status         string          `json:"status"`
	}
	err := c.do(ctx, http.MethodPost, "/deposits", map[string]any{
		"amount":      params.Amount,
		"currency":    params.Currency,
		"assetSymbol": params.AssetSymbol,
	}, &data)
	if err != nil {
		return nil, err
	}

	status := models.PaymentStatus(data.Status)
	if status == "" {
		status = models.PaymentPending
	}

	return &models.PaymentSession{
		SessionId:           data.SessionId,
		AssetSymbol:         params.AssetSymbol,
		Currency:            params.Currency,
		FiatAmount:          params.Amount,
		PaymentAddress:      data.PaymentAddress,
		ExpectedAssetAmount: data.ExpectedAmount,
		Status:              status,
		ExpiresAt:           data.ExpiresAt,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (c *Client) GetDepositStatus(ctx context.Context, sessionId string) (models.PaymentStatus, error) {
	var data struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodGet, "/deposits/"+url.PathEscape(sessionId)+"/status", nil, &data)
	if err != nil {
		return "", err
	}
	return models.PaymentStatus(data.Status), nil
}

func (c *Client) CancelDeposit(ctx context.Context, sessionId string) error {
	return c.do(ctx, http.MethodPost, "/deposits/"+url.PathEscape(sessionId)+"/cancel", nil, nil)
}

func (c *Client) ResolveRecipient(ctx context.Context, identifier string) (*models.RecipientLookupResult, error) {
	var data struct {
		DisplayName string `json:"displayName"`
	}
	path := "/recipients/lookup?identifier=" + url.QueryEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		// A bare 404 on this endpoint means the identifier has no account
		// behind it. Other endpoints keep their 404s as service errors.
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound && svcErr.Message == "" {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if data.DisplayName == "" {
		return nil, ErrRecipientNotFound
	}
	return &models.RecipientLookupResult{
		Identifier:  identifier,
		DisplayName: data.DisplayName,
	}, nil
}

// FetchHoldings returns the authoritative portfolio snapshot. It satisfies
// the portfolio tracker's source.
func (c *Client) FetchHoldings(ctx context.Context) (*models.Holdings, error) {
	var data struct {
		FiatBalance decimal.Decimal            `json:"fiatBalance"`
		Assets      map[string]decimal.Decimal `json:"assets"`
	}
	if err := c.do(ctx, http.MethodGet, "/holdings", nil, &data); err != nil {
		return nil, err
	}

	holdings := &models.Holdings{
		FiatBalance: data.FiatBalance,
		Assets:      make(map[string]decimal.Decimal, len(data.Assets)),
		FetchedAt:   time.Now().UTC(),
	}
	for symbol, units := range data.Assets {
		holdings.Assets[symbol] = units
	}
	return holdings, nil
}

func (c *Client) GetPrices(ctx context.Context, symbols []string) ([]PriceEntry, error) {
	var data struct {
		Prices []PriceEntry `json:"prices"`
	}
	path := "/prices?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Prices, nil
}
