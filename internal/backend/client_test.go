package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()

	server := httptest.NewServer(handler)
	client, err := NewClient(models.PlatformConfig{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		server.Close()
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server.Close
}

func TestCreateBuyOrderSendsEnvelope(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	defer cleanup()

	err := client.CreateBuyOrder(context.Background(), OrderParams{
		AssetSymbol: "BTC",
		AssetAmount: decimal.RequireFromString("0.002"),
		UnitPrice:   decimal.RequireFromString("50000"),
	})
	if err != nil {
		t.Fatalf("CreateBuyOrder failed: %v", err)
	}
	if gotPath != "/orders/buy" {
		t.Errorf("path = %q, want /orders/buy", gotPath)
	}
	if gotBody["asset"] != "BTC" {
		t.Errorf("asset = %v, want BTC", gotBody["asset"])
	}
}

func TestBackendErrorMessageSurfaced(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "Market is closed",
		})
	})
	defer cleanup()

	err := client.CreateSellOrder(context.Background(), OrderParams{AssetSymbol: "BTC"})
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("got %T, want *ServiceError", err)
	}
	if se.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", se.StatusCode)
	}
	if se.Message != "Market is closed" {
		t.Errorf("message = %q, want the backend's wording", se.Message)
	}
	if UserMessage(err, "fallback") != "Market is closed" {
		t.Errorf("UserMessage = %q, want the backend message", UserMessage(err, "fallback"))
	}
}

func TestErrorWithoutMessageUsesFallback(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer cleanup()

	err := client.CreateBuyOrder(context.Background(), OrderParams{AssetSymbol: "BTC"})
	if got := UserMessage(err, "Something went wrong"); got != "Something went wrong" {
		t.Errorf("UserMessage = %q, want the fallback", got)
	}
}

func TestEnvelopeFailureWith200Status(t *testing.T) {
	// Some endpoints report domain failures inside a 200 envelope.
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "Insufficient liquidity",
		})
	})
	defer cleanup()

	err := client.CreateConversion(context.Background(), ConversionParams{FromAsset: "BTC", ToAsset: "ETH"})
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("got %T, want *ServiceError", err)
	}
	if se.Message != "Insufficient liquidity" {
		t.Errorf("message = %q", se.Message)
	}
}

func TestResolveRecipientNotFound(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer cleanup()

	_, err := client.ResolveRecipient(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("got %v, want ErrRecipientNotFound", err)
	}
}

func TestUnknownSession404IsNotARecipientError(t *testing.T) {
	// Only the recipient lookup maps a bare 404 to ErrRecipientNotFound;
	// a missing deposit session keeps its status code.
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer cleanup()

	_, err := client.GetDepositStatus(context.Background(), "no-such-session")
	if errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("got ErrRecipientNotFound for a deposit endpoint")
	}
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("got %T, want *ServiceError", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", se.StatusCode)
	}
}

func TestResolveRecipient(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("identifier"); got != "alice@example.com" {
			t.Errorf("identifier = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"displayName": "Alice Smith"},
		})
	})
	defer cleanup()

	result, err := client.ResolveRecipient(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("ResolveRecipient failed: %v", err)
	}
	if result.DisplayName != "Alice Smith" {
		t.Errorf("display name = %q, want Alice Smith", result.DisplayName)
	}
}

func TestCreateWithdrawalDecodesFeeBreakdown(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"id": "wd-99",
				"fees": map[string]any{
					"breakdown": []map[string]any{
						{"label": "Processing Fee", "amount": "10"},
						{"label": "Network Fee", "amount": "0.0005"},
					},
					"total": "10.0005",
				},
			},
		})
	})
	defer cleanup()

	result, err := client.CreateWithdrawal(context.Background(), WithdrawalParams{
		Amount:   decimal.RequireFromString("500"),
		Currency: "BTC",
		Method:   "CRYPTO_BTC",
		Address:  "bc1q-dest",
	})
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	if result.WithdrawalId != "wd-99" {
		t.Errorf("withdrawal id = %q, want wd-99", result.WithdrawalId)
	}
	if len(result.Fees.Lines) != 2 {
		t.Fatalf("fee lines = %d, want 2", len(result.Fees.Lines))
	}
	if result.Fees.Lines[0].Label != "Processing Fee" {
		t.Errorf("first line = %q", result.Fees.Lines[0].Label)
	}
	if !result.Fees.Total.Equal(decimal.RequireFromString("10.0005")) {
		t.Errorf("total = %s, want 10.0005", result.Fees.Total.String())
	}
}

func TestCreateDepositPaymentDefaultsToPending(t *testing.T) {
	expires := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"sessionId":      "sess-7",
				"paymentAddress": "bc1q-pay",
				"expectedAmount": "0.005",
				"expiresAt":      expires.Format(time.RFC3339),
			},
		})
	})
	defer cleanup()

	session, err := client.CreateDepositPayment(context.Background(), DepositParams{
		Amount:      decimal.RequireFromString("250"),
		Currency:    "USD",
		AssetSymbol: "BTC",
	})
	if err != nil {
		t.Fatalf("CreateDepositPayment failed: %v", err)
	}
	if session.SessionId != "sess-7" || session.PaymentAddress != "bc1q-pay" {
		t.Errorf("session = %+v", session)
	}
	if session.Status != models.PaymentPending {
		t.Errorf("status = %s, want PENDING when the backend omits it", session.Status)
	}
	if !session.ExpiresAt.Equal(expires) {
		t.Errorf("expires at = %s, want %s", session.ExpiresAt, expires)
	}
}

func TestGetDepositStatus(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deposits/sess-7/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"status": "COMPLETED"},
		})
	})
	defer cleanup()

	status, err := client.GetDepositStatus(context.Background(), "sess-7")
	if err != nil {
		t.Fatalf("GetDepositStatus failed: %v", err)
	}
	if status != models.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", status)
	}
}

func TestGetPrices(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "BTC,ETH" {
			t.Errorf("symbols = %q, want BTC,ETH", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"prices": []map[string]any{
					{"symbol": "BTC", "price": "50000"},
					{"symbol": "ETH", "price": "2500"},
				},
			},
		})
	})
	defer cleanup()

	prices, err := client.GetPrices(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d prices, want 2", len(prices))
	}
	if prices[0].Symbol != "BTC" || !prices[0].Price.Equal(decimal.RequireFromString("50000")) {
		t.Errorf("first entry = %+v", prices[0])
	}
}

func TestFetchHoldings(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/holdings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"fiatBalance": "1000.50",
				"assets":      map[string]any{"BTC": "0.5", "ETH": "2"},
			},
		})
	})
	defer cleanup()

	holdings, err := client.FetchHoldings(context.Background())
	if err != nil {
		t.Fatalf("FetchHoldings failed: %v", err)
	}
	if !holdings.FiatBalance.Equal(decimal.RequireFromString("1000.50")) {
		t.Errorf("fiat = %s, want 1000.50", holdings.FiatBalance.String())
	}
	if !holdings.Assets["BTC"].Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("BTC = %s, want 0.5", holdings.Assets["BTC"].String())
	}
	if holdings.FetchedAt.IsZero() {
		t.Error("fetched-at must be stamped")
	}
}

func TestNonJsonErrorBodyTolerated(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream error</html>"))
	})
	defer cleanup()

	err := client.CancelDeposit(context.Background(), "sess-1")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("got %T, want *ServiceError", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", se.StatusCode)
	}
}
