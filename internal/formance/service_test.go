package formance

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"USD", "USD/2"},
		{"USDC", "USDC/6"},
		{"BTC", "BTC/8"},
		{"ETH", "ETH/18"},
		{"SOL", "SOL/9"},
		{"DOGE", "DOGE/6"}, // unmapped assets default to 6
	}

	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbolStripsPrecision(t *testing.T) {
	tests := []struct {
		asset string
		want  string
	}{
		{"BTC/8", "BTC"},
		{"USD/2", "USD"},
		{"EUR", "EUR"},
	}

	for _, tt := range tests {
		if got := assetSymbol(tt.asset); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.asset, got, tt.want)
		}
	}
}

func TestBigIntToDecimal(t *testing.T) {
	tests := []struct {
		raw    string
		symbol string
		want   string
	}{
		{"150", "USD", "1.5"},
		{"50000", "BTC", "0.0005"},
		{"1000000", "USDC", "1"},
		{"0", "USD", "0"},
	}

	for _, tt := range tests {
		raw, ok := new(big.Int).SetString(tt.raw, 10)
		if !ok {
			t.Fatalf("bad fixture %q", tt.raw)
		}
		got := bigIntToDecimal(raw, tt.symbol)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("bigIntToDecimal(%s, %s) = %s, want %s", tt.raw, tt.symbol, got.String(), tt.want)
		}
	}

	if !bigIntToDecimal(nil, "USD").IsZero() {
		t.Error("nil amount must map to zero")
	}
}

func TestAmountRoundTrip(t *testing.T) {
	// A decimal shifted into minor units and back must be unchanged.
	amount := decimal.RequireFromString("123.456789")
	precision := int32(precisionFor("USDC"))

	minor := amount.Shift(precision).BigInt()
	back := bigIntToDecimal(minor, "USDC")

	if !back.Equal(amount) {
		t.Errorf("round trip of %s via minor units = %s", amount.String(), back.String())
	}
}
