package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a current price sample for one asset, used only for
// estimation. AsOf is advisory; no staleness rejection happens at this layer.
type PriceQuote struct {
	AssetSymbol     string          `json:"asset_symbol"`
	UnitPriceInBase decimal.Decimal `json:"unit_price_in_base"`
	AsOf            time.Time       `json:"as_of"`
}

// Holdings is the last known balance/holdings snapshot for the user. The
// backend owns the authoritative values; this core only estimates against it.
type Holdings struct {
	FiatBalance decimal.Decimal            // in the base settlement currency
	Assets      map[string]decimal.Decimal // held units keyed by asset symbol
	FetchedAt   time.Time
}

// AssetHolding returns the held quantity for an asset, zero if none.
func (h *Holdings) AssetHolding(symbol string) decimal.Decimal {
	if h == nil || h.Assets == nil {
		return decimal.Zero
	}
	return h.Assets[symbol]
}

// RecipientLookupResult is the outcome of resolving a transfer identifier.
// It is keyed by the identifier it was resolved for and is invalidated as
// soon as the identifier input changes.
type RecipientLookupResult struct {
	Identifier  string
	DisplayName string
}
