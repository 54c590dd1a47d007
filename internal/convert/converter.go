package convert

import (
	"sync"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

// QuoteSource supplies the current price quote for an asset. Each conversion
// call re-samples the quote, so no cross-asset round-trip is guaranteed.
type QuoteSource interface {
	Quote(symbol string) (models.PriceQuote, bool)
}

// Converter performs pure conversions between the user's display currency,
// the base settlement currency, and asset units. Exchange rates are stored
// with the base currency at 1.
type Converter struct {
	mu     sync.RWMutex
	base   string
	rates  map[string]decimal.Decimal
	quotes QuoteSource
}

func NewConverter(baseCurrency string, quotes QuoteSource) *Converter {
	return &Converter{
		base:   baseCurrency,
		rates:  map[string]decimal.Decimal{baseCurrency: decimal.NewFromInt(1)},
		quotes: quotes,
	}
}

// SetRates replaces the exchange-rate table. The base currency always maps to
// 1 regardless of the input.
func (c *Converter) SetRates(rates map[string]decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rates = make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		c.rates[code] = rate
	}
	c.rates[c.base] = decimal.NewFromInt(1)
}

// rateFor returns the display-currency rate, falling back to 1 (i.e. the base
// currency) for unsupported codes. The fallback is deliberate: an unknown
// display preference must never fail a conversion.
func (c *Converter) rateFor(displayCurrency string) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rate, ok := c.rates[displayCurrency]; ok && rate.IsPositive() {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Supported reports whether a display currency code has a usable rate.
func (c *Converter) Supported(displayCurrency string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rate, ok := c.rates[displayCurrency]
	return ok && rate.IsPositive()
}

// ToBaseCurrency converts a display-currency amount into the base settlement
// currency.
func (c *Converter) ToBaseCurrency(amount decimal.Decimal, displayCurrency string) decimal.Decimal {
	return amount.Div(c.rateFor(displayCurrency))
}

// ToDisplayCurrency converts a base-currency amount into the display
// currency. Inverse of ToBaseCurrency for the same code and rate.
func (c *Converter) ToDisplayCurrency(amountInBase decimal.Decimal, displayCurrency string) decimal.Decimal {
	return amountInBase.Mul(c.rateFor(displayCurrency))
}

// ToAssetUnits converts a base-currency amount into asset units using the
// current quote. Returns zero when no quote exists or the quoted price is
// zero; callers must treat zero as "cannot quote yet", not as a valid amount.
func (c *Converter) ToAssetUnits(amountInBase decimal.Decimal, assetSymbol string) decimal.Decimal {
	if c.quotes == nil {
		return decimal.Zero
	}
	quote, ok := c.quotes.Quote(assetSymbol)
	if !ok || !quote.UnitPriceInBase.IsPositive() {
		return decimal.Zero
	}
	return amountInBase.Div(quote.UnitPriceInBase)
}

// AssetUnitsToBase converts asset units into the base currency using the
// current quote, zero when no quote is available.
func (c *Converter) AssetUnitsToBase(units decimal.Decimal, assetSymbol string) decimal.Decimal {
	if c.quotes == nil {
		return decimal.Zero
	}
	quote, ok := c.quotes.Quote(assetSymbol)
	if !ok || !quote.UnitPriceInBase.IsPositive() {
		return decimal.Zero
	}
	return units.Mul(quote.UnitPriceInBase)
}
