package validate

import (
	"testing"

	"trading-core-go/internal/convert"
	"trading-core-go/internal/fees"
	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

type staticQuotes map[string]string

func (q staticQuotes) Quote(symbol string) (models.PriceQuote, bool) {
	price, ok := q[symbol]
	if !ok {
		return models.PriceQuote{}, false
	}
	return models.PriceQuote{
		AssetSymbol:     symbol,
		UnitPriceInBase: decimal.RequireFromString(price),
	}, true
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	converter := convert.NewConverter("USD", staticQuotes{
		"BTC": "50000",
		"ETH": "2500",
	})
	return NewValidator(converter, fees.NewCalculator(nil), "USD")
}

func holdingsWith(fiat string, assets map[string]string) *models.Holdings {
	h := &models.Holdings{
		FiatBalance: decimal.RequireFromString(fiat),
		Assets:      map[string]decimal.Decimal{},
	}
	for symbol, units := range assets {
		h.Assets[symbol] = decimal.RequireFromString(units)
	}
	return h
}

func buyDraft(amount string) *models.TransactionDraft {
	return &models.TransactionDraft{
		OperationType:      models.OperationBuy,
		AssetSymbol:        "BTC",
		Amount:             decimal.RequireFromString(amount),
		AmountDenomination: models.DenominationDisplayCurrency,
	}
}

func TestBuyInsufficientThenSufficient(t *testing.T) {
	v := newTestValidator(t)

	// 100 USD buy carries a 1.5 USD fee: 101.50 total.
	draft := buyDraft("100")

	errs := v.Validate(draft, holdingsWith("100", nil), "USD")
	if errs[FieldAmount] != MsgInsufficientBalance {
		t.Errorf("with 100 balance: got %q, want %q", errs[FieldAmount], MsgInsufficientBalance)
	}

	errs = v.Validate(draft, holdingsWith("150", nil), "USD")
	if !errs.Valid() {
		t.Errorf("with 150 balance: unexpected errors %v", errs)
	}
}

func TestBuyBoundaryEqualAccepted(t *testing.T) {
	v := newTestValidator(t)

	// Fee-inclusive cost of a 100 USD buy is exactly 101.50.
	errs := v.Validate(buyDraft("100"), holdingsWith("101.50", nil), "USD")
	if !errs.Valid() {
		t.Errorf("cost equal to balance must pass, got %v", errs)
	}
}

func TestNonPositiveAmount(t *testing.T) {
	v := newTestValidator(t)
	holdings := holdingsWith("1000", nil)

	for _, raw := range []string{"0", "-5"} {
		draft := buyDraft(raw)
		errs := v.Validate(draft, holdings, "USD")
		if errs[FieldAmount] != MsgInvalidAmount {
			t.Errorf("amount %s: got %q, want %q", raw, errs[FieldAmount], MsgInvalidAmount)
		}
	}
}

func TestSellRequiresHeldUnits(t *testing.T) {
	v := newTestValidator(t)

	draft := &models.TransactionDraft{
		OperationType:      models.OperationSell,
		AssetSymbol:        "BTC",
		Amount:             decimal.RequireFromString("0.5"),
		AmountDenomination: models.DenominationAssetUnits,
	}

	errs := v.Validate(draft, holdingsWith("0", map[string]string{"BTC": "0.4"}), "USD")
	if errs[FieldAmount] != MsgInsufficientBalance {
		t.Errorf("selling more than held: got %q, want %q", errs[FieldAmount], MsgInsufficientBalance)
	}

	errs = v.Validate(draft, holdingsWith("0", map[string]string{"BTC": "0.5"}), "USD")
	if !errs.Valid() {
		t.Errorf("selling exactly held amount must pass, got %v", errs)
	}
}

func TestDisplayAmountConvertsBeforeHoldingCheck(t *testing.T) {
	v := newTestValidator(t)

	// 100 USD of BTC at 50,000 is 0.002 BTC.
	draft := &models.TransactionDraft{
		OperationType:      models.OperationTransfer,
		AssetSymbol:        "BTC",
		Amount:             decimal.RequireFromString("100"),
		AmountDenomination: models.DenominationDisplayCurrency,
	}

	errs := v.Validate(draft, holdingsWith("0", map[string]string{"BTC": "0.001"}), "USD")
	if errs[FieldAmount] != MsgInsufficientBalance {
		t.Errorf("0.001 BTC held: got %q, want %q", errs[FieldAmount], MsgInsufficientBalance)
	}

	errs = v.Validate(draft, holdingsWith("0", map[string]string{"BTC": "0.002"}), "USD")
	if !errs.Valid() {
		t.Errorf("0.002 BTC held: unexpected errors %v", errs)
	}
}

func TestMissingQuoteReportsUnavailable(t *testing.T) {
	v := newTestValidator(t)

	draft := &models.TransactionDraft{
		OperationType:      models.OperationSell,
		AssetSymbol:        "DOGE", // no quote in the test feed
		Amount:             decimal.RequireFromString("100"),
		AmountDenomination: models.DenominationDisplayCurrency,
	}

	errs := v.Validate(draft, holdingsWith("0", map[string]string{"DOGE": "1000"}), "USD")
	if errs[FieldAmount] != MsgQuoteUnavailable {
		t.Errorf("got %q, want %q", errs[FieldAmount], MsgQuoteUnavailable)
	}
}

func TestFiatWithdrawalIncludesFees(t *testing.T) {
	v := newTestValidator(t)

	// 1000 via WIRE_TRANSFER needs 1000 + 50 in fees.
	draft := &models.TransactionDraft{
		OperationType:      models.OperationWithdraw,
		Amount:             decimal.RequireFromString("1000"),
		AmountDenomination: models.DenominationDisplayCurrency,
		WithdrawalMethod:   "WIRE_TRANSFER",
	}

	errs := v.Validate(draft, holdingsWith("1049.99", nil), "USD")
	if errs[FieldAmount] != MsgInsufficientBalance {
		t.Errorf("1049.99 balance: got %q, want %q", errs[FieldAmount], MsgInsufficientBalance)
	}

	errs = v.Validate(draft, holdingsWith("1050", nil), "USD")
	if !errs.Valid() {
		t.Errorf("1050 balance covers amount plus fees, got %v", errs)
	}
}

func TestCryptoWithdrawalChecksAssetUnits(t *testing.T) {
	v := newTestValidator(t)

	draft := &models.TransactionDraft{
		OperationType:      models.OperationWithdraw,
		AssetSymbol:        "ETH",
		Amount:             decimal.RequireFromString("2"),
		AmountDenomination: models.DenominationAssetUnits,
		WithdrawalMethod:   "CRYPTO_ETH",
	}

	errs := v.Validate(draft, holdingsWith("0", map[string]string{"ETH": "1.5"}), "USD")
	if errs[FieldAmount] != MsgInsufficientBalance {
		t.Errorf("got %q, want %q", errs[FieldAmount], MsgInsufficientBalance)
	}
}
