package validate

import (
	"trading-core-go/internal/convert"
	"trading-core-go/internal/fees"
	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

// Field error keys shared with the wizard.
const (
	FieldAmount      = "amount"
	FieldAsset       = "asset"
	FieldDestination = "destination"
	FieldRecipient   = "recipient"
)

// Messages surfaced to the user. Raw backend messages replace these only at
// the submission boundary.
const (
	MsgInvalidAmount       = "Enter a valid amount"
	MsgInsufficientBalance = "Insufficient balance"
	MsgQuoteUnavailable    = "Price unavailable, try again shortly"
)

// FieldErrors maps a field name to a human-readable error. An empty map means
// the draft is valid.
type FieldErrors map[string]string

func (e FieldErrors) Valid() bool { return len(e) == 0 }

// Validator checks a draft against the user's known holdings. It estimates
// only; the backend's eventual computation is authoritative.
type Validator struct {
	converter  *convert.Converter
	calculator *fees.Calculator
	base       string
}

func NewValidator(converter *convert.Converter, calculator *fees.Calculator, baseCurrency string) *Validator {
	return &Validator{
		converter:  converter,
		calculator: calculator,
		base:       baseCurrency,
	}
}

// amountInBase normalizes the draft amount to the base settlement currency.
func (v *Validator) amountInBase(draft *models.TransactionDraft, displayCurrency string) decimal.Decimal {
	if draft.AmountDenomination == models.DenominationAssetUnits {
		return v.converter.AssetUnitsToBase(draft.Amount, draft.AssetSymbol)
	}
	return v.converter.ToBaseCurrency(draft.Amount, displayCurrency)
}

// amountInAssetUnits normalizes the draft amount to units of its asset.
func (v *Validator) amountInAssetUnits(draft *models.TransactionDraft, displayCurrency string) decimal.Decimal {
	if draft.AmountDenomination == models.DenominationAssetUnits {
		return draft.Amount
	}
	base := v.converter.ToBaseCurrency(draft.Amount, displayCurrency)
	return v.converter.ToAssetUnits(base, draft.AssetSymbol)
}

// Validate runs the balance-sufficiency check for a draft. Must be re-run on
// every amount or asset change so the host can show live errors, not only at
// submission.
func (v *Validator) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) FieldErrors {
	errs := FieldErrors{}

	if !draft.Amount.IsPositive() {
		errs[FieldAmount] = MsgInvalidAmount
		return errs
	}

	switch draft.OperationType {
	case models.OperationBuy, models.OperationDeposit:
		// Fee-inclusive fiat cost must fit in the fiat balance. Cost exactly
		// equal to the balance is accepted.
		amountBase := v.amountInBase(draft, displayCurrency)
		cost := amountBase.Add(v.calculator.ComputeFee(amountBase, draft.OperationType))
		if cost.GreaterThan(holdings.FiatBalance) {
			errs[FieldAmount] = MsgInsufficientBalance
		}

	case models.OperationWithdraw:
		if v.isFiatWithdrawal(draft) {
			amountBase := v.amountInBase(draft, displayCurrency)
			breakdown := v.calculator.WithdrawalBreakdown(amountBase, draft.WithdrawalMethod)
			if amountBase.Add(breakdown.Total).GreaterThan(holdings.FiatBalance) {
				errs[FieldAmount] = MsgInsufficientBalance
			}
		} else {
			v.checkAssetHolding(draft, holdings, displayCurrency, errs)
		}

	case models.OperationSell, models.OperationConvert, models.OperationTransfer:
		v.checkAssetHolding(draft, holdings, displayCurrency, errs)
	}

	return errs
}

func (v *Validator) isFiatWithdrawal(draft *models.TransactionDraft) bool {
	return draft.AssetSymbol == "" || draft.AssetSymbol == v.base
}

func (v *Validator) checkAssetHolding(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string, errs FieldErrors) {
	units := v.amountInAssetUnits(draft, displayCurrency)
	if units.IsZero() {
		// Zero from the converter means no usable quote, never a valid size.
		errs[FieldAmount] = MsgQuoteUnavailable
		return
	}
	if units.GreaterThan(holdings.AssetHolding(draft.AssetSymbol)) {
		errs[FieldAmount] = MsgInsufficientBalance
	}
}
