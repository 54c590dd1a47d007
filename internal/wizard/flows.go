package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/convert"
	"trading-core-go/internal/fees"
	"trading-core-go/internal/models"
	"trading-core-go/internal/portfolio"
	"trading-core-go/internal/recipient"
	"trading-core-go/internal/validate"

	"github.com/shopspring/decimal"
)

// Flow-level messages.
const (
	MsgSelectTargetAsset   = "Select a target asset"
	MsgRecipientUnverified = "Verify the recipient before continuing"
	MsgDestinationRequired = "Enter a destination"
	MsgSameAssetConversion = "Choose a different target asset"
)

// Deps are the shared collaborators every flow composes.
type Deps struct {
	Backend      backend.Service
	Converter    *convert.Converter
	Fees         *fees.Calculator
	Validator    *validate.Validator
	Recipients   *recipient.Resolver
	BaseCurrency string
}

// ForOperation builds the flow for an operation type.
func ForOperation(op models.OperationType, deps Deps) (Flow, error) {
	switch op {
	case models.OperationBuy:
		return NewBuyFlow(deps), nil
	case models.OperationSell:
		return NewSellFlow(deps), nil
	case models.OperationConvert:
		return NewConvertFlow(deps), nil
	case models.OperationTransfer:
		return NewTransferFlow(deps), nil
	case models.OperationWithdraw:
		return NewWithdrawFlow(deps), nil
	default:
		return nil, fmt.Errorf("no wizard flow for operation %s", op)
	}
}

// quoteUnavailable is returned when a submission needs a price quote that the
// feed cannot provide right now. Shaped as a ServiceError so the wizard
// surfaces the message verbatim.
func quoteUnavailable() error {
	return &backend.ServiceError{Message: validate.MsgQuoteUnavailable}
}

// amountInBase normalizes a draft amount to the base settlement currency.
func (d Deps) amountInBase(draft *models.TransactionDraft, displayCurrency string) decimal.Decimal {
	if draft.AmountDenomination == models.DenominationAssetUnits {
		return d.Converter.AssetUnitsToBase(draft.Amount, draft.AssetSymbol)
	}
	return d.Converter.ToBaseCurrency(draft.Amount, displayCurrency)
}

// amountInAssetUnits normalizes a draft amount to units of its asset.
func (d Deps) amountInAssetUnits(draft *models.TransactionDraft, displayCurrency string) decimal.Decimal {
	if draft.AmountDenomination == models.DenominationAssetUnits {
		return draft.Amount
	}
	return d.Converter.ToAssetUnits(d.Converter.ToBaseCurrency(draft.Amount, displayCurrency), draft.AssetSymbol)
}

// unitPrice samples the current quote for one unit of an asset, in base
// currency. Zero means no usable quote.
func (d Deps) unitPrice(symbol string) decimal.Decimal {
	return d.Converter.AssetUnitsToBase(decimal.NewFromInt(1), symbol)
}

// --- BUY ---

type buyFlow struct {
	deps Deps
}

func NewBuyFlow(deps Deps) Flow { return &buyFlow{deps: deps} }

func (f *buyFlow) Operation() models.OperationType { return models.OperationBuy }

func (f *buyFlow) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors {
	return f.deps.Validator.Validate(draft, holdings, displayCurrency)
}

func (f *buyFlow) Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta {
	amountBase := f.deps.amountInBase(draft, displayCurrency)
	fee := f.deps.Fees.ComputeFee(amountBase, models.OperationBuy)
	units := f.deps.amountInAssetUnits(draft, displayCurrency)

	return portfolio.Delta{
		Fiat:   amountBase.Add(fee).Neg(),
		Assets: map[string]decimal.Decimal{draft.AssetSymbol: units},
	}
}

func (f *buyFlow) Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error) {
	price := f.deps.unitPrice(draft.AssetSymbol)
	if !price.IsPositive() {
		return nil, quoteUnavailable()
	}

	amountBase := f.deps.amountInBase(draft, displayCurrency)
	units := amountBase.Div(price)
	fee := f.deps.Fees.ComputeFee(amountBase, models.OperationBuy)

	err := f.deps.Backend.CreateBuyOrder(ctx, backend.OrderParams{
		AssetSymbol: draft.AssetSymbol,
		AssetAmount: units,
		UnitPrice:   price,
	})
	if err != nil {
		return nil, err
	}

	return &models.Receipt{
		OperationType:   models.OperationBuy,
		AssetSymbol:     draft.AssetSymbol,
		AssetAmount:     units,
		SettlementValue: amountBase,
		Fee:             fee,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// --- SELL ---

type sellFlow struct {
	deps Deps
}

func NewSellFlow(deps Deps) Flow { return &sellFlow{deps: deps} }

func (f *sellFlow) Operation() models.OperationType { return models.OperationSell }

func (f *sellFlow) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors {
	return f.deps.Validator.Validate(draft, holdings, displayCurrency)
}

func (f *sellFlow) Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta {
	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	gross := f.deps.Converter.AssetUnitsToBase(units, draft.AssetSymbol)
	fee := f.deps.Fees.ComputeFee(gross, models.OperationSell)

	return portfolio.Delta{
		Fiat:   gross.Sub(fee),
		Assets: map[string]decimal.Decimal{draft.AssetSymbol: units.Neg()},
	}
}

func (f *sellFlow) Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error) {
	price := f.deps.unitPrice(draft.AssetSymbol)
	if !price.IsPositive() {
		return nil, quoteUnavailable()
	}

	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	gross := units.Mul(price)
	fee := f.deps.Fees.ComputeFee(gross, models.OperationSell)

	err := f.deps.Backend.CreateSellOrder(ctx, backend.OrderParams{
		AssetSymbol: draft.AssetSymbol,
		AssetAmount: units,
		UnitPrice:   price,
	})
	if err != nil {
		return nil, err
	}

	return &models.Receipt{
		OperationType:   models.OperationSell,
		AssetSymbol:     draft.AssetSymbol,
		AssetAmount:     units,
		SettlementValue: gross.Sub(fee),
		Fee:             fee,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// --- CONVERT ---

type convertFlow struct {
	deps Deps
}

func NewConvertFlow(deps Deps) Flow { return &convertFlow{deps: deps} }

func (f *convertFlow) Operation() models.OperationType { return models.OperationConvert }

func (f *convertFlow) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors {
	errs := f.deps.Validator.Validate(draft, holdings, displayCurrency)

	if draft.CounterAssetSymbol == "" {
		errs[validate.FieldAsset] = MsgSelectTargetAsset
	} else if draft.CounterAssetSymbol == draft.AssetSymbol {
		errs[validate.FieldAsset] = MsgSameAssetConversion
	}

	return errs
}

func (f *convertFlow) Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta {
	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	fromPrice := f.deps.unitPrice(draft.AssetSymbol)
	toPrice := f.deps.unitPrice(draft.CounterAssetSymbol)

	received := decimal.Zero
	if fromPrice.IsPositive() && toPrice.IsPositive() {
		rate := fromPrice.Div(toPrice)
		feeRate := f.deps.Fees.Rate(models.OperationConvert)
		received = units.Mul(rate).Mul(decimal.NewFromInt(1).Sub(feeRate))
	}

	return portfolio.Delta{
		Assets: map[string]decimal.Decimal{
			draft.AssetSymbol:        units.Neg(),
			draft.CounterAssetSymbol: received,
		},
	}
}

func (f *convertFlow) Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error) {
	fromPrice := f.deps.unitPrice(draft.AssetSymbol)
	toPrice := f.deps.unitPrice(draft.CounterAssetSymbol)
	if !fromPrice.IsPositive() || !toPrice.IsPositive() {
		return nil, quoteUnavailable()
	}

	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	rate := fromPrice.Div(toPrice)
	baseValue := units.Mul(fromPrice)
	fee := f.deps.Fees.ComputeFee(baseValue, models.OperationConvert)

	err := f.deps.Backend.CreateConversion(ctx, backend.ConversionParams{
		FromAsset:     draft.AssetSymbol,
		ToAsset:       draft.CounterAssetSymbol,
		Amount:        units,
		Rate:          rate,
		FromPriceBase: fromPrice,
		ToPriceBase:   toPrice,
	})
	if err != nil {
		return nil, err
	}

	return &models.Receipt{
		OperationType:   models.OperationConvert,
		AssetSymbol:     draft.AssetSymbol,
		CounterAsset:    draft.CounterAssetSymbol,
		AssetAmount:     units,
		SettlementValue: baseValue,
		Fee:             fee,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// --- TRANSFER ---

type transferFlow struct {
	deps Deps
}

func NewTransferFlow(deps Deps) Flow { return &transferFlow{deps: deps} }

func (f *transferFlow) Operation() models.OperationType { return models.OperationTransfer }

func (f *transferFlow) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors {
	errs := f.deps.Validator.Validate(draft, holdings, displayCurrency)

	if !recipient.ValidIdentifier(draft.Destination) {
		errs[validate.FieldDestination] = recipient.MsgInvalidIdentifier
	} else if f.deps.Recipients.Resolved(draft.Destination) == nil {
		// A transfer may not advance until the recipient resolved.
		errs[validate.FieldDestination] = MsgRecipientUnverified
	}

	return errs
}

func (f *transferFlow) Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta {
	units := f.deps.amountInAssetUnits(draft, displayCurrency)

	return portfolio.Delta{
		Fiat:   f.deps.Fees.ComputeFee(decimal.Zero, models.OperationTransfer).Neg(),
		Assets: map[string]decimal.Decimal{draft.AssetSymbol: units.Neg()},
	}
}

func (f *transferFlow) Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error) {
	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	if !units.IsPositive() {
		return nil, quoteUnavailable()
	}

	result, err := f.deps.Backend.CreateTransfer(ctx, backend.TransferParams{
		AssetSymbol: draft.AssetSymbol,
		Amount:      units,
		Destination: draft.Destination,
		Memo:        draft.Memo,
	})
	if err != nil {
		return nil, err
	}

	counterparty := result.RecipientName
	if counterparty == "" {
		if resolved := f.deps.Recipients.Resolved(draft.Destination); resolved != nil {
			counterparty = resolved.DisplayName
		}
	}

	return &models.Receipt{
		OperationType:   models.OperationTransfer,
		AssetSymbol:     draft.AssetSymbol,
		AssetAmount:     units,
		SettlementValue: f.deps.Converter.AssetUnitsToBase(units, draft.AssetSymbol),
		Fee:             f.deps.Fees.ComputeFee(decimal.Zero, models.OperationTransfer),
		Counterparty:    counterparty,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// --- WITHDRAW ---

type withdrawFlow struct {
	deps Deps

	mu           sync.Mutex
	withdrawalId string
	pendingFees  *models.FeeBreakdown
	amountBase   decimal.Decimal
}

func NewWithdrawFlow(deps Deps) Flow { return &withdrawFlow{deps: deps} }

// Compile-time check: withdrawals carry the fee-authorization step.
var _ FeeAuthorizer = (*withdrawFlow)(nil)

func (f *withdrawFlow) Operation() models.OperationType { return models.OperationWithdraw }

func (f *withdrawFlow) Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors {
	errs := f.deps.Validator.Validate(draft, holdings, displayCurrency)

	if draft.Destination == "" {
		errs[validate.FieldDestination] = MsgDestinationRequired
	}

	return errs
}

func (f *withdrawFlow) Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta {
	amountBase := f.deps.amountInBase(draft, displayCurrency)
	breakdown := f.deps.Fees.WithdrawalBreakdown(amountBase, draft.WithdrawalMethod)

	if draft.AssetSymbol == "" || draft.AssetSymbol == f.deps.BaseCurrency {
		return portfolio.Delta{Fiat: amountBase.Add(breakdown.Total).Neg()}
	}

	units := f.deps.amountInAssetUnits(draft, displayCurrency)
	return portfolio.Delta{
		Fiat:   breakdown.Total.Neg(),
		Assets: map[string]decimal.Decimal{draft.AssetSymbol: units.Neg()},
	}
}

// Submit creates the withdrawal in PENDING_PAYMENT and holds on to the
// backend's fee breakdown; the wizard then moves to fee authorization.
func (f *withdrawFlow) Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error) {
	amountBase := f.deps.amountInBase(draft, displayCurrency)

	currency := draft.AssetSymbol
	if currency == "" {
		currency = f.deps.BaseCurrency
	}

	result, err := f.deps.Backend.CreateWithdrawal(ctx, backend.WithdrawalParams{
		Amount:   amountBase,
		Currency: currency,
		Method:   draft.WithdrawalMethod,
		Address:  draft.Destination,
		Memo:     draft.Memo,
	})
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.withdrawalId = result.WithdrawalId
	f.pendingFees = &result.Fees
	f.amountBase = amountBase
	f.mu.Unlock()

	return nil, nil
}

// Authorize pays the fees for the pending withdrawal, moving it from
// PENDING_PAYMENT into processing.
func (f *withdrawFlow) Authorize(ctx context.Context, draft *models.TransactionDraft, paymentMethod string) (*models.Receipt, error) {
	f.mu.Lock()
	withdrawalId := f.withdrawalId
	pending := f.pendingFees
	amountBase := f.amountBase
	f.mu.Unlock()

	if withdrawalId == "" {
		return nil, fmt.Errorf("no withdrawal awaiting fee authorization")
	}

	if err := f.deps.Backend.AuthorizeWithdrawalFee(ctx, withdrawalId, paymentMethod); err != nil {
		return nil, err
	}

	fee := decimal.Zero
	if pending != nil {
		fee = pending.Total
	}

	return &models.Receipt{
		OperationType:   models.OperationWithdraw,
		AssetSymbol:     draft.AssetSymbol,
		AssetAmount:     draft.Amount,
		SettlementValue: amountBase,
		Fee:             fee,
		Counterparty:    draft.Destination,
		Reference:       withdrawalId,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// PendingFees returns the breakdown awaiting authorization, nil before Submit.
func (f *withdrawFlow) PendingFees() *models.FeeBreakdown {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingFees
}
