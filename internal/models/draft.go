package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType identifies the kind of transaction a draft represents.
type OperationType string

const (
	OperationBuy      OperationType = "BUY"
	OperationSell     OperationType = "SELL"
	OperationConvert  OperationType = "CONVERT"
	OperationTransfer OperationType = "TRANSFER"
	OperationWithdraw OperationType = "WITHDRAW"
	OperationDeposit  OperationType = "DEPOSIT"
)

// AmountDenomination says which unit Draft.Amount is expressed in.
type AmountDenomination string

const (
	DenominationAssetUnits      AmountDenomination = "ASSET_UNITS"
	DenominationDisplayCurrency AmountDenomination = "DISPLAY_CURRENCY"
)

// TransactionDraft is the in-progress, not-yet-submitted representation of a
// single transaction. It is owned by exactly one open wizard instance and is
// discarded when the wizard closes or completes.
type TransactionDraft struct {
	OperationType      OperationType
	AssetSymbol        string
	CounterAssetSymbol string // CONVERT only
	Amount             decimal.Decimal
	AmountDenomination AmountDenomination
	Destination        string // TRANSFER / WITHDRAW only
	WithdrawalMethod   string // WITHDRAW only, e.g. CRYPTO_BTC, BANK_TRANSFER
	Memo               string
}

// Submittable reports whether the draft carries a positive amount. Downstream
// validation still has to pass before submission.
func (d *TransactionDraft) Submittable() bool {
	return d.Amount.IsPositive()
}

// Receipt captures the outcome of a successfully submitted operation.
type Receipt struct {
	Id              string          `json:"id" db:"id"`
	OperationType   OperationType   `json:"operation_type" db:"operation_type"`
	AssetSymbol     string          `json:"asset_symbol" db:"asset_symbol"`
	CounterAsset    string          `json:"counter_asset,omitempty" db:"counter_asset"`
	AssetAmount     decimal.Decimal `json:"asset_amount" db:"asset_amount"`
	SettlementValue decimal.Decimal `json:"settlement_value" db:"settlement_value"`
	Fee             decimal.Decimal `json:"fee" db:"fee"`
	Counterparty    string          `json:"counterparty,omitempty" db:"counterparty"`
	Reference       string          `json:"reference,omitempty" db:"reference"`
	SubmittedAt     time.Time       `json:"submitted_at" db:"submitted_at"`
}
