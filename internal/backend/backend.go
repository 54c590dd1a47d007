package backend

import (
	"context"
	"errors"
	"fmt"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

// ErrRecipientNotFound is returned by ResolveRecipient when the identifier
// matches no account.
var ErrRecipientNotFound = errors.New("recipient not found")

// ServiceError is a transient backend failure (network error or non-2xx
// response). The message may come straight from the backend body; callers
// surfacing it to a user must apply a generic fallback when it is empty.
type ServiceError struct {
	StatusCode int // 0 when the request never got a response
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed (status %d)", e.StatusCode)
	}
	return e.Message
}

// UserMessage maps any error to a human-readable message, preferring the
// backend's own wording and falling back to the supplied generic text.
func UserMessage(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if errors.Is(err, ErrRecipientNotFound) {
		return "Recipient not found"
	}
	return fallback
}

// OrderParams carries a buy or sell order request.
type OrderParams struct {
	AssetSymbol string
	AssetAmount decimal.Decimal
	UnitPrice   decimal.Decimal
}

// ConversionParams carries an asset-to-asset conversion request.
type ConversionParams struct {
	FromAsset     string
	ToAsset       string
	Amount        decimal.Decimal
	Rate          decimal.Decimal
	FromPriceBase decimal.Decimal
	ToPriceBase   decimal.Decimal
}

// TransferParams carries a peer transfer request.
type TransferParams struct {
	AssetSymbol string
	Amount      decimal.Decimal
	Destination string
	Memo        string
}

// TransferResult is the backend's view of an executed transfer.
type TransferResult struct {
	RecipientName string
}

// WithdrawalParams carries a withdrawal request.
type WithdrawalParams struct {
	Amount   decimal.Decimal
	Currency string
	Method   string
	Address  string
	Memo     string
}

// WithdrawalResult is the created withdrawal awaiting fee authorization.
type WithdrawalResult struct {
	WithdrawalId string
	Fees         models.FeeBreakdown
}

// DepositParams carries a deposit payment creation request.
type DepositParams struct {
	Amount      decimal.Decimal
	Currency    string
	AssetSymbol string
}

// PriceEntry is one asset price in the base settlement currency.
type PriceEntry struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Service is the contract this core consumes from the ledger/payment backend.
// The backend owns execution and finality; this core only calls it and
// interprets responses.
type Service interface {
	CreateBuyOrder(ctx context.Context, params OrderParams) error
	CreateSellOrder(ctx context.Context, params OrderParams) error
	CreateConversion(ctx context.Context, params ConversionParams) error
	CreateTransfer(ctx context.Context, params TransferParams) (*TransferResult, error)
	CreateWithdrawal(ctx context.Context, params WithdrawalParams) (*WithdrawalResult, error)
	AuthorizeWithdrawalFee(ctx context.Context, withdrawalId, paymentMethod string) error
	CreateDepositPayment(ctx context.Context, params DepositParams) (*models.PaymentSession, error)
	GetDepositStatus(ctx context.Context, sessionId string) (models.PaymentStatus, error)
	CancelDeposit(ctx context.Context, sessionId string) error
	ResolveRecipient(ctx context.Context, identifier string) (*models.RecipientLookupResult, error)
	GetPrices(ctx context.Context, symbols []string) ([]PriceEntry, error)
	FetchHoldings(ctx context.Context) (*models.Holdings, error)
}
