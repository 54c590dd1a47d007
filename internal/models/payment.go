package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the backend-reported state of a deposit payment session.
// The polled status is always authoritative; the visible countdown is not.
type PaymentStatus string

const (
	PaymentCreating   PaymentStatus = "CREATING"
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentExpired    PaymentStatus = "EXPIRED"
)

// Terminal reports whether no further automatic transition can occur.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentExpired
}

// PaymentSession is one deposit attempt: an external payment request with an
// address, an expected amount, and an expiry. Created once per attempt and
// mutated only by polling responses or an explicit cancel.
type PaymentSession struct {
	SessionId           string          `json:"session_id" db:"session_id"`
	AssetSymbol         string          `json:"asset_symbol" db:"asset_symbol"`
	Currency            string          `json:"currency" db:"currency"`
	FiatAmount          decimal.Decimal `json:"fiat_amount" db:"fiat_amount"`
	PaymentAddress      string          `json:"payment_address" db:"payment_address"`
	ExpectedAssetAmount decimal.Decimal `json:"expected_asset_amount" db:"expected_asset_amount"`
	Status              PaymentStatus   `json:"status" db:"status"`
	ExpiresAt           time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}
