package models

import "github.com/shopspring/decimal"

// FeeLine is one named component of a fee breakdown.
type FeeLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeBreakdown is an ordered list of fee components plus their sum. The order
// of Lines is a display contract: confirmation and fee-authorization steps
// render it as-is.
type FeeBreakdown struct {
	Lines []FeeLine       `json:"lines"`
	Total decimal.Decimal `json:"total"`
}
