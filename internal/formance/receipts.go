package formance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// numscriptReceipt journals one submitted operation. The posting moves the
// asset amount from the settlement account into a per-operation journal
// account; metadata carries the full receipt so the transaction is
// self-describing.
const numscriptReceipt = `vars {
  asset $asset
  number $amount
  account $operation
  string $receipt_id
  string $operation_type
  string $asset_symbol
  string $counter_asset
  string $settlement_value
  string $fee
  string $counterparty
}

send [$asset $amount] (
  source = @platform:settlement allowing unbounded overdraft
  destination = @journal:$operation
)

set_tx_meta("receipt_id", $receipt_id)
set_tx_meta("operation_type", $operation_type)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("counter_asset", $counter_asset)
set_tx_meta("settlement_value", $settlement_value)
set_tx_meta("fee", $fee)
set_tx_meta("counterparty", $counterparty)
`

// RecordReceipt journals one completed operation. A duplicate reference maps
// to store.ErrDuplicateReceipt, matching the SQLite journal's contract.
func (s *Service) RecordReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.Id == "" {
		receipt.Id = uuid.New().String()
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = time.Now().UTC()
	}

	reference := receipt.Reference
	if reference == "" {
		reference = receipt.Id
	}

	fAsset := formanceAsset(receipt.AssetSymbol)
	smallAmt := receipt.AssetAmount.Shift(int32(precisionFor(receipt.AssetSymbol))).BigInt().String()

	postTx := shared.V2PostTransaction{
		Reference: strPtr(reference),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptReceipt,
			Vars: map[string]string{
				"asset":            fAsset,
				"amount":           smallAmt,
				"operation":        strings.ToLower(string(receipt.OperationType)),
				"receipt_id":       receipt.Id,
				"operation_type":   string(receipt.OperationType),
				"asset_symbol":     receipt.AssetSymbol,
				"counter_asset":    receipt.CounterAsset,
				"settlement_value": receipt.SettlementValue.String(),
				"fee":              receipt.Fee.String(),
				"counterparty":     receipt.Counterparty,
			},
		},
		Timestamp: &receipt.SubmittedAt,
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: reference %s already journaled", store.ErrDuplicateReceipt, reference)
		}
		return fmt.Errorf("error journaling receipt: %w", err)
	}

	zap.L().Info("Receipt journaled in Formance",
		zap.String("receipt_id", receipt.Id),
		zap.String("operation", string(receipt.OperationType)),
		zap.String("asset", receipt.AssetSymbol),
		zap.String("amount", receipt.AssetAmount.String()))
	return nil
}

// GetReceipts returns journaled receipts newest-first, rebuilt from the
// transaction metadata.
func (s *Service) GetReceipts(ctx context.Context, limit, offset int) ([]models.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	pageSize := int64(limit + offset) // fetch enough to skip offset

	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: &pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list journaled receipts: %w", err)
	}

	var receipts []models.Receipt
	skipped := 0
	for _, tx := range resp.V2TransactionsCursorResponse.Cursor.Data {
		if tx.Metadata["receipt_id"] == "" {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}

		symbol := tx.Metadata["asset_symbol"]
		amount := decimal.Zero
		for _, p := range tx.Postings {
			if assetSymbol(p.Asset) == symbol {
				amount = bigIntToDecimal(p.Amount, symbol)
				break
			}
		}

		reference := ""
		if tx.Reference != nil {
			reference = *tx.Reference
		}

		settlement, err := decimal.NewFromString(tx.Metadata["settlement_value"])
		if err != nil {
			settlement = decimal.Zero
		}
		fee, err := decimal.NewFromString(tx.Metadata["fee"])
		if err != nil {
			fee = decimal.Zero
		}

		receipts = append(receipts, models.Receipt{
			Id:              tx.Metadata["receipt_id"],
			OperationType:   models.OperationType(tx.Metadata["operation_type"]),
			AssetSymbol:     symbol,
			CounterAsset:    tx.Metadata["counter_asset"],
			AssetAmount:     amount,
			SettlementValue: settlement,
			Fee:             fee,
			Counterparty:    tx.Metadata["counterparty"],
			Reference:       reference,
			SubmittedAt:     tx.Timestamp,
		})

		if len(receipts) >= limit {
			break
		}
	}

	return receipts, nil
}
