package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordReceipt inserts one completed operation. A duplicate reference maps
// to store.ErrDuplicateReceipt so callers can treat retries as idempotent.
func (s *Service) RecordReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.Id == "" {
		receipt.Id = uuid.New().String()
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (
			id, operation_type, asset_symbol, counter_asset, asset_amount,
			settlement_value, fee, counterparty, reference, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.Id,
		string(receipt.OperationType),
		receipt.AssetSymbol,
		receipt.CounterAsset,
		receipt.AssetAmount.String(),
		receipt.SettlementValue.String(),
		receipt.Fee.String(),
		receipt.Counterparty,
		receipt.Reference,
		receipt.SubmittedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrDuplicateReceipt
		}
		return fmt.Errorf("unable to record receipt: %w", err)
	}

	zap.L().Info("Receipt recorded",
		zap.String("receipt_id", receipt.Id),
		zap.String("operation", string(receipt.OperationType)),
		zap.String("asset", receipt.AssetSymbol),
		zap.String("amount", receipt.AssetAmount.String()))

	return nil
}

// GetReceipts returns receipts newest-first.
func (s *Service) GetReceipts(ctx context.Context, limit, offset int) ([]models.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation_type, asset_symbol, counter_asset, asset_amount,
		       settlement_value, fee, counterparty, reference, submitted_at
		FROM receipts
		ORDER BY submitted_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var opType, assetAmount, settlementValue, fee string
		if err := rows.Scan(
			&r.Id, &opType, &r.AssetSymbol, &r.CounterAsset, &assetAmount,
			&settlementValue, &fee, &r.Counterparty, &r.Reference, &r.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("unable to scan receipt: %w", err)
		}

		r.OperationType = models.OperationType(opType)
		if r.AssetAmount, err = decimal.NewFromString(assetAmount); err != nil {
			return nil, fmt.Errorf("corrupt asset_amount for receipt %s: %w", r.Id, err)
		}
		if r.SettlementValue, err = decimal.NewFromString(settlementValue); err != nil {
			return nil, fmt.Errorf("corrupt settlement_value for receipt %s: %w", r.Id, err)
		}
		if r.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("corrupt fee for receipt %s: %w", r.Id, err)
		}

		receipts = append(receipts, r)
	}

	return receipts, rows.Err()
}
