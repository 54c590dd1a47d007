package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("unable to open in-memory database: %v", err)
	}

	service := NewServiceWithDb(db)
	if err := service.InitSchema(); err != nil {
		t.Fatalf("unable to initialize schema: %v", err)
	}

	return service, func() { service.Close() }
}

func sampleReceipt(reference string, submittedAt time.Time) *models.Receipt {
	return &models.Receipt{
		OperationType:   models.OperationBuy,
		AssetSymbol:     "BTC",
		AssetAmount:     decimal.RequireFromString("0.002"),
		SettlementValue: decimal.RequireFromString("100"),
		Fee:             decimal.RequireFromString("1.5"),
		Reference:       reference,
		SubmittedAt:     submittedAt,
	}
}

func TestRecordAndGetReceipt(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	receipt := sampleReceipt("ord-1", time.Now().UTC())
	if err := service.RecordReceipt(ctx, receipt); err != nil {
		t.Fatalf("RecordReceipt failed: %v", err)
	}
	if receipt.Id == "" {
		t.Error("receipt id must be assigned on insert")
	}

	receipts, err := service.GetReceipts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetReceipts failed: %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("got %d receipts, want 1", len(receipts))
	}

	got := receipts[0]
	if got.OperationType != models.OperationBuy || got.AssetSymbol != "BTC" {
		t.Errorf("receipt = %+v", got)
	}
	if !got.AssetAmount.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("asset amount = %s, want 0.002", got.AssetAmount.String())
	}
	if !got.Fee.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("fee = %s, want 1.5", got.Fee.String())
	}
}

func TestDuplicateReferenceRejected(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	if err := service.RecordReceipt(ctx, sampleReceipt("wd-42", time.Now().UTC())); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := service.RecordReceipt(ctx, sampleReceipt("wd-42", time.Now().UTC()))
	if !errors.Is(err, store.ErrDuplicateReceipt) {
		t.Fatalf("got %v, want ErrDuplicateReceipt", err)
	}
}

func TestEmptyReferenceNotUnique(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	// Receipts without a backend reference must not collide with each other.
	for i := 0; i < 3; i++ {
		if err := service.RecordReceipt(ctx, sampleReceipt("", time.Now().UTC())); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	receipts, err := service.GetReceipts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetReceipts failed: %v", err)
	}
	if len(receipts) != 3 {
		t.Errorf("got %d receipts, want 3", len(receipts))
	}
}

func TestGetReceiptsNewestFirst(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, ref := range []string{"old", "mid", "new"} {
		r := sampleReceipt(ref, base.Add(time.Duration(i)*time.Minute))
		if err := service.RecordReceipt(ctx, r); err != nil {
			t.Fatalf("insert %s failed: %v", ref, err)
		}
	}

	receipts, err := service.GetReceipts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetReceipts failed: %v", err)
	}
	if len(receipts) != 3 {
		t.Fatalf("got %d receipts, want 3", len(receipts))
	}
	if receipts[0].Reference != "new" || receipts[2].Reference != "old" {
		t.Errorf("order = [%s %s %s], want newest first",
			receipts[0].Reference, receipts[1].Reference, receipts[2].Reference)
	}
}

func TestGetReceiptsPagination(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		r := sampleReceipt("", base.Add(time.Duration(i)*time.Minute))
		if err := service.RecordReceipt(ctx, r); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	page, err := service.GetReceipts(ctx, 2, 2)
	if err != nil {
		t.Fatalf("GetReceipts failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}
}
