package database

import (
	"context"
	"database/sql"
	"fmt"

	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy both store contracts.
var (
	_ store.ReceiptJournal = (*Service)(nil)
	_ store.SessionStore   = (*Service)(nil)
)

// Service is the SQLite-backed receipt journal and session store.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := NewServiceWithDb(db)
	if err := service.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	return service, nil
}

// NewServiceWithDb wraps an already-open handle; used by tests with :memory:.
func NewServiceWithDb(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) InitSchema() error {
	schema := `
	-- Receipts Table (Audit Trail)
	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		operation_type TEXT NOT NULL,
		asset_symbol TEXT NOT NULL,
		counter_asset TEXT,
		asset_amount TEXT NOT NULL,
		settlement_value TEXT NOT NULL,
		fee TEXT NOT NULL,
		counterparty TEXT,
		reference TEXT,
		submitted_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_submitted_at ON receipts(submitted_at);
	CREATE INDEX IF NOT EXISTS idx_receipts_operation ON receipts(operation_type);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_receipts_reference ON receipts(reference) WHERE reference != '';

	-- Deposit Payment Sessions Table
	CREATE TABLE IF NOT EXISTS payment_sessions (
		session_id TEXT PRIMARY KEY,
		asset_symbol TEXT NOT NULL,
		currency TEXT NOT NULL,
		fiat_amount TEXT NOT NULL,
		payment_address TEXT NOT NULL,
		expected_asset_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payment_sessions_status ON payment_sessions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database", zap.Error(err))
	}
}
