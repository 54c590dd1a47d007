package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"trading-core-go/internal/database"
	"trading-core-go/internal/formance"
	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export or the
	// deployment environment, so a missing .env file is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env file")
	}
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeReceiptJournal selects the receipt journal backend from config:
// a Formance ledger when credentials are configured, SQLite otherwise.
func InitializeReceiptJournal(ctx context.Context, cfg *models.Config) (store.ReceiptJournal, func(), error) {
	if cfg.Formance.StackURL != "" {
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("Using Formance receipt journal",
			zap.String("ledger", cfg.Formance.LedgerName))
		return svc, svc.Close, nil
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("Using SQLite receipt journal", zap.String("path", cfg.Database.Path))
	return dbService, dbService.Close, nil
}

// LoadPayoutCredentials reads the custody API credentials used by the payout
// rails. Only the payout tool needs these; the dashboard core never does.
func LoadPayoutCredentials() (*credentials.Credentials, error) {
	accessKey := os.Getenv("PRIME_ACCESS_KEY")
	passphrase := os.Getenv("PRIME_PASSPHRASE")
	signingKey := os.Getenv("PRIME_SIGNING_KEY")

	if accessKey == "" || passphrase == "" || signingKey == "" {
		return nil, fmt.Errorf("missing required custody API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	return &credentials.Credentials{
		AccessKey:  accessKey,
		Passphrase: passphrase,
		SigningKey: signingKey,
	}, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
