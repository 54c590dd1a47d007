package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	quoteRefresh, err := getEnvDuration("QUOTE_REFRESH_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	feeDebounce, err := getEnvDuration("FEE_DEBOUNCE_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	paymentPoll, err := getEnvDuration("PAYMENT_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	countdownTick, err := getEnvDuration("COUNTDOWN_TICK", time.Second)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := getEnvDuration("PAYMENT_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("PLATFORM_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	minDeposit, err := getEnvDecimal("MIN_DEPOSIT", decimal.NewFromInt(10))
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "trading-core.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Platform: models.PlatformConfig{
			BaseURL:        getEnvString("PLATFORM_API_URL", "http://localhost:3000/api"),
			RequestTimeout: requestTimeout,
		},
		Timers: models.TimerConfig{
			QuoteRefreshInterval: quoteRefresh,
			FeeDebounceInterval:  feeDebounce,
			PaymentPollInterval:  paymentPoll,
			CountdownTick:        countdownTick,
			PaymentSessionTTL:    sessionTTL,
		},
		Trading: models.TradingConfig{
			BaseCurrency: getEnvString("BASE_CURRENCY", "USD"),
			MinDeposit:   minDeposit,
			AssetsFile:   getEnvString("ASSETS_FILE", "assets.yaml"),
			FeesFile:     getEnvString("FEES_FILE", "fees.yaml"),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "trading-core"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}
