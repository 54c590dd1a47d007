package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Platform PlatformConfig
	Timers   TimerConfig
	Trading  TradingConfig
	Formance FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// PlatformConfig holds the platform backend API settings.
type PlatformConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// TimerConfig holds every periodic interval the core runs. All of them are
// externally supplied constants, never computed.
type TimerConfig struct {
	QuoteRefreshInterval time.Duration // price feed refresh, 5s typical
	FeeDebounceInterval  time.Duration // fee re-estimation debounce for the host UI
	PaymentPollInterval  time.Duration // deposit status poll, fixed 10s
	CountdownTick        time.Duration // payment countdown display tick, 1s
	PaymentSessionTTL    time.Duration // deposit expiry window, 30m
}

// TradingConfig holds trading constants supplied by the environment.
type TradingConfig struct {
	BaseCurrency string
	MinDeposit   decimal.Decimal
	AssetsFile   string
	FeesFile     string
}

// FormanceConfig holds Formance Stack connection settings for the optional
// receipt journal backend.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
