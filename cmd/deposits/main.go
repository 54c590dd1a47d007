package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/common"
	"trading-core-go/internal/config"
	"trading-core-go/internal/database"
	"trading-core-go/internal/models"
	"trading-core-go/internal/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Watches every open deposit payment session until it reaches a terminal
// status. Sessions created by the dashboard survive restarts because they are
// persisted; this tool re-attaches to all of them.
func main() {
	showCountdown := flag.Bool("countdown", false, "Print a countdown line for each session every tick")
	createAmount := flag.String("create", "", "Create a new deposit session for this fiat amount before watching")
	createAsset := flag.String("asset", "", "Asset to credit for a created session (empty: fiat balance)")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to open session store", zap.Error(err))
	}
	defer dbService.Close()

	platformClient, err := backend.NewClient(cfg.Platform)
	if err != nil {
		zap.L().Fatal("Failed to create platform client", zap.Error(err))
	}

	events := payment.Events{
		OnStatus: func(session *models.PaymentSession) {
			fmt.Printf("%s  %s -> %s\n",
				time.Now().Format("15:04:05"), session.SessionId, session.Status)
		},
		OnCompleted: func(session *models.PaymentSession) {
			fmt.Printf("Deposit completed: %s %s (%s)\n",
				session.FiatAmount.String(), session.Currency, session.SessionId)
		},
		OnFailed: func(session *models.PaymentSession) {
			fmt.Printf("Deposit %s: %s\n", session.Status, session.SessionId)
		},
	}
	if *showCountdown {
		events.OnTick = func(sessionId string, remaining time.Duration) {
			fmt.Printf("%s  %s expires in %s\n",
				time.Now().Format("15:04:05"), sessionId, remaining.Round(time.Second))
		}
	}

	manager := payment.NewManager(
		platformClient,
		dbService,
		events,
		cfg.Trading.MinDeposit,
		cfg.Trading.BaseCurrency,
		cfg.Timers.PaymentPollInterval,
		cfg.Timers.CountdownTick,
	)

	if *createAmount != "" {
		amount, err := decimal.NewFromString(*createAmount)
		if err != nil {
			zap.L().Fatal("Invalid deposit amount", zap.String("amount", *createAmount), zap.Error(err))
		}

		session, err := manager.Create(ctx, *createAsset, amount)
		if err != nil {
			zap.L().Fatal("Failed to create deposit session", zap.Error(err))
		}

		common.PrintHeader("DEPOSIT PAYMENT", common.DefaultWidth)
		fmt.Printf("%sSession:  %s\n", common.BoxPrefix(false), session.SessionId)
		fmt.Printf("%sAmount:   %s %s\n", common.BoxPrefix(false), session.FiatAmount.String(), session.Currency)
		fmt.Printf("%sPay to:   %s\n", common.BoxPrefix(false), session.PaymentAddress)
		fmt.Printf("%sExpires:  %s\n", common.BoxPrefix(true), session.ExpiresAt.Format("15:04:05"))
	}

	openSessions, err := dbService.ListOpenSessions(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list open sessions", zap.Error(err))
	}

	common.PrintHeader("PENDING DEPOSIT SESSIONS", common.DefaultWidth)
	if len(openSessions) == 0 {
		fmt.Println("No open sessions.")
	}
	for i, session := range openSessions {
		fmt.Printf("%s%s  %s %s  %s  expires %s\n",
			common.BoxPrefix(i == len(openSessions)-1),
			session.SessionId,
			session.FiatAmount.String(),
			session.Currency,
			session.Status,
			session.ExpiresAt.Format("15:04:05"))
	}
	common.PrintSeparator("=", common.DefaultWidth)

	if err := manager.Resume(ctx); err != nil {
		zap.L().Fatal("Failed to resume session watchers", zap.Error(err))
	}

	zap.L().Info("Watching deposit sessions",
		zap.Int("sessions", len(openSessions)),
		zap.Duration("poll_interval", cfg.Timers.PaymentPollInterval))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, detaching watchers")
	for _, session := range openSessions {
		manager.Detach(session.SessionId)
	}
}
