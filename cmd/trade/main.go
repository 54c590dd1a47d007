package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/common"
	"trading-core-go/internal/config"
	"trading-core-go/internal/convert"
	"trading-core-go/internal/fees"
	"trading-core-go/internal/models"
	"trading-core-go/internal/portfolio"
	"trading-core-go/internal/pricefeed"
	"trading-core-go/internal/rates"
	"trading-core-go/internal/recipient"
	"trading-core-go/internal/validate"
	"trading-core-go/internal/wizard"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printFieldErrors(errs validate.FieldErrors) {
	fmt.Println()
	for field, msg := range errs {
		fmt.Printf("%s%s: %s\n", common.BoxPrefix(false), field, msg)
	}
}

func printFeeBreakdown(breakdown *models.FeeBreakdown, currency string) {
	common.PrintHeader("WITHDRAWAL FEES", common.DefaultWidth)
	for i, line := range breakdown.Lines {
		fmt.Printf("%s%-18s %12s %s\n",
			common.BoxPrefix(i == len(breakdown.Lines)-1),
			line.Label, line.Amount.String(), currency)
	}
	fmt.Printf("\nTotal: %s %s\n", breakdown.Total.String(), currency)
}

func printReceipt(receipt *models.Receipt, currency string) {
	common.PrintHeader(fmt.Sprintf("%s SUBMITTED", receipt.OperationType), common.DefaultWidth)
	fmt.Printf("%sAmount:  %s %s\n", common.BoxPrefix(false), receipt.AssetAmount.String(), receipt.AssetSymbol)
	if receipt.CounterAsset != "" {
		fmt.Printf("%sTo:      %s\n", common.BoxPrefix(false), receipt.CounterAsset)
	}
	if receipt.Counterparty != "" {
		fmt.Printf("%sTo:      %s\n", common.BoxPrefix(false), receipt.Counterparty)
	}
	if receipt.Reference != "" {
		fmt.Printf("%sRef:     %s\n", common.BoxPrefix(false), receipt.Reference)
	}
	fmt.Printf("%sValue:   %s %s\n", common.BoxPrefix(false), receipt.SettlementValue.String(), currency)
	fmt.Printf("%sFee:     %s %s\n", common.BoxPrefix(true), receipt.Fee.String(), currency)
}

// waitForQuote blocks until the feed's first refresh delivered a quote for the
// symbol, or gives up after a few poll intervals.
func waitForQuote(feed *pricefeed.Feed, symbol string) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := feed.Quote(symbol); ok {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	zap.L().Warn("No price quote received", zap.String("symbol", symbol))
}

func loadFeeSchedule(feesFile string) *fees.Schedule {
	schedule, err := fees.LoadSchedule(feesFile)
	if err != nil {
		zap.L().Warn("Falling back to the built-in fee schedule",
			zap.String("file", feesFile),
			zap.Error(err))
		return fees.DefaultSchedule()
	}
	return schedule
}

func main() {
	operation := flag.String("operation", "BUY", "Operation: BUY, SELL, CONVERT, TRANSFER, WITHDRAW")
	asset := flag.String("asset", "", "Asset symbol, e.g. BTC")
	counterAsset := flag.String("counter-asset", "", "Target asset for CONVERT")
	amountFlag := flag.String("amount", "", "Amount to transact")
	inUnits := flag.Bool("in-units", false, "Amount is in asset units instead of display currency")
	destination := flag.String("destination", "", "Recipient identifier or withdrawal address")
	method := flag.String("method", "", "Withdrawal method, e.g. CRYPTO_BTC, WIRE_TRANSFER")
	memo := flag.String("memo", "", "Optional memo")
	displayCurrency := flag.String("display-currency", "", "Currency amounts are entered in (default: base currency)")
	feePayment := flag.String("fee-payment", "BALANCE", "Payment method for withdrawal fees")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}

	op := models.OperationType(strings.ToUpper(*operation))
	currency := *displayCurrency
	if currency == "" {
		currency = cfg.Trading.BaseCurrency
	}

	symbols, err := common.LoadAssetSymbols(cfg.Trading.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load asset list", zap.Error(err))
	}

	platformClient, err := backend.NewClient(cfg.Platform)
	if err != nil {
		zap.L().Fatal("Failed to create platform client", zap.Error(err))
	}

	ctx := context.Background()

	feed := pricefeed.NewFeed(platformClient, symbols, cfg.Timers.QuoteRefreshInterval)
	feed.Start(ctx)
	defer feed.Stop()

	converter := convert.NewConverter(cfg.Trading.BaseCurrency, feed)
	if ratesClient, err := rates.NewClient(); err == nil {
		if table, err := ratesClient.Latest(ctx, cfg.Trading.BaseCurrency); err == nil {
			converter.SetRates(table)
		} else {
			zap.L().Warn("Exchange rates unavailable, display currencies limited to base", zap.Error(err))
		}
	}

	calculator := fees.NewCalculator(loadFeeSchedule(cfg.Trading.FeesFile))
	resolver := recipient.NewResolver(platformClient)

	tracker := portfolio.NewTracker(platformClient)
	if err := tracker.Refresh(ctx); err != nil {
		zap.L().Fatal("Failed to fetch holdings", zap.Error(err))
	}

	journal, closeJournal, err := common.InitializeReceiptJournal(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize receipt journal", zap.Error(err))
	}
	defer closeJournal()

	flow, err := wizard.ForOperation(op, wizard.Deps{
		Backend:      platformClient,
		Converter:    converter,
		Fees:         calculator,
		Validator:    validate.NewValidator(converter, calculator, cfg.Trading.BaseCurrency),
		Recipients:   resolver,
		BaseCurrency: cfg.Trading.BaseCurrency,
	})
	if err != nil {
		zap.L().Fatal("Unknown operation", zap.String("operation", *operation), zap.Error(err))
	}

	w := wizard.New(flow, tracker, journal, wizard.Options{
		EligibleAssets:  symbols,
		DisplayCurrency: currency,
	}, wizard.Callbacks{})

	selected := *asset
	if selected == "" && op == models.OperationWithdraw {
		// A fiat withdrawal debits the settlement balance directly.
		selected = cfg.Trading.BaseCurrency
	}
	if selected != "" && selected != cfg.Trading.BaseCurrency {
		waitForQuote(feed, selected)
	}

	w.SetAsset(selected)
	w.Continue()
	if w.State() != wizard.StateEnterDetails {
		printFieldErrors(w.Errors())
		os.Exit(1)
	}

	if op == models.OperationTransfer {
		result, err := resolver.Resolve(ctx, *destination)
		if err != nil {
			zap.L().Fatal("Recipient lookup failed",
				zap.String("destination", *destination),
				zap.Error(err))
		}
		fmt.Printf("Recipient: %s\n", result.DisplayName)
	}

	denomination := models.DenominationDisplayCurrency
	if *inUnits {
		denomination = models.DenominationAssetUnits
	}
	w.SetCounterAsset(*counterAsset)
	w.SetDestination(*destination)
	w.SetWithdrawalMethod(*method)
	w.SetMemo(*memo)
	w.SetAmount(amount, denomination)

	w.Continue()
	if w.State() != wizard.StateConfirm {
		printFieldErrors(w.Errors())
		os.Exit(1)
	}

	w.Confirm(ctx)

	if w.State() == wizard.StateFeeAuthorization {
		printFeeBreakdown(w.PendingFees(), cfg.Trading.BaseCurrency)
		w.Authorize(ctx, *feePayment)
	}

	if w.State() != wizard.StateSuccess {
		printFieldErrors(w.Errors())
		os.Exit(1)
	}

	printReceipt(w.Receipt(), cfg.Trading.BaseCurrency)
	w.Done()

	view := tracker.View()
	common.PrintFooter(
		fmt.Sprintf("Balance: %s %s", view.FiatBalance.String(), cfg.Trading.BaseCurrency),
		common.DefaultWidth)
}
