package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"trading-core-go/internal/common"
	"trading-core-go/internal/prime"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type payoutRequest struct {
	asset       string
	amount      decimal.Decimal
	destination string
	reference   string
	provision   bool
}

func parseAndValidateFlags() (*payoutRequest, error) {
	assetFlag := flag.String("asset", "", "Asset symbol, optionally with network (e.g. BTC or ETH-ethereum-mainnet) (required)")
	amountFlag := flag.String("amount", "", "Amount to pay out (required)")
	destinationFlag := flag.String("destination", "", "Destination address (required)")
	referenceFlag := flag.String("reference", "", "Withdrawal reference for idempotency (optional)")
	provisionFlag := flag.Bool("provision-address", false, "Mint a receiving address for --asset instead of paying out")
	flag.Parse()

	if *provisionFlag {
		if *assetFlag == "" {
			return nil, fmt.Errorf("required flag with --provision-address: --asset")
		}
		return &payoutRequest{asset: *assetFlag, provision: true}, nil
	}

	if *assetFlag == "" || *amountFlag == "" || *destinationFlag == "" {
		return nil, fmt.Errorf("required flags: --asset, --amount, --destination")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &payoutRequest{
		asset:       *assetFlag,
		amount:      amount,
		destination: *destinationFlag,
		reference:   *referenceFlag,
	}, nil
}

// idempotencyKey derives a stable key from the withdrawal reference so an
// operator retry of the same reference cannot double-send; without a
// reference each run is a fresh payout.
func idempotencyKey(reference string) string {
	if reference == "" {
		return uuid.New().String()
	}
	refSegments := strings.Split(reference, "-")
	uuidSegments := strings.Split(uuid.NewSHA1(uuid.NameSpaceOID, []byte(reference)).String(), "-")
	return refSegments[0] + "-" + strings.Join(uuidSegments[1:], "-")
}

func printPayoutSummary(req *payoutRequest, walletId string) {
	symbol := strings.SplitN(req.asset, "-", 2)[0]

	common.PrintHeader("PAYOUT REQUEST", common.DefaultWidth)
	fmt.Printf("Asset:       %s\n", req.asset)
	fmt.Printf("Amount:      %s %s\n", req.amount.String(), symbol)
	fmt.Printf("Destination: %s\n", req.destination)
	fmt.Printf("Wallet:      %s\n", walletId)
	if req.reference != "" {
		fmt.Printf("Reference:   %s\n", req.reference)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

// provisionAddress mints a receiving address on the custody wallet for an
// asset and prints it. Used to set up crypto-funded deposit rails before any
// payment session references the address.
func provisionAddress(ctx context.Context, asset string) {
	creds, err := common.LoadPayoutCredentials()
	if err != nil {
		zap.L().Fatal("Failed to load payout credentials", zap.Error(err))
	}

	custodyService, err := prime.NewService(creds)
	if err != nil {
		zap.L().Fatal("Failed to initialize custody service", zap.Error(err))
	}

	address, err := prime.ProvisionDepositAddress(ctx, custodyService, asset)
	if err != nil {
		zap.L().Fatal("Failed to provision deposit address",
			zap.String("asset", asset),
			zap.Error(err))
	}

	common.PrintHeader("DEPOSIT ADDRESS", common.DefaultWidth)
	fmt.Printf("%sAsset:    %s\n", common.BoxPrefix(false), address.Asset)
	if address.Network != "" {
		fmt.Printf("%sNetwork:  %s\n", common.BoxPrefix(false), address.Network)
	}
	if address.Id != "" && address.Id != address.Address {
		fmt.Printf("%sAccount:  %s\n", common.BoxPrefix(false), address.Id)
	}
	fmt.Printf("%sAddress:  %s\n", common.BoxPrefix(true), address.Address)
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	if req.provision {
		provisionAddress(ctx, req.asset)
		return
	}

	zap.L().Info("Starting payout",
		zap.String("asset", req.asset),
		zap.String("amount", req.amount.String()),
		zap.String("destination", req.destination))

	creds, err := common.LoadPayoutCredentials()
	if err != nil {
		zap.L().Fatal("Failed to load payout credentials", zap.Error(err))
	}

	payoutService, err := prime.NewService(creds)
	if err != nil {
		zap.L().Fatal("Failed to initialize payout service", zap.Error(err))
	}

	portfolio, err := payoutService.FindDefaultPortfolio(ctx)
	if err != nil {
		zap.L().Fatal("Failed to find default portfolio", zap.Error(err))
	}

	symbol := strings.SplitN(req.asset, "-", 2)[0]
	wallet, err := payoutService.FindWalletForAsset(ctx, portfolio.Id, symbol)
	if err != nil {
		zap.L().Fatal("Failed to find wallet for asset",
			zap.String("asset", symbol),
			zap.Error(err))
	}

	printPayoutSummary(req, wallet.Id)

	payout, err := payoutService.ExecutePayout(ctx, prime.PayoutParams{
		PortfolioId:        portfolio.Id,
		WalletId:           wallet.Id,
		DestinationAddress: req.destination,
		Amount:             req.amount.String(),
		Asset:              req.asset,
		IdempotencyKey:     idempotencyKey(req.reference),
	})
	if err != nil {
		common.PrintHeader("PAYOUT FAILED", common.DefaultWidth)
		fmt.Printf("Error: %v\n", err)
		common.PrintSeparator("=", common.DefaultWidth)
		zap.L().Fatal("Payout failed", zap.Error(err))
	}

	fmt.Println("Payout submitted")
	fmt.Printf("   Activity ID: %s\n", payout.ActivityId)
	fmt.Printf("   Amount:      %s %s\n", payout.Amount, symbol)
	fmt.Printf("   Destination: %s\n\n", payout.Destination)

	zap.L().Info("Payout completed",
		zap.String("activity_id", payout.ActivityId),
		zap.String("asset", symbol),
		zap.String("amount", payout.Amount))
}
