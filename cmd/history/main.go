package main

import (
	"context"
	"flag"
	"fmt"

	"trading-core-go/internal/common"
	"trading-core-go/internal/config"
	"trading-core-go/internal/models"

	"go.uber.org/zap"
)

func printReceipt(receipt models.Receipt, isLast bool) {
	prefix := common.BoxPrefix(isLast)

	line := fmt.Sprintf("%-9s %12s %-5s", receipt.OperationType, receipt.AssetAmount.String(), receipt.AssetSymbol)
	if receipt.CounterAsset != "" {
		line += fmt.Sprintf(" -> %s", receipt.CounterAsset)
	}
	if receipt.Counterparty != "" {
		line += fmt.Sprintf(" to %s", receipt.Counterparty)
	}

	fmt.Printf("%s%s  (value %s, fee %s)  %s\n",
		prefix,
		line,
		receipt.SettlementValue.String(),
		receipt.Fee.String(),
		receipt.SubmittedAt.Format("2006-01-02 15:04:05"))
}

func main() {
	limit := flag.Int("limit", 20, "Maximum receipts to show")
	offset := flag.Int("offset", 0, "Receipts to skip")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	journal, closeJournal, err := common.InitializeReceiptJournal(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize receipt journal", zap.Error(err))
	}
	defer closeJournal()

	receipts, err := journal.GetReceipts(ctx, *limit, *offset)
	if err != nil {
		zap.L().Fatal("Failed to load receipts", zap.Error(err))
	}

	common.PrintHeader("TRANSACTION HISTORY", common.DefaultWidth)
	if len(receipts) == 0 {
		fmt.Println("No receipts recorded.")
	}
	for i, receipt := range receipts {
		printReceipt(receipt, i == len(receipts)-1)
	}
	common.PrintFooter(fmt.Sprintf("%d receipt(s)", len(receipts)), common.DefaultWidth)
}
