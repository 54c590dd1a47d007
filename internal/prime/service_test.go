package prime

import (
	"context"
	"errors"
	"testing"

	"trading-core-go/internal/models"
)

type fakeRail struct {
	findPortfolio func(ctx context.Context) (*models.Portfolio, error)
	findWallet    func(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error)
	createAddress func(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error)

	createCalls int
}

func (f *fakeRail) FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error) {
	return f.findPortfolio(ctx)
}

func (f *fakeRail) FindWalletForAsset(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error) {
	return f.findWallet(ctx, portfolioId, symbol)
}

func (f *fakeRail) CreateDepositAddress(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error) {
	f.createCalls++
	return f.createAddress(ctx, portfolioId, walletId, asset, network)
}

func newFakeRail() *fakeRail {
	return &fakeRail{
		findPortfolio: func(ctx context.Context) (*models.Portfolio, error) {
			return &models.Portfolio{Id: "pf-1", Name: "Default Portfolio"}, nil
		},
		findWallet: func(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error) {
			return &models.Wallet{Id: "w-" + symbol, Symbol: symbol, Type: "TRADING"}, nil
		},
		createAddress: func(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error) {
			return &models.DepositAddress{
				Id:      "acct-1",
				Address: "0xdeadbeef",
				Asset:   asset,
				Network: network,
			}, nil
		},
	}
}

func TestProvisionDepositAddressSplitsNetwork(t *testing.T) {
	rail := newFakeRail()
	var gotPortfolio, gotWallet, gotAsset, gotNetwork string
	inner := rail.createAddress
	rail.createAddress = func(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error) {
		gotPortfolio, gotWallet, gotAsset, gotNetwork = portfolioId, walletId, asset, network
		return inner(ctx, portfolioId, walletId, asset, network)
	}

	address, err := ProvisionDepositAddress(context.Background(), rail, "ETH-ethereum-mainnet")
	if err != nil {
		t.Fatalf("ProvisionDepositAddress failed: %v", err)
	}
	if gotPortfolio != "pf-1" || gotWallet != "w-ETH" {
		t.Errorf("routed to portfolio %q wallet %q, want pf-1/w-ETH", gotPortfolio, gotWallet)
	}
	if gotAsset != "ETH" || gotNetwork != "ethereum" {
		t.Errorf("asset/network = %q/%q, want ETH/ethereum", gotAsset, gotNetwork)
	}
	if address.Address != "0xdeadbeef" {
		t.Errorf("address = %q", address.Address)
	}
}

func TestProvisionDepositAddressPlainSymbol(t *testing.T) {
	rail := newFakeRail()
	var gotNetwork string
	inner := rail.createAddress
	rail.createAddress = func(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error) {
		gotNetwork = network
		return inner(ctx, portfolioId, walletId, asset, network)
	}

	if _, err := ProvisionDepositAddress(context.Background(), rail, "BTC"); err != nil {
		t.Fatalf("ProvisionDepositAddress failed: %v", err)
	}
	if gotNetwork != "" {
		t.Errorf("network = %q, want empty for a bare symbol", gotNetwork)
	}
}

func TestProvisionDepositAddressWalletLookupFailure(t *testing.T) {
	rail := newFakeRail()
	lookupErr := errors.New("no wallet found for asset SOL")
	rail.findWallet = func(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error) {
		return nil, lookupErr
	}

	_, err := ProvisionDepositAddress(context.Background(), rail, "SOL")
	if !errors.Is(err, lookupErr) {
		t.Fatalf("got %v, want the wallet lookup error", err)
	}
	if rail.createCalls != 0 {
		t.Errorf("create calls = %d, want 0 after a failed lookup", rail.createCalls)
	}
}
