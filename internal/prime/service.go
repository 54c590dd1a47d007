package prime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"trading-core-go/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Service is the custody-side payout rail: once a withdrawal has been
// authorized in the dashboard, an operator settles it on-chain through here.
type Service struct {
	client          client.RestClient
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService
}

func NewService(creds *credentials.Credentials) (*Service, error) {
	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		client:          restClient,
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			DualStack: true,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	response, err := s.portfoliosSvc.ListPortfolios(ctx, &portfolios.ListPortfoliosRequest{})
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	portfolioList := make([]models.Portfolio, len(response.Portfolios))
	for i, p := range response.Portfolios {
		portfolioList[i] = models.Portfolio{
			Id:   p.Id,
			Name: p.Name,
		}
	}

	return portfolioList, nil
}

func (s *Service) FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error) {
	portfolioList, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}

	for _, portfolio := range portfolioList {
		if portfolio.Name == "Default Portfolio" {
			return &portfolio, nil
		}
	}

	return nil, fmt.Errorf("default portfolio not found")
}

func (s *Service) ListWallets(ctx context.Context, portfolioId, walletType string, symbols []string) ([]models.Wallet, error) {
	request := &wallets.ListWalletsRequest{
		PortfolioId: portfolioId,
		Type:        walletType,
		Symbols:     symbols,
	}

	response, err := s.walletsSvc.ListWallets(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}

	walletList := make([]models.Wallet, len(response.Wallets))
	for i, w := range response.Wallets {
		walletList[i] = models.Wallet{
			Id:     w.Id,
			Name:   w.Name,
			Symbol: w.Symbol,
			Type:   w.Type,
		}
	}

	return walletList, nil
}

// FindWalletForAsset locates the trading wallet that holds a symbol.
func (s *Service) FindWalletForAsset(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error) {
	walletList, err := s.ListWallets(ctx, portfolioId, "TRADING", []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(walletList) == 0 {
		return nil, fmt.Errorf("no wallet found for asset %s", symbol)
	}
	return &walletList[0], nil
}

// CreateDepositAddress generates a receiving address on a wallet. Used when
// provisioning payment addresses for crypto-funded deposits.
func (s *Service) CreateDepositAddress(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error) {
	request := &wallets.CreateWalletAddressRequest{
		PortfolioId: portfolioId,
		WalletId:    walletId,
		NetworkId:   network,
	}

	response, err := s.walletsSvc.CreateWalletAddress(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to create wallet address: %w", err)
	}

	return &models.DepositAddress{
		Id:      response.AccountIdentifier,
		Address: response.Address,
		Network: network,
		Asset:   asset,
	}, nil
}

// AddressRail is the slice of the custody service needed to mint a receiving
// address for an asset.
type AddressRail interface {
	FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error)
	FindWalletForAsset(ctx context.Context, portfolioId, symbol string) (*models.Wallet, error)
	CreateDepositAddress(ctx context.Context, portfolioId, walletId, asset, network string) (*models.DepositAddress, error)
}

// ProvisionDepositAddress mints a receiving address on the trading wallet of
// the default portfolio. Asset is SYMBOL or SYMBOL-network-type, matching the
// payout asset format; without a network segment the wallet's default network
// is used.
func ProvisionDepositAddress(ctx context.Context, rail AddressRail, asset string) (*models.DepositAddress, error) {
	parts := strings.Split(asset, "-")
	symbol := parts[0]
	network := ""
	if len(parts) >= 2 {
		network = parts[1]
	}

	portfolio, err := rail.FindDefaultPortfolio(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := rail.FindWalletForAsset(ctx, portfolio.Id, symbol)
	if err != nil {
		return nil, err
	}

	address, err := rail.CreateDepositAddress(ctx, portfolio.Id, wallet.Id, symbol, network)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Provisioned deposit address",
		zap.String("asset", symbol),
		zap.String("network", network),
		zap.String("wallet_id", wallet.Id),
		zap.String("address", address.Address))
	return address, nil
}

// PayoutParams describes one authorized withdrawal to settle on-chain.
type PayoutParams struct {
	PortfolioId        string
	WalletId           string
	DestinationAddress string
	Amount             string
	// Asset is SYMBOL or SYMBOL-network-type, e.g. ETH-ethereum-mainnet.
	Asset          string
	IdempotencyKey string
}

// ExecutePayout sends an authorized withdrawal on-chain from a custody
// wallet. The idempotency key makes operator retries safe.
func (s *Service) ExecutePayout(ctx context.Context, params PayoutParams) (*models.Payout, error) {
	zap.L().Info("Executing payout via custody API",
		zap.String("portfolio_id", params.PortfolioId),
		zap.String("wallet_id", params.WalletId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount),
		zap.String("destination", params.DestinationAddress))

	parts := strings.Split(params.Asset, "-")
	symbol := parts[0]

	blockchainAddr := &model.BlockchainAddress{
		Address: params.DestinationAddress,
	}
	if len(parts) >= 3 {
		blockchainAddr.Network = &model.NetworkDetails{
			Id:   parts[1],
			Type: parts[2],
		}
	}

	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       params.PortfolioId,
		SourceWalletId:    params.WalletId,
		Amount:            params.Amount,
		IdempotencyKey:    params.IdempotencyKey,
		Symbol:            symbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddr,
	}

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to execute payout",
			zap.String("wallet_id", params.WalletId),
			zap.String("amount", params.Amount),
			zap.String("asset", params.Asset),
			zap.Error(err))
		return nil, fmt.Errorf("unable to execute payout: %w", err)
	}

	zap.L().Info("Payout executed",
		zap.String("activity_id", response.ActivityId),
		zap.String("wallet_id", params.WalletId),
		zap.String("amount", params.Amount),
		zap.String("asset", params.Asset))

	return &models.Payout{
		ActivityId:     response.ActivityId,
		Asset:          params.Asset,
		Amount:         params.Amount,
		Destination:    params.DestinationAddress,
		IdempotencyKey: params.IdempotencyKey,
	}, nil
}
