package models

// Portfolio is a custody portfolio on the payout provider.
type Portfolio struct {
	Id   string
	Name string
}

// Wallet is a custody wallet holding one asset.
type Wallet struct {
	Id     string
	Name   string
	Symbol string
	Type   string
}

// DepositAddress is a provider-generated address for receiving an asset.
type DepositAddress struct {
	Id      string
	Address string
	Network string
	Asset   string
}

// Payout is an on-chain withdrawal executed through the custody provider.
type Payout struct {
	ActivityId     string
	Asset          string
	Amount         string
	Destination    string
	IdempotencyKey string
}
