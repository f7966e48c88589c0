// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/carbon-oracle/business/blockchain/domain"
)

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current network gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)
}

// Transactor signs and broadcasts contract calls from a single account.
type Transactor interface {
	// Send packs, signs and broadcasts req. Errors mean nothing reached the mempool.
	Send(ctx context.Context, req domain.CallRequest) (*domain.PendingTx, error)

	// Receipt returns domain.ErrReceiptNotFound while the transaction is pending.
	Receipt(ctx context.Context, hash common.Hash) (*domain.TxReceipt, error)

	// From returns the signing account.
	From() common.Address
}
