// Package app contains the oracle update pipeline: the transaction
// submitter, the per-domain orchestrator and the scheduler.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
)

// EstimateClient fetches and normalizes one estimate per call.
type EstimateClient interface {
	Estimate(ctx context.Context, a adapter.Adapter) (*domain.EstimateResult, error)
}

// ChainClient is the chain capability the submitter depends on.
type ChainClient interface {
	SuggestGasPrice(ctx context.Context) (*bcdomain.GasPrice, error)
	SendCall(ctx context.Context, req bcdomain.CallRequest) (*bcdomain.PendingTx, error)
	WaitMined(ctx context.Context, hash common.Hash) (*bcdomain.TxReceipt, error)
	Account() common.Address
}

// TransactionSubmitter turns a payload into a confirmed receipt.
type TransactionSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.Receipt, error)
}

// Runner executes oracle runs for one domain.
type Runner interface {
	Domain() domain.Domain
	Run(ctx context.Context, trigger domain.Trigger) domain.RunResult
}
