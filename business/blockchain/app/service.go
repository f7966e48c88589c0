package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

// maxReceiptErrors is the number of consecutive failed receipt lookups
// tolerated before WaitMined gives up.
const maxReceiptErrors = 3

// ChainService is the chain capability used by the oracle: gas price,
// broadcast and bounded wait for inclusion.
type ChainService struct {
	gasOracle    GasOracle
	transactor   Transactor
	pollInterval time.Duration
	logger       logger.LoggerInterface
}

// NewChainService creates a new ChainService.
func NewChainService(gasOracle GasOracle, transactor Transactor, pollInterval time.Duration, log logger.LoggerInterface) *ChainService {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &ChainService{
		gasOracle:    gasOracle,
		transactor:   transactor,
		pollInterval: pollInterval,
		logger:       log,
	}
}

// SuggestGasPrice retrieves the current gas price.
func (s *ChainService) SuggestGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// SendCall broadcasts a contract call.
func (s *ChainService) SendCall(ctx context.Context, req domain.CallRequest) (*domain.PendingTx, error) {
	return s.transactor.Send(ctx, req)
}

// Account returns the signing address.
func (s *ChainService) Account() common.Address {
	return s.transactor.From()
}

// WaitMined polls for the receipt of hash until it is found or ctx ends.
// A receipt with Succeeded=false is returned without error; callers decide
// how to treat a revert.
func (s *ChainService) WaitMined(ctx context.Context, hash common.Hash) (*domain.TxReceipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		receipt, err := s.transactor.Receipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, domain.ErrReceiptNotFound):
			failures = 0
			s.logger.Debug(ctx, "transaction pending", "tx_hash", hash.Hex())
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			failures++
			s.logger.Warn(ctx, "receipt lookup failed", "tx_hash", hash.Hex(), "attempt", failures, "error", err)
			if failures >= maxReceiptErrors {
				return nil, fmt.Errorf("receipt lookup for %s: %w", hash.Hex(), err)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
