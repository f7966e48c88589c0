// Package blockchain implements the blockchain bounded context: gas pricing,
// signing and broadcasting oracle updates, and waiting for their receipts.
package blockchain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/carbon-oracle/business/blockchain/app"
	blockchainDI "github.com/fd1az/carbon-oracle/business/blockchain/di"
	"github.com/fd1az/carbon-oracle/business/blockchain/infra/ethereum"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
	"github.com/fd1az/carbon-oracle/internal/di"
	"github.com/fd1az/carbon-oracle/internal/logger"
	"github.com/fd1az/carbon-oracle/internal/monolith"
)

const chainProbeTimeout = 10 * time.Second

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		client := sr.Get("ethClient").(*ethclient.Client)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(client, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.Transactor, func(sr di.ServiceRegistry) app.Transactor {
		cfg := sr.Get("config").(*config.Config)
		client := sr.Get("ethClient").(*ethclient.Client)
		log := sr.Get("logger").(logger.LoggerInterface)

		signer, err := ethereum.NewLocalSigner(cfg.Chain.PrivateKeyHex())
		if err != nil {
			panic("failed to load signing key: " + err.Error())
		}

		txCfg := ethereum.DefaultTransactorConfig()
		txCfg.GasLimit = cfg.Chain.GasLimit
		if cfg.Chain.ChainID != 0 {
			txCfg.ChainID = new(big.Int).SetUint64(cfg.Chain.ChainID)
		}

		tr, err := ethereum.NewTransactor(client, signer, txCfg, log)
		if err != nil {
			panic("failed to create transactor: " + err.Error())
		}
		return tr
	})

	di.RegisterToken(c, blockchainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewChainService(
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetTransactor(sr),
			cfg.Chain.ReceiptPollInterval,
			log,
		)
	})

	return nil
}

// Startup probes the node so a bad RPC URL surfaces at boot. An unreachable
// node is logged, not fatal: every run reports its own connection errors.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := blockchainDI.GetChainService(mono.Services())

	probeCtx, cancel := context.WithTimeout(ctx, chainProbeTimeout)
	defer cancel()

	chainID, err := mono.EthClient().ChainID(probeCtx)
	if err != nil {
		log.Warn(ctx, "ethereum node not reachable",
			"error", apperror.New(apperror.CodeEthereumConnectionFailed, apperror.WithCause(err)))
	} else {
		log.Info(ctx, "connected to ethereum node", "chain_id", chainID.String())
	}

	client := mono.EthClient()
	mono.Health().RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		ctx, cancel := context.WithTimeout(ctx, chainProbeTimeout)
		defer cancel()
		if _, err := client.BlockNumber(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	log.Info(ctx, "blockchain module started", "account", svc.Account().Hex())
	return nil
}
