// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/carbon-oracle/business/blockchain/app"
	"github.com/fd1az/carbon-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("blockchain.ChainService")
)

// Private dependency tokens - internal to blockchain module
var (
	GasOracle  = di.NewToken[app.GasOracle]("blockchain:gasOracle")
	Transactor = di.NewToken[app.Transactor]("blockchain:transactor")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetTransactor(c di.ServiceRegistry) app.Transactor {
	return di.GetToken(c, Transactor)
}
