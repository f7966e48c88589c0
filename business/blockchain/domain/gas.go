// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/fd1az/carbon-oracle/internal/asset"
)

// GasPrice is an observed legacy gas price.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei for display and metrics.
func (g *GasPrice) Gwei() float64 {
	return asset.NewAmount(asset.Gwei, g.Wei).ToFloat64()
}

// WithPremium returns ceil(wei * (100 + pct) / 100). The result is never below
// the observed price.
func (g *GasPrice) WithPremium(pct uint64) *big.Int {
	num := new(big.Int).Mul(g.Wei, new(big.Int).SetUint64(100+pct))
	hundred := big.NewInt(100)

	q, r := new(big.Int).QuoRem(num, hundred, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
