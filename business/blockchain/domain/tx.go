package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrReceiptNotFound is returned while a transaction is still pending.
var ErrReceiptNotFound = errors.New("blockchain: receipt not found")

// Contract is a deployed contract with its parsed interface.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// NewContract parses abiJSON and checks that every method in required exists.
func NewContract(name string, address common.Address, abiJSON string, required ...string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	for _, m := range required {
		if _, ok := parsed.Methods[m]; !ok {
			return nil, fmt.Errorf("%s abi has no method %q", name, m)
		}
	}
	return &Contract{Name: name, Address: address, ABI: parsed}, nil
}

// CallRequest is a state-changing contract call priced with a legacy gas price.
type CallRequest struct {
	Contract *Contract
	Method   string
	Args     []any
	GasPrice *big.Int
}

// PendingTx is a broadcast transaction awaiting inclusion.
type PendingTx struct {
	Hash     common.Hash
	From     common.Address
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	SentAt   time.Time
}

// TxReceipt is the inclusion record of a mined transaction.
type TxReceipt struct {
	Hash        common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
	GasUsed     uint64
	Succeeded   bool
}
