package app_test

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/infra/contracts"
	"github.com/fd1az/carbon-oracle/internal/config"
)

const electricityResponse = `{"data":{"id":"e1","type":"estimate","attributes":{
	"country":"us","state":"fl","electricity_unit":"mwh","electricity_value":"45.5",
	"estimated_at":"2026-03-01T11:59:58.000Z",
	"carbon_g":18051000,"carbon_lb":39796.03,"carbon_kg":18051,"carbon_mt":18.05}}}`

// mockChain is an in-memory chain: every call is mined in the next block
// unless configured otherwise.
type mockChain struct {
	mu sync.Mutex

	gasPrice *big.Int
	gasErr   error
	sendErr  error
	reverted bool
	hang     bool // WaitMined blocks until ctx ends

	nonce uint64
	block uint64
	sent  []bcdomain.CallRequest
}

func newMockChain() *mockChain {
	return &mockChain{gasPrice: big.NewInt(30_000_000_000), block: 1_000}
}

func (m *mockChain) SuggestGasPrice(context.Context) (*bcdomain.GasPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gasErr != nil {
		return nil, m.gasErr
	}
	return bcdomain.NewGasPrice(m.gasPrice), nil
}

func (m *mockChain) SendCall(_ context.Context, req bcdomain.CallRequest) (*bcdomain.PendingTx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, req)
	nonce := m.nonce
	m.nonce++
	return &bcdomain.PendingTx{
		Hash:     common.BigToHash(new(big.Int).SetUint64(nonce + 1)),
		From:     m.Account(),
		Nonce:    nonce,
		GasPrice: req.GasPrice,
		SentAt:   time.Now(),
	}, nil
}

func (m *mockChain) WaitMined(ctx context.Context, hash common.Hash) (*bcdomain.TxReceipt, error) {
	m.mu.Lock()
	hang, reverted := m.hang, m.reverted
	m.block++
	block := m.block
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &bcdomain.TxReceipt{
		Hash:        hash,
		BlockNumber: block,
		BlockHash:   common.HexToHash("0xb10c"),
		GasUsed:     84_000,
		Succeeded:   !reverted,
	}, nil
}

func (m *mockChain) Account() common.Address {
	return common.HexToAddress("0x000000000000000000000000000000000000a11c")
}

func (m *mockChain) sentCalls() []bcdomain.CallRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bcdomain.CallRequest(nil), m.sent...)
}

// stubEstimator normalizes a canned body through the real adapter.
type stubEstimator struct {
	mu      sync.Mutex
	body    string
	err     error
	gate    chan struct{} // when set, Estimate waits for it to close
	entered chan struct{} // when set, receives once per call on entry
	calls   int
}

func (s *stubEstimator) Estimate(ctx context.Context, a adapter.Adapter) (*domain.EstimateResult, error) {
	s.mu.Lock()
	s.calls++
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return a.NormalizeResponse([]byte(s.body), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func (s *stubEstimator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func electricityAdapter() adapter.Adapter {
	return adapter.NewElectricity(config.ElectricityConfig{MWh: "45.5", Country: "us", State: "fl"})
}

func electricityContract() *bcdomain.Contract {
	c, err := contracts.Bind(domain.Electricity, adapter.MethodUpdateElectricity, config.ContractConfig{
		Address: "0x00000000000000000000000000000000000e1ec7",
	})
	if err != nil {
		panic(err)
	}
	return c
}
