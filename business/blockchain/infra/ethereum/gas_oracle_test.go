package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

type stubGasClient struct {
	price *big.Int
	err   error
	calls int
}

func (s *stubGasClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	s.calls++
	return s.price, s.err
}

func TestGasOracle_FreshFetchEveryCall(t *testing.T) {
	client := &stubGasClient{price: big.NewInt(30_000_000_000)}
	oracle, err := NewGasOracle(client, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		price, err := oracle.GetGasPrice(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price.Gwei() != 30 {
			t.Errorf("expected 30 gwei, got %v", price.Gwei())
		}
	}

	if client.calls != 3 {
		t.Errorf("expected 3 RPC calls, got %d", client.calls)
	}
}

func TestGasOracle_Errors(t *testing.T) {
	client := &stubGasClient{err: errors.New("connection refused")}
	oracle, err := NewGasOracle(client, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	_, err = oracle.GetGasPrice(context.Background())
	if apperror.GetCode(err) != apperror.CodeGasPriceFetchFailed {
		t.Errorf("expected gas price fetch failure, got %v", err)
	}

	// Default breaker trips after five consecutive failures.
	for i := 0; i < 5; i++ {
		_, _ = oracle.GetGasPrice(context.Background())
	}
	_, err = oracle.GetGasPrice(context.Background())
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("expected open circuit, got %v", err)
	}
}

func TestGasOracle_RejectsEmptyPrice(t *testing.T) {
	oracle, err := NewGasOracle(&stubGasClient{price: big.NewInt(0)}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := oracle.GetGasPrice(context.Background()); apperror.GetCode(err) != apperror.CodeGasPriceFetchFailed {
		t.Errorf("expected gas price fetch failure, got %v", err)
	}
}
