package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/carbon-oracle/business/blockchain/app"
	"github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

type mockTransactor struct {
	pendingPolls int32 // polls answered with not found before the receipt appears
	polls        atomic.Int32
	receipt      *domain.TxReceipt
	err          error
}

func (m *mockTransactor) Send(context.Context, domain.CallRequest) (*domain.PendingTx, error) {
	return nil, errors.New("not used")
}

func (m *mockTransactor) Receipt(context.Context, common.Hash) (*domain.TxReceipt, error) {
	n := m.polls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if n <= m.pendingPolls {
		return nil, domain.ErrReceiptNotFound
	}
	return m.receipt, nil
}

func (m *mockTransactor) From() common.Address { return common.HexToAddress("0xabc") }

func TestWaitMined_PollsUntilReceipt(t *testing.T) {
	tr := &mockTransactor{
		pendingPolls: 2,
		receipt:      &domain.TxReceipt{BlockNumber: 100, Succeeded: true},
	}
	svc := app.NewChainService(nil, tr, time.Millisecond, logger.Nop())

	r, err := svc.WaitMined(context.Background(), common.HexToHash("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BlockNumber != 100 {
		t.Errorf("unexpected block %d", r.BlockNumber)
	}
	if tr.polls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", tr.polls.Load())
	}
}

func TestWaitMined_DeadlineExceeded(t *testing.T) {
	tr := &mockTransactor{pendingPolls: 1 << 30}
	svc := app.NewChainService(nil, tr, time.Millisecond, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.WaitMined(ctx, common.HexToHash("0x1"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitMined_GivesUpAfterRepeatedLookupErrors(t *testing.T) {
	tr := &mockTransactor{err: errors.New("rpc unavailable")}
	svc := app.NewChainService(nil, tr, time.Millisecond, logger.Nop())

	_, err := svc.WaitMined(context.Background(), common.HexToHash("0x1"))
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if tr.polls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", tr.polls.Load())
	}
}

func TestWaitMined_ReturnsRevertedReceipt(t *testing.T) {
	tr := &mockTransactor{receipt: &domain.TxReceipt{BlockNumber: 7, Succeeded: false}}
	svc := app.NewChainService(nil, tr, time.Millisecond, logger.Nop())

	r, err := svc.WaitMined(context.Background(), common.HexToHash("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Succeeded {
		t.Error("expected reverted receipt to be passed through")
	}
}
