package app_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/fd1az/carbon-oracle/business/oracle/app"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

func newOrchestrator(t *testing.T, est app.EstimateClient, chain app.ChainClient) *app.Orchestrator {
	t.Helper()
	o, err := app.NewOrchestrator(electricityAdapter(), electricityContract(), est, newSubmitter(t, chain, 0), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOrchestrator_Success(t *testing.T) {
	chain := newMockChain()
	o := newOrchestrator(t, &stubEstimator{body: electricityResponse}, chain)

	res := o.Run(context.Background(), domain.TriggerManual)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Receipt.BlockNumber == 0 || res.Receipt.TransactionHash == "" {
		t.Errorf("incomplete receipt %+v", res.Receipt)
	}
	if res.JobID == "" || res.Domain != domain.Electricity {
		t.Errorf("unexpected result identity %q %q", res.JobID, res.Domain)
	}

	sent := chain.sentCalls()
	if len(sent) != 1 {
		t.Fatalf("expected one submission, got %d", len(sent))
	}
	args := sent[0].Args
	wantMWh, _ := new(big.Int).SetString("45500000000000000000", 10)
	if args[0].(*big.Int).Int64() != 18051 || args[1].(*big.Int).Cmp(wantMWh) != 0 {
		t.Errorf("unexpected amounts %v %v", args[0], args[1])
	}
	if args[2] != "us" || args[3] != "fl" || args[4] != res.Data.Metadata {
		t.Errorf("unexpected args %v", args[2:])
	}

	st := o.Status()
	if st.State != domain.StateIdle || st.LastRun == nil || st.LastRun.State != domain.StateSucceeded {
		t.Errorf("unexpected status %+v", st)
	}
	if st.LastRun.TxHash != res.Receipt.TransactionHash {
		t.Error("status must record the tx hash")
	}
}

func TestOrchestrator_ApiErrorSkipsChain(t *testing.T) {
	chain := newMockChain()
	apiErr := apperror.New(apperror.CodeAPIError, apperror.WithUpstream(500, "boom"))
	o := newOrchestrator(t, &stubEstimator{err: apiErr}, chain)

	res := o.Run(context.Background(), domain.TriggerSchedule)
	if res.Success {
		t.Fatal("expected failure")
	}
	if apperror.GetCode(res.Err) != apperror.CodeAPIError {
		t.Errorf("expected api error, got %v", res.Err)
	}
	if len(chain.sentCalls()) != 0 {
		t.Error("no transaction may be sent when the estimate fails")
	}

	st := o.Status()
	if st.Failures != 1 || st.LastRun.ErrorCode != string(apperror.CodeAPIError) {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	chain := newMockChain()
	est := &stubEstimator{
		body:    electricityResponse,
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	o := newOrchestrator(t, est, chain)

	first := make(chan domain.RunResult, 1)
	go func() { first <- o.Run(context.Background(), domain.TriggerSchedule) }()

	<-est.entered
	if got := o.Status().State; got != domain.StateFetching {
		t.Errorf("expected fetching, got %s", got)
	}

	second := o.Run(context.Background(), domain.TriggerManual)
	if second.Success || !apperror.HasCode(second.Err, apperror.CodeBusy) {
		t.Fatalf("expected busy, got %+v", second)
	}

	close(est.gate)
	if res := <-first; !res.Success {
		t.Fatalf("first run failed: %v", res.Err)
	}

	if n := len(chain.sentCalls()); n != 1 {
		t.Errorf("expected exactly one submission, got %d", n)
	}
	if est.callCount() != 1 {
		t.Errorf("busy run must not fetch, got %d fetches", est.callCount())
	}
	if o.Status().Rejections != 1 {
		t.Error("busy rejection not counted")
	}

	// The guard is released after a terminal state.
	if res := o.Run(context.Background(), domain.TriggerManual); !res.Success {
		t.Errorf("expected guard release, got %v", res.Err)
	}
}

func TestOrchestrator_ConcurrentCallsSubmitOnce(t *testing.T) {
	chain := newMockChain()
	est := &stubEstimator{body: electricityResponse, gate: make(chan struct{})}
	o := newOrchestrator(t, est, chain)

	const callers = 10
	results := make(chan domain.RunResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- o.Run(context.Background(), domain.TriggerManual)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(est.gate)
	wg.Wait()
	close(results)

	succeeded, busy := 0, 0
	for r := range results {
		switch {
		case r.Success:
			succeeded++
		case apperror.HasCode(r.Err, apperror.CodeBusy):
			busy++
		default:
			t.Errorf("unexpected failure %v", r.Err)
		}
	}
	if len(chain.sentCalls()) != succeeded {
		t.Errorf("submissions (%d) must equal successes (%d)", len(chain.sentCalls()), succeeded)
	}
	if succeeded+busy != callers || succeeded == 0 {
		t.Errorf("succeeded=%d busy=%d", succeeded, busy)
	}
}

func TestOrchestrator_DomainsAreIndependent(t *testing.T) {
	chain := newMockChain()
	gate := make(chan struct{})
	estA := &stubEstimator{body: electricityResponse, gate: gate, entered: make(chan struct{}, 1)}
	estB := &stubEstimator{body: electricityResponse, gate: gate, entered: make(chan struct{}, 1)}
	a := newOrchestrator(t, estA, chain)
	b := newOrchestrator(t, estB, chain)

	done := make(chan domain.RunResult, 2)
	go func() { done <- a.Run(context.Background(), domain.TriggerManual) }()
	go func() { done <- b.Run(context.Background(), domain.TriggerManual) }()

	// Both runs reach the fetch stage at the same time.
	<-estA.entered
	<-estB.entered
	close(gate)

	for i := 0; i < 2; i++ {
		if r := <-done; !r.Success {
			t.Errorf("run failed: %v", r.Err)
		}
	}
}

func TestOrchestrator_SubmitFailureIsReported(t *testing.T) {
	chain := newMockChain()
	chain.reverted = true
	o := newOrchestrator(t, &stubEstimator{body: electricityResponse}, chain)

	res := o.Run(context.Background(), domain.TriggerManual)
	var appErr *apperror.AppError
	if !errors.As(res.Err, &appErr) || appErr.Code != apperror.CodeConfirmationFailed {
		t.Fatalf("expected confirmation failure, got %v", res.Err)
	}
	if o.Status().LastRun.TxHash == "" {
		t.Error("failed run after broadcast must keep the tx hash")
	}
}
