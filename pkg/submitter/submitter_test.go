package submitter

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daopoll/pollnode/pkg/queue"
	"github.com/ethereum/go-ethereum/common"
)

type nopMessager struct{}

func (m *nopMessager) Notify(ctx context.Context, message string) error   { return nil }
func (m *nopMessager) NotifyWarning(ctx context.Context, err error) error { return nil }
func (m *nopMessager) NotifyError(ctx context.Context, err error) error   { return nil }

type mockClient struct {
	connected bool

	executeCalls int32
	executeHash  common.Hash
	executeErr   error

	waitResult *OpResult
	waitErr    error
	waitBlocks bool
}

func (c *mockClient) Connected() bool {
	return c.connected
}

func (c *mockClient) Execute(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	atomic.AddInt32(&c.executeCalls, 1)

	if c.executeErr != nil {
		return common.Hash{}, c.executeErr
	}

	return c.executeHash, nil
}

func (c *mockClient) WaitForUserOpResult(ctx context.Context, userOpHash common.Hash) (*OpResult, error) {
	if c.waitBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if c.waitErr != nil {
		return nil, c.waitErr
	}

	return c.waitResult, nil
}

func newTestSubmitter(t *testing.T, client Client, submitTimeout, finalizeTimeout time.Duration) *Submitter {
	t.Helper()

	q := queue.NewService("ops", 0, 10, context.Background(), &nopMessager{})

	s := New(client, q, submitTimeout, finalizeTimeout)

	go q.Start(s.Processor())
	t.Cleanup(q.Close)

	return s
}

func TestSubmitWalletNotConnected(t *testing.T) {
	client := &mockClient{connected: false}
	s := newTestSubmitter(t, client, 0, 0)

	res, err := s.Submit(context.Background(), Call{Name: "createPoll"})
	if !errors.Is(err, ErrWalletNotConnected) {
		t.Fatalf("expected ErrWalletNotConnected, got %v", err)
	}

	if res.State != StateFailed {
		t.Fatalf("expected %s, got %s", StateFailed, res.State)
	}

	if atomic.LoadInt32(&client.executeCalls) != 0 {
		t.Fatal("expected no submission attempt without a connected wallet")
	}
}

func TestSubmitSucceeded(t *testing.T) {
	opHash := common.HexToHash("0x01")
	txHash := common.HexToHash("0x02")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitResult:  &OpResult{UserOpHash: opHash, TxHash: txHash, Success: true},
	}
	s := newTestSubmitter(t, client, 0, 0)

	res, err := s.Submit(context.Background(), Call{Name: "submitResponse"})
	if err != nil {
		t.Fatal(err)
	}

	if res.State != StateSucceeded {
		t.Fatalf("expected %s, got %s", StateSucceeded, res.State)
	}

	if res.UserOpHash != opHash.Hex() {
		t.Fatalf("expected %s, got %s", opHash.Hex(), res.UserOpHash)
	}

	if res.TxHash != txHash.Hex() {
		t.Fatalf("expected %s, got %s", txHash.Hex(), res.TxHash)
	}
}

func TestSubmitInclusionWithoutSuccess(t *testing.T) {
	opHash := common.HexToHash("0x01")
	txHash := common.HexToHash("0x02")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitResult:  &OpResult{UserOpHash: opHash, TxHash: txHash, Success: false},
	}
	s := newTestSubmitter(t, client, 0, 0)

	// inclusion alone is not success, the outcome stays unconfirmed
	res, err := s.Submit(context.Background(), Call{Name: "fundPoll"})
	if err != nil {
		t.Fatal(err)
	}

	if res.State != StateUnconfirmed {
		t.Fatalf("expected %s, got %s", StateUnconfirmed, res.State)
	}

	if res.TxHash != txHash.Hex() {
		t.Fatalf("expected %s, got %s", txHash.Hex(), res.TxHash)
	}
}

func TestSubmitRejected(t *testing.T) {
	client := &mockClient{
		connected:  true,
		executeErr: errors.New("replacement underpriced"),
	}
	s := newTestSubmitter(t, client, 0, 0)

	res, err := s.Submit(context.Background(), Call{Name: "createPoll"})
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}

	if res.State != StateFailed {
		t.Fatalf("expected %s, got %s", StateFailed, res.State)
	}

	// a rejected submission is never retried
	if atomic.LoadInt32(&client.executeCalls) != 1 {
		t.Fatalf("expected 1 submission attempt, got %d", atomic.LoadInt32(&client.executeCalls))
	}
}

func TestSubmitReverted(t *testing.T) {
	opHash := common.HexToHash("0x01")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitResult:  &OpResult{UserOpHash: opHash, Success: false},
	}
	s := newTestSubmitter(t, client, 0, 0)

	res, err := s.Submit(context.Background(), Call{Name: "claimReward"})
	if !errors.Is(err, ErrOperationReverted) {
		t.Fatalf("expected ErrOperationReverted, got %v", err)
	}

	if res.State != StateFailed {
		t.Fatalf("expected %s, got %s", StateFailed, res.State)
	}
}

func TestSubmitFinalizationTimeout(t *testing.T) {
	opHash := common.HexToHash("0x01")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitBlocks:  true,
	}
	s := newTestSubmitter(t, client, time.Second, 50*time.Millisecond)

	res, err := s.Submit(context.Background(), Call{Name: "submitResponse"})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}

	// the operation may still land, the hash must be surfaced
	if res.State != StateUnconfirmed {
		t.Fatalf("expected %s, got %s", StateUnconfirmed, res.State)
	}

	if res.UserOpHash != opHash.Hex() {
		t.Fatalf("expected %s, got %s", opHash.Hex(), res.UserOpHash)
	}
}

func TestEvictOldestTerminalOperation(t *testing.T) {
	opHash := common.HexToHash("0x01")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitResult:  &OpResult{UserOpHash: opHash, TxHash: common.HexToHash("0x02"), Success: true},
	}
	s := newTestSubmitter(t, client, 0, 0)
	s.maxTracked = 2

	first, err := s.Submit(context.Background(), Call{Name: "createPoll"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.Submit(context.Background(), Call{Name: "submitResponse"})
	if err != nil {
		t.Fatal(err)
	}

	third, err := s.Submit(context.Background(), Call{Name: "claimReward"})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(first.ID); ok {
		t.Fatal("expected the oldest terminal operation to be evicted")
	}

	if _, ok := s.Get(second.ID); !ok {
		t.Fatal("expected the second operation to still be tracked")
	}

	if _, ok := s.Get(third.ID); !ok {
		t.Fatal("expected the newest operation to still be tracked")
	}
}

func TestInFlightOperationsNotEvicted(t *testing.T) {
	s := New(&mockClient{connected: true}, nil, 0, 0)
	s.maxTracked = 1

	inFlight := &Operation{ID: "in-flight", state: StatePendingFinalization}
	s.track(inFlight)

	done := &Operation{ID: "done", state: StateSucceeded}
	s.track(done)

	// the cap is exceeded but only the terminal operation may go
	if _, ok := s.Get("in-flight"); !ok {
		t.Fatal("expected the in-flight operation to survive eviction")
	}

	if _, ok := s.Get("done"); ok {
		t.Fatal("expected the terminal operation to be evicted")
	}
}

func TestGet(t *testing.T) {
	opHash := common.HexToHash("0x01")

	client := &mockClient{
		connected:   true,
		executeHash: opHash,
		waitResult:  &OpResult{UserOpHash: opHash, TxHash: common.HexToHash("0x02"), Success: true},
	}
	s := newTestSubmitter(t, client, 0, 0)

	res, err := s.Submit(context.Background(), Call{Name: "openPoll"})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get(res.ID)
	if !ok {
		t.Fatal("expected operation to be tracked")
	}

	if got.State != StateSucceeded {
		t.Fatalf("expected %s, got %s", StateSucceeded, got.State)
	}

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected missing operation to not be found")
	}
}
