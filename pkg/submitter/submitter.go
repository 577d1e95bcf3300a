package submitter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/daopoll/pollnode/pkg/queue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	// ErrWalletNotConnected is returned before any submission is attempted
	// when no signer is configured.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrSubmissionRejected is returned when the bundler refuses the
	// operation (gas, nonce, paymaster). It is never retried automatically.
	ErrSubmissionRejected = errors.New("operation submission rejected")

	// ErrOperationReverted is returned when the operation was finalized but
	// the contract call failed.
	ErrOperationReverted = errors.New("operation reverted")

	// ErrTimedOut is returned when submission or finalization exceeded its
	// deadline. The operation may still land on chain afterwards.
	ErrTimedOut = errors.New("operation timed out")
)

// State is the lifecycle of one in-flight operation. There is exactly one
// state value per operation, owned here, UI layers only read it.
type State string

const (
	StateIdle                State = "idle"
	StateSubmitting          State = "submitting"
	StatePendingFinalization State = "pendingFinalization"
	StateSucceeded           State = "succeeded"

	// StateUnconfirmed means the operation landed on chain but the
	// collaborator did not confirm the call's success separately. Callers
	// must surface the transaction hash, never treat this as success.
	StateUnconfirmed State = "unconfirmed"

	StateFailed State = "failed"
)

// OpResult is the raw two-phase outcome reported by the account-abstraction
// collaborator after finalization.
type OpResult struct {
	UserOpHash common.Hash
	TxHash     common.Hash
	Success    bool
}

// Client is the account-abstraction collaborator: it wraps a contract call in
// a user operation, submits it and tracks it to finalization.
type Client interface {
	Connected() bool
	Execute(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error)
	WaitForUserOpResult(ctx context.Context, userOpHash common.Hash) (*OpResult, error)
}

// Call is one logical contract invocation, already packed to calldata.
type Call struct {
	Name  string
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Operation tracks one submission through its states.
type Operation struct {
	ID   string
	Call Call

	mu         sync.RWMutex
	state      State
	userOpHash common.Hash
	txHash     common.Hash
	err        error
}

func (o *Operation) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = s
}

func (o *Operation) fail(s State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = s
	o.err = err
}

func (o *Operation) setUserOpHash(h common.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.userOpHash = h
}

func (o *Operation) setTxHash(h common.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.txHash = h
}

func (o *Operation) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.state
}

// Result is an immutable snapshot of the operation, safe to serialize.
type Result struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	State      State  `json:"state"`
	UserOpHash string `json:"user_op_hash,omitempty"`
	TxHash     string `json:"tx_hash,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (o *Operation) Result() Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	res := Result{
		ID:    o.ID,
		Name:  o.Call.Name,
		State: o.state,
	}

	if o.userOpHash != (common.Hash{}) {
		res.UserOpHash = o.userOpHash.Hex()
	}

	if o.txHash != (common.Hash{}) {
		res.TxHash = o.txHash.Hex()
	}

	if o.err != nil {
		res.Error = o.err.Error()
	}

	return res
}

const (
	defaultSubmitTimeout   = 60 * time.Second
	defaultFinalizeTimeout = 3 * time.Minute

	// cap on tracked operations, the oldest terminal ones are evicted first
	defaultMaxTrackedOps = 512
)

// Submitter converts logical contract calls into tracked user operations. It
// is the only component that talks to the account-abstraction collaborator.
//
// Submit guarantees nothing about idempotency: one call is one submission.
// Debouncing repeated triggers is the caller's obligation.
type Submitter struct {
	client Client
	q      *queue.Service

	submitTimeout   time.Duration
	finalizeTimeout time.Duration

	maxTracked int

	mu    sync.RWMutex
	ops   map[string]*Operation
	order []string
}

func New(client Client, q *queue.Service, submitTimeout, finalizeTimeout time.Duration) *Submitter {
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}

	if finalizeTimeout <= 0 {
		finalizeTimeout = defaultFinalizeTimeout
	}

	return &Submitter{
		client:          client,
		q:               q,
		submitTimeout:   submitTimeout,
		finalizeTimeout: finalizeTimeout,
		maxTracked:      defaultMaxTrackedOps,
		ops:             map[string]*Operation{},
	}
}

// track registers the operation and evicts the oldest terminal operations
// once the cap is exceeded. In-flight operations are never evicted.
func (s *Submitter) track(op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops[op.ID] = op
	s.order = append(s.order, op.ID)

	for len(s.ops) > s.maxTracked {
		evicted := false

		for i, id := range s.order {
			switch s.ops[id].State() {
			case StateSucceeded, StateUnconfirmed, StateFailed:
				delete(s.ops, id)
				s.order = append(s.order[:i], s.order[i+1:]...)
				evicted = true
			}

			if evicted {
				break
			}
		}

		if !evicted {
			break
		}
	}
}

// Processor returns the queue processor that performs the actual submissions.
// Wire it to the submission queue's Start.
func (s *Submitter) Processor() queue.Processor {
	return &processor{client: s.client, timeout: s.submitTimeout}
}

type processor struct {
	client  Client
	timeout time.Duration
}

func (p *processor) Process(m *queue.Message) error {
	op, ok := m.Payload.(*Operation)
	if !ok {
		err := fmt.Errorf("invalid submission message: %s", m.ID)
		m.Fail(err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	hash, err := p.client.Execute(ctx, op.Call.To, op.Call.Value, op.Call.Data)
	if err != nil {
		return err
	}

	m.Respond(hash)

	return nil
}

// Submit runs the two-phase protocol: enqueue the call, wait for the bundler
// to accept it (phase 1, yields the user operation hash), then wait for
// finalization (phase 2). The returned Result always carries whatever hashes
// are known, even on failure.
func (s *Submitter) Submit(ctx context.Context, call Call) (Result, error) {
	op := &Operation{
		ID:    uuid.NewString(),
		Call:  call,
		state: StateIdle,
	}

	s.track(op)

	if !s.client.Connected() {
		op.fail(StateFailed, ErrWalletNotConnected)
		return op.Result(), ErrWalletNotConnected
	}

	op.setState(StateSubmitting)

	msg := queue.NewMessage(op.ID, op)
	s.q.Enqueue(msg)

	sctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	v, err := msg.WaitForResponse(sctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			op.fail(StateFailed, ErrTimedOut)
			return op.Result(), fmt.Errorf("%w: submission", ErrTimedOut)
		}

		werr := fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
		op.fail(StateFailed, werr)
		return op.Result(), werr
	}

	hash, ok := v.(common.Hash)
	if !ok {
		werr := fmt.Errorf("%w: unexpected response type", ErrSubmissionRejected)
		op.fail(StateFailed, werr)
		return op.Result(), werr
	}

	op.setUserOpHash(hash)
	op.setState(StatePendingFinalization)

	fctx, cancel := context.WithTimeout(ctx, s.finalizeTimeout)
	defer cancel()

	res, err := s.client.WaitForUserOpResult(fctx, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// the operation may still land, surface the hash instead of
			// guessing an outcome
			op.fail(StateUnconfirmed, ErrTimedOut)
			return op.Result(), fmt.Errorf("%w: finalization", ErrTimedOut)
		}

		werr := fmt.Errorf("%w: %v", ErrOperationReverted, err)
		op.fail(StateFailed, werr)
		return op.Result(), werr
	}

	if res.TxHash != (common.Hash{}) {
		op.setTxHash(res.TxHash)
	}

	if res.Success {
		op.setState(StateSucceeded)
		return op.Result(), nil
	}

	if res.TxHash != (common.Hash{}) {
		op.setState(StateUnconfirmed)
		return op.Result(), nil
	}

	op.fail(StateFailed, ErrOperationReverted)
	return op.Result(), ErrOperationReverted
}

// Get returns the snapshot of a previously submitted operation.
func (s *Submitter) Get(id string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return Result{}, false
	}

	return op.Result(), true
}
