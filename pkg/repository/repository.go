package repository

import (
	"context"
	"errors"
	"log"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daopoll/pollnode/pkg/contracts/pollregistry"
	"github.com/daopoll/pollnode/pkg/poll"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// ErrSuperseded is returned by Refresh when a newer refresh started while
// this one was in flight. The stale result is discarded, never merged.
var ErrSuperseded = errors.New("refresh superseded")

// Source is the read surface of the poll registry contract.
type Source interface {
	GetAllPollIds(opts *bind.CallOpts) ([]*big.Int, error)
	GetPoll(opts *bind.CallOpts, pollId *big.Int) (pollregistry.RegistryPoll, error)
	GetPollResponses(opts *bind.CallOpts, pollId *big.Int) ([]pollregistry.RegistryResponse, error)
}

// Store persists the last fetched snapshot so the node restarts warm.
type Store interface {
	SavePolls(polls []poll.Poll) error
	LoadPolls() ([]poll.Poll, error)
}

const (
	defaultMaxInFlight  = 8
	defaultFetchTimeout = 30 * time.Second
)

// Repository fetches and normalizes all polls. Per-poll fetch failures are
// isolated: a failed poll is logged and omitted, never emitted as a nil
// placeholder and never fatal to the batch.
type Repository struct {
	src   Source
	store Store

	maxInFlight  int
	fetchTimeout time.Duration

	gen uint64

	mu    sync.RWMutex
	polls []poll.Poll
}

// New creates a repository. store may be nil, persistence is best effort.
func New(src Source, store Store, maxInFlight int, fetchTimeout time.Duration) *Repository {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}

	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &Repository{
		src:          src,
		store:        store,
		maxInFlight:  maxInFlight,
		fetchTimeout: fetchTimeout,
	}
}

// Warm seeds the cache from the store, if one is configured. Used at startup
// before the first on-chain refresh completes.
func (r *Repository) Warm() error {
	if r.store == nil {
		return nil
	}

	polls, err := r.store.LoadPolls()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.polls) == 0 {
		r.polls = polls
	}

	return nil
}

// Refresh fetches every poll concurrently, bounded by the in-flight cap, and
// overwrites the cache. If another Refresh starts while this one is running,
// the stale result is dropped and ErrSuperseded returned.
func (r *Repository) Refresh(ctx context.Context) ([]poll.Poll, error) {
	gen := atomic.AddUint64(&r.gen, 1)

	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	opts := &bind.CallOpts{Context: ctx}

	ids, err := r.src.GetAllPollIds(opts)
	if err != nil {
		return nil, err
	}

	fetched := make([]*poll.Poll, len(ids))

	sem := make(chan struct{}, r.maxInFlight)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)

		go func(i int, id *big.Int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			p, err := r.fetchPoll(opts, id)
			if err != nil {
				// isolate the failure, the rest of the batch continues
				log.Default().Println("failed to fetch poll ", id.String(), ": ", err)
				return
			}

			fetched[i] = p
		}(i, id)
	}

	wg.Wait()

	// the explicit filter step: failed fetches stay out of the result set
	polls := make([]poll.Poll, 0, len(fetched))
	for _, p := range fetched {
		if p != nil {
			polls = append(polls, *p)
		}
	}

	sort.Slice(polls, func(i, j int) bool {
		return polls[i].ID.Cmp(polls[j].ID) < 0
	})

	// the generation check and the cache write must be one critical section,
	// otherwise a newer refresh can slip in between them and be overwritten
	// by this stale result
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadUint64(&r.gen) != gen {
		return nil, ErrSuperseded
	}

	r.polls = polls

	if r.store != nil {
		if err := r.store.SavePolls(polls); err != nil {
			log.Default().Println("failed to persist poll snapshot: ", err)
		}
	}

	return polls, nil
}

func (r *Repository) fetchPoll(opts *bind.CallOpts, id *big.Int) (*poll.Poll, error) {
	raw, err := r.src.GetPoll(opts, id)
	if err != nil {
		return nil, err
	}

	// not atomic with GetPoll, a response can land in between. Normalize
	// tolerates the mismatch, the next refresh converges.
	responses, err := r.src.GetPollResponses(opts, id)
	if err != nil {
		return nil, err
	}

	p := Normalize(raw, responses)

	return &p, nil
}

// Polls returns a copy of the cached poll list.
func (r *Repository) Polls() []poll.Poll {
	r.mu.RLock()
	defer r.mu.RUnlock()

	polls := make([]poll.Poll, len(r.polls))
	copy(polls, r.polls)

	return polls
}

// Poll returns the cached poll with the given id.
func (r *Repository) Poll(id *big.Int) (poll.Poll, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.polls {
		if p.ID != nil && p.ID.Cmp(id) == 0 {
			return p, true
		}
	}

	return poll.Poll{}, false
}

// Normalize converts the raw contract tuples into the Poll entity. The
// response records are authoritative for the responses list, a transient
// disagreement with TotalResponses is tolerated.
func Normalize(raw pollregistry.RegistryPoll, responses []pollregistry.RegistryResponse) poll.Poll {
	status := poll.ParseStatus(raw.Status)

	records := make([]poll.ResponseRecord, 0, len(responses))
	texts := make([]string, 0, len(responses))

	for _, resp := range responses {
		records = append(records, poll.ResponseRecord{
			Address:   resp.Responder.Hex(),
			Response:  resp.Response,
			IsClaimed: resp.IsClaimed,
			Weight:    resp.Weight,
			Timestamp: bigToTime(resp.Timestamp),
			Reward:    resp.Reward,
		})
		texts = append(texts, resp.Response)
	}

	return poll.Poll{
		ID:                   raw.Id,
		Creator:              raw.Creator.Hex(),
		Subject:              raw.Subject,
		Description:          raw.Description,
		Category:             raw.Category,
		Options:              raw.Options,
		Status:               status,
		IsOpen:               raw.IsOpen || status == poll.StatusOpen,
		FundingType:          poll.FundingType(raw.FundingType),
		RewardDistribution:   poll.RewardDistribution(raw.RewardDistribution),
		TargetFund:           raw.TargetFund,
		Funds:                raw.Funds,
		MinContribution:      raw.MinContribution,
		RewardPerResponse:    raw.RewardPerResponse,
		MaxResponses:         bigToUint64(raw.MaxResponses),
		TotalResponses:       bigToUint64(raw.TotalResponses),
		DurationDays:         bigToUint64(raw.DurationDays),
		EndTime:              bigToTime(raw.EndTime),
		Responses:            texts,
		ResponsesWithAddress: records,
	}
}

func bigToUint64(i *big.Int) uint64 {
	if i == nil || !i.IsUint64() {
		return 0
	}

	return i.Uint64()
}

func bigToTime(i *big.Int) time.Time {
	if i == nil || i.Sign() == 0 {
		return time.Time{}
	}

	return time.Unix(i.Int64(), 0).UTC()
}
