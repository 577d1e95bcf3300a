package polls

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	comm "github.com/daopoll/pollnode/internal/common"
	"github.com/ethereum/go-ethereum/common"
	"github.com/daopoll/pollnode/pkg/contracts/pollregistry"
	"github.com/daopoll/pollnode/pkg/poll"
	"github.com/daopoll/pollnode/pkg/repository"
	"github.com/daopoll/pollnode/pkg/submitter"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	repo *repository.Repository
	sub  *submitter.Submitter
	reg  *pollregistry.PollRegistry
	loc  *time.Location
}

func NewService(repo *repository.Repository, sub *submitter.Submitter, reg *pollregistry.PollRegistry, loc *time.Location) *Service {
	return &Service{
		repo: repo,
		sub:  sub,
		reg:  reg,
		loc:  loc,
	}
}

// PollView is a poll with its derived, display-ready state.
type PollView struct {
	Poll         *poll.Poll          `json:"poll"`
	LegalActions []poll.Action       `json:"legal_actions"`
	Results      []poll.OptionResult `json:"results"`
	HasVoted     bool                `json:"has_voted"`
	HasClaimed   bool                `json:"has_claimed"`
}

func view(p poll.Poll, caller string) PollView {
	return PollView{
		Poll:         &p,
		LegalActions: poll.LegalActions(&p, caller),
		Results:      poll.OptionsWithPercentages(&p),
		HasVoted:     poll.HasVoted(caller, p.ResponsesWithAddress),
		HasClaimed:   poll.HasClaimed(caller, p.ResponsesWithAddress),
	}
}

// GetAll returns every cached poll with derived state for the caller address
// passed in the address query param.
func (s *Service) GetAll(w http.ResponseWriter, r *http.Request) {
	caller := r.URL.Query().Get("address")

	polls := s.repo.Polls()

	views := make([]PollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, view(p, caller))
	}

	err := comm.BodyMultiple(w, views, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Get returns one cached poll with derived state.
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p, ok := s.repo.Poll(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	caller := r.URL.Query().Get("address")

	err = comm.Body(w, view(p, caller), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetActive returns the polls the registry reports as active.
func (s *Service) GetActive(w http.ResponseWriter, r *http.Request) {
	ids, err := s.reg.GetActivePolls(nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.respondWithIDs(w, r, ids)
}

// GetByCreator returns the polls created by the given account.
func (s *Service) GetByCreator(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "acc_addr")
	if !comm.IsHexAddress(addr) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ids, err := s.reg.GetUserPolls(nil, common.HexToAddress(addr))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.respondWithIDs(w, r, ids)
}

func (s *Service) respondWithIDs(w http.ResponseWriter, r *http.Request, ids []*big.Int) {
	caller := r.URL.Query().Get("address")

	views := []PollView{}
	for _, id := range ids {
		p, ok := s.repo.Poll(id)
		if !ok {
			continue
		}

		views = append(views, view(p, caller))
	}

	err := comm.BodyMultiple(w, views, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetLeaderboard ranks responders in the requested window: all, month or
// week.
func (s *Service) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	var window poll.Window

	switch r.URL.Query().Get("window") {
	case "", "all":
		window = poll.AllTime()
	case "month":
		window = poll.MonthOf(time.Now(), s.loc)
	case "week":
		window = poll.WeekOf(time.Now(), s.loc)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	entries := poll.Rank(s.repo.Polls(), window)

	err := comm.BodyMultiple(w, entries, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Refresh re-fetches all polls from the registry.
func (s *Service) Refresh(w http.ResponseWriter, r *http.Request) {
	polls, err := s.repo.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrSuperseded) {
			w.WriteHeader(http.StatusConflict)
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = comm.BodyMultiple(w, polls, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetOperation returns the tracked state of a previously submitted operation.
func (s *Service) GetOperation(w http.ResponseWriter, r *http.Request) {
	res, ok := s.sub.Get(chi.URLParam(r, "op_id"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err := comm.Body(w, res, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type createPollRequest struct {
	Subject            string   `json:"subject"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Options            []string `json:"options"`
	FundingType        string   `json:"funding_type"`
	RewardDistribution string   `json:"reward_distribution"`
	TargetFund         string   `json:"target_fund"`
	MinContribution    string   `json:"min_contribution"`
	RewardPerResponse  string   `json:"reward_per_response"`
	MaxResponses       uint64   `json:"max_responses"`
	DurationDays       uint64   `json:"duration_days"`
	Value              string   `json:"value"`
}

// Create submits a createPoll operation.
func (s *Service) Create(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if req.Subject == "" || len(req.Options) < 2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fundingType, ok := parseFundingType(req.FundingType)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	distribution, ok := parseRewardDistribution(req.RewardDistribution)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	targetFund, err := comm.ParseAmount(req.TargetFund)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	minContribution, err := comm.ParseAmount(req.MinContribution)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rewardPerResponse, err := comm.ParseAmount(req.RewardPerResponse)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	value, err := comm.ParseAmount(req.Value)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := s.reg.PackCreatePoll(pollregistry.CreatePollParams{
		Subject:            req.Subject,
		Description:        req.Description,
		Category:           req.Category,
		Options:            req.Options,
		FundingType:        uint8(fundingType),
		RewardDistribution: uint8(distribution),
		TargetFund:         targetFund,
		MinContribution:    minContribution,
		RewardPerResponse:  rewardPerResponse,
		MaxResponses:       new(big.Int).SetUint64(req.MaxResponses),
		DurationDays:       new(big.Int).SetUint64(req.DurationDays),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.submit(w, r, submitter.Call{
		Name:  "createPoll",
		To:    s.reg.Address(),
		Value: value,
		Data:  data,
	})
}

type respondRequest struct {
	Address  string `json:"address"`
	Response string `json:"response"`
	Value    string `json:"value"`
}

// Respond submits a vote. The status predicate here is advisory, the
// registry contract has the authoritative check.
func (s *Service) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req respondRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Response == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if p, ok := s.repo.Poll(id); ok && req.Address != "" {
		if !poll.CanVote(&p, req.Address) {
			w.WriteHeader(http.StatusConflict)
			return
		}
	}

	value, err := comm.ParseAmount(req.Value)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := s.reg.PackSubmitResponse(id, req.Response)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.submit(w, r, submitter.Call{
		Name:  "submitResponse",
		To:    s.reg.Address(),
		Value: value,
		Data:  data,
	})
}

type fundRequest struct {
	Amount string `json:"amount"`
	Value  string `json:"value"`
}

// Fund submits a contribution: native value through fundPoll, a token amount
// through fundPollWithToken.
func (s *Service) Fund(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req fundRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if p, ok := s.repo.Poll(id); ok {
		if !poll.CanFund(&p) {
			w.WriteHeader(http.StatusConflict)
			return
		}
	}

	var call submitter.Call

	if req.Amount != "" {
		amount, err := comm.ParseAmount(req.Amount)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		data, err := s.reg.PackFundPollWithToken(id, amount)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		call = submitter.Call{Name: "fundPollWithToken", To: s.reg.Address(), Value: new(big.Int), Data: data}
	} else {
		value, err := comm.ParseAmount(req.Value)
		if err != nil || value.Sign() == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		data, err := s.reg.PackFundPoll(id)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		call = submitter.Call{Name: "fundPoll", To: s.reg.Address(), Value: value, Data: data}
	}

	s.submit(w, r, call)
}

type targetFundRequest struct {
	NewTargetFund string `json:"new_target_fund"`
}

// UpdateTargetFund submits a target change for a poll collecting funds.
func (s *Service) UpdateTargetFund(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req targetFundRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	target, err := comm.ParseAmount(req.NewTargetFund)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := s.reg.PackUpdateTargetFund(id, target)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.submit(w, r, submitter.Call{
		Name: "updateTargetFund",
		To:   s.reg.Address(),
		Data: data,
	})
}

type transitionRequest struct {
	Action string `json:"action"`
}

// Transition submits a creator lifecycle transition.
func (s *Service) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req transitionRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var data []byte

	switch poll.Action(req.Action) {
	case poll.ActionOpenPoll:
		data, err = s.reg.PackOpenPoll(id)
	case poll.ActionForFunding:
		data, err = s.reg.PackForFunding(id)
	case poll.ActionForClaiming:
		data, err = s.reg.PackForClaiming(id)
	case poll.ActionClosePoll:
		data, err = s.reg.PackClosePoll(id)
	case poll.ActionCancelPoll:
		data, err = s.reg.PackCancelPoll(id)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.submit(w, r, submitter.Call{
		Name: req.Action,
		To:   s.reg.Address(),
		Data: data,
	})
}

type claimRequest struct {
	Address string `json:"address"`
}

// Claim submits a reward claim.
func (s *Service) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := parsePollID(chi.URLParam(r, "poll_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req claimRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if p, ok := s.repo.Poll(id); ok && req.Address != "" {
		if !poll.CanClaim(&p, req.Address) {
			w.WriteHeader(http.StatusConflict)
			return
		}
	}

	data, err := s.reg.PackClaimReward(id)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.submit(w, r, submitter.Call{
		Name: "claimReward",
		To:   s.reg.Address(),
		Data: data,
	})
}

// submit runs the two-phase submission and maps the outcome to a status
// code. The result envelope always carries the known hashes, an unconfirmed
// outcome is never reported as success.
func (s *Service) submit(w http.ResponseWriter, r *http.Request, call submitter.Call) {
	res, err := s.sub.Submit(r.Context(), call)

	code := http.StatusOK
	switch {
	case err == nil && res.State == submitter.StateSucceeded:
		// refresh the cache in the background, the UI re-reads after this
		go func() {
			_, rerr := s.repo.Refresh(context.Background())
			if rerr != nil && !errors.Is(rerr, repository.ErrSuperseded) {
				log.Default().Println("post-operation refresh failed: ", rerr)
			}
		}()
	case err == nil && res.State == submitter.StateUnconfirmed:
		code = http.StatusAccepted
	case errors.Is(err, submitter.ErrWalletNotConnected):
		code = http.StatusServiceUnavailable
	case errors.Is(err, submitter.ErrTimedOut):
		code = http.StatusGatewayTimeout
	case errors.Is(err, submitter.ErrSubmissionRejected):
		code = http.StatusBadGateway
	default:
		code = http.StatusUnprocessableEntity
	}

	writeResult(w, code, res)
}

func writeResult(w http.ResponseWriter, code int, res submitter.Result) {
	b, err := json.Marshal(&comm.Response{
		ResponseType: comm.ResponseTypeObject,
		Object:       res,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

func parsePollID(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing poll id")
	}

	if strings.HasPrefix(s, "0x") {
		id, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
		if !ok {
			return nil, errors.New("invalid poll id")
		}

		return id, nil
	}

	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, errors.New("invalid poll id")
	}

	return id, nil
}

func parseFundingType(s string) (poll.FundingType, bool) {
	switch s {
	case "self-funded":
		return poll.FundingSelfFunded, true
	case "crowdfunded":
		return poll.FundingCrowdfunded, true
	case "unfunded":
		return poll.FundingUnfunded, true
	}

	return 0, false
}

func parseRewardDistribution(s string) (poll.RewardDistribution, bool) {
	switch s {
	case "split":
		return poll.RewardSplit, true
	case "fixed":
		return poll.RewardFixed, true
	}

	return 0, false
}
