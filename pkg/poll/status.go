package poll

import (
	comm "github.com/daopoll/pollnode/internal/common"
)

// Status is the lifecycle state a poll reports on-chain. The contract stores
// it as a free string, so parsing must fail closed: anything unrecognized maps
// to StatusUnknown and no action is ever considered legal for it.
type Status string

const (
	StatusNew         Status = "new"
	StatusForFunding  Status = "for-funding"
	StatusOpen        Status = "open"
	StatusForClaiming Status = "for-claiming"
	StatusClosed      Status = "closed"

	// StatusUnknown is never stored on-chain, it is the fail-closed parse
	// result for status strings introduced by newer contract versions.
	StatusUnknown Status = "unknown"
)

func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusNew, StatusForFunding, StatusOpen, StatusForClaiming, StatusClosed:
		return Status(s)
	}

	return StatusUnknown
}

func (s Status) Known() bool {
	return s != StatusUnknown && s != ""
}

// Action is a logical operation a caller can perform on a poll. The names
// match the registry contract functions.
type Action string

const (
	ActionSubmitResponse   Action = "submitResponse"
	ActionFundPoll         Action = "fundPoll"
	ActionClaimReward      Action = "claimReward"
	ActionOpenPoll         Action = "openPoll"
	ActionForFunding       Action = "forFunding"
	ActionForClaiming      Action = "forClaiming"
	ActionClosePoll        Action = "closePoll"
	ActionCancelPoll       Action = "cancelPoll"
	ActionUpdateTargetFund Action = "updateTargetFund"
)

// CanVote reports whether caller may submit a response: the poll is open, the
// caller has not responded yet and the response cap is not reached. A zero
// MaxResponses means unbounded.
func CanVote(p *Poll, caller string) bool {
	if p.Status != StatusOpen {
		return false
	}

	if HasVoted(caller, p.ResponsesWithAddress) {
		return false
	}

	if p.MaxResponses > 0 && p.TotalResponses >= p.MaxResponses {
		return false
	}

	return true
}

// CanFund reports whether the poll accepts contributions: it is collecting
// funds and the target has not been reached.
func CanFund(p *Poll) bool {
	if p.Status != StatusForFunding {
		return false
	}

	return p.TargetFund == nil || p.Funds == nil || p.Funds.Cmp(p.TargetFund) < 0
}

// CanClaim reports whether caller may claim a reward: claiming is open, the
// caller responded and the reward was not claimed yet.
func CanClaim(p *Poll, caller string) bool {
	if p.Status != StatusForClaiming {
		return false
	}

	for _, r := range p.ResponsesWithAddress {
		if comm.IsSameHexAddress(r.Address, caller) {
			return !r.IsClaimed
		}
	}

	return false
}

// IsCreator reports whether caller created the poll. Creator checks done here
// are advisory only, the registry contract re-checks on every transition and
// its rejection is authoritative.
func IsCreator(p *Poll, caller string) bool {
	return comm.IsSameHexAddress(p.Creator, caller)
}

// CanTransition reports whether the creator may move the poll to the given
// status right now, without forcing. The lifecycle is a DAG ending in closed:
//
//	new -> for-funding -> open -> for-claiming -> closed
//	new ----------------> open
//
// cancelPoll is handled separately, see CanCancel.
func CanTransition(p *Poll, caller string, to Status) bool {
	if !IsCreator(p, caller) {
		return false
	}

	switch p.Status {
	case StatusNew:
		if to == StatusForFunding {
			return p.FundingType != FundingUnfunded
		}
		return to == StatusOpen
	case StatusForFunding:
		// opening for votes requires the target to be reached, unless the
		// creator forces it through the contract directly
		return to == StatusOpen && targetReached(p)
	case StatusOpen:
		return to == StatusForClaiming
	case StatusForClaiming:
		return to == StatusClosed
	}

	// closed is terminal, unknown is fail-closed
	return false
}

// CanCancel reports whether the creator may cancel the poll. Any non-terminal
// known state can be cancelled.
func CanCancel(p *Poll, caller string) bool {
	if !IsCreator(p, caller) {
		return false
	}

	switch p.Status {
	case StatusNew, StatusForFunding, StatusOpen, StatusForClaiming:
		return true
	}

	return false
}

func targetReached(p *Poll) bool {
	if p.TargetFund == nil {
		return true
	}

	return p.Funds != nil && p.Funds.Cmp(p.TargetFund) >= 0
}

// LegalActions returns every action the caller may perform on the poll in its
// current state. Unknown statuses yield an empty set.
func LegalActions(p *Poll, caller string) []Action {
	actions := []Action{}

	if !p.Status.Known() {
		return actions
	}

	if CanVote(p, caller) {
		actions = append(actions, ActionSubmitResponse)
	}

	if CanFund(p) {
		actions = append(actions, ActionFundPoll)
	}

	if CanClaim(p, caller) {
		actions = append(actions, ActionClaimReward)
	}

	if CanTransition(p, caller, StatusForFunding) {
		actions = append(actions, ActionForFunding)
	}

	if CanTransition(p, caller, StatusOpen) {
		actions = append(actions, ActionOpenPoll)
	}

	if CanTransition(p, caller, StatusForClaiming) {
		actions = append(actions, ActionForClaiming)
	}

	if CanTransition(p, caller, StatusClosed) {
		actions = append(actions, ActionClosePoll)
	}

	if CanCancel(p, caller) {
		actions = append(actions, ActionCancelPoll)
	}

	if IsCreator(p, caller) && p.Status == StatusForFunding {
		actions = append(actions, ActionUpdateTargetFund)
	}

	return actions
}
