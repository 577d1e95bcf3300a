package poll

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type FundingType uint8

const (
	FundingSelfFunded FundingType = iota
	FundingCrowdfunded
	FundingUnfunded
)

func (f FundingType) String() string {
	switch f {
	case FundingSelfFunded:
		return "self-funded"
	case FundingCrowdfunded:
		return "crowdfunded"
	case FundingUnfunded:
		return "unfunded"
	}

	return "unknown"
}

type RewardDistribution uint8

const (
	RewardSplit RewardDistribution = iota
	RewardFixed
)

func (d RewardDistribution) String() string {
	switch d {
	case RewardSplit:
		return "split"
	case RewardFixed:
		return "fixed"
	}

	return "unknown"
}

// ResponseRecord is the authoritative per-responder record. The contract
// enforces at most one record per (poll, responder) pair.
type ResponseRecord struct {
	Address   string    `json:"address"`
	Response  string    `json:"response"`
	IsClaimed bool      `json:"is_claimed"`
	Weight    *big.Int  `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
	Reward    *big.Int  `json:"reward"`
}

// Poll is the normalized on-chain poll entity. Monetary amounts are in the
// chain's smallest unit and always big integers.
//
// Responses[i] corresponds to ResponsesWithAddress[i].Response. The two can
// transiently disagree in length with TotalResponses between two reads, the
// record slice is treated as authoritative.
type Poll struct {
	ID                 *big.Int
	Creator            string
	Subject            string
	Description        string
	Category           string
	Options            []string
	Status             Status
	IsOpen             bool // legacy ABI flag, mirrors Status == StatusOpen
	FundingType        FundingType
	RewardDistribution RewardDistribution
	TargetFund         *big.Int
	Funds              *big.Int
	MinContribution    *big.Int
	RewardPerResponse  *big.Int
	MaxResponses       uint64
	TotalResponses     uint64
	DurationDays       uint64
	EndTime            time.Time

	Responses            []string
	ResponsesWithAddress []ResponseRecord
}

// MarshalJSON encodes the monetary big.Int fields as hex quantities so that
// consumers never round them through a float.
func (p *Poll) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID                   string           `json:"id"`
		Creator              string           `json:"creator"`
		Subject              string           `json:"subject"`
		Description          string           `json:"description"`
		Category             string           `json:"category"`
		Options              []string         `json:"options"`
		Status               Status           `json:"status"`
		IsOpen               bool             `json:"is_open"`
		FundingType          string           `json:"funding_type"`
		RewardDistribution   string           `json:"reward_distribution"`
		TargetFund           string           `json:"target_fund"`
		Funds                string           `json:"funds"`
		MinContribution      string           `json:"min_contribution"`
		RewardPerResponse    string           `json:"reward_per_response"`
		MaxResponses         uint64           `json:"max_responses"`
		TotalResponses       uint64           `json:"total_responses"`
		DurationDays         uint64           `json:"duration_days"`
		EndTime              time.Time        `json:"end_time"`
		Responses            []string         `json:"responses"`
		ResponsesWithAddress []ResponseRecord `json:"responses_with_address"`
	}{
		ID:                   hexutil.EncodeBig(orZero(p.ID)),
		Creator:              p.Creator,
		Subject:              p.Subject,
		Description:          p.Description,
		Category:             p.Category,
		Options:              p.Options,
		Status:               p.Status,
		IsOpen:               p.IsOpen,
		FundingType:          p.FundingType.String(),
		RewardDistribution:   p.RewardDistribution.String(),
		TargetFund:           hexutil.EncodeBig(orZero(p.TargetFund)),
		Funds:                hexutil.EncodeBig(orZero(p.Funds)),
		MinContribution:      hexutil.EncodeBig(orZero(p.MinContribution)),
		RewardPerResponse:    hexutil.EncodeBig(orZero(p.RewardPerResponse)),
		MaxResponses:         p.MaxResponses,
		TotalResponses:       p.TotalResponses,
		DurationDays:         p.DurationDays,
		EndTime:              p.EndTime,
		Responses:            p.Responses,
		ResponsesWithAddress: p.ResponsesWithAddress,
	})
}

func orZero(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}

	return i
}

func (r ResponseRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Address   string    `json:"address"`
		Response  string    `json:"response"`
		IsClaimed bool      `json:"is_claimed"`
		Weight    string    `json:"weight"`
		Timestamp time.Time `json:"timestamp"`
		Reward    string    `json:"reward"`
	}{
		Address:   r.Address,
		Response:  r.Response,
		IsClaimed: r.IsClaimed,
		Weight:    hexutil.EncodeBig(orZero(r.Weight)),
		Timestamp: r.Timestamp,
		Reward:    hexutil.EncodeBig(orZero(r.Reward)),
	})
}
