package pollregistry

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// PollRegistryABI is the input ABI used to generate the binding from.
const PollRegistryABI = `[
  {"type":"function","name":"getAllPollIds","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getActivePolls","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getUserPolls","stateMutability":"view","inputs":[{"name":"creator","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getPoll","stateMutability":"view","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[
    {"name":"id","type":"uint256"},
    {"name":"creator","type":"address"},
    {"name":"subject","type":"string"},
    {"name":"description","type":"string"},
    {"name":"category","type":"string"},
    {"name":"options","type":"string[]"},
    {"name":"status","type":"string"},
    {"name":"isOpen","type":"bool"},
    {"name":"fundingType","type":"uint8"},
    {"name":"rewardDistribution","type":"uint8"},
    {"name":"targetFund","type":"uint256"},
    {"name":"funds","type":"uint256"},
    {"name":"minContribution","type":"uint256"},
    {"name":"rewardPerResponse","type":"uint256"},
    {"name":"maxResponses","type":"uint256"},
    {"name":"totalResponses","type":"uint256"},
    {"name":"durationDays","type":"uint256"},
    {"name":"endTime","type":"uint256"}]}]},
  {"type":"function","name":"getPollResponses","stateMutability":"view","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[{"name":"","type":"tuple[]","components":[
    {"name":"responder","type":"address"},
    {"name":"response","type":"string"},
    {"name":"isClaimed","type":"bool"},
    {"name":"weight","type":"uint256"},
    {"name":"timestamp","type":"uint256"},
    {"name":"reward","type":"uint256"}]}]},
  {"type":"function","name":"createPoll","stateMutability":"payable","inputs":[{"name":"input","type":"tuple","components":[
    {"name":"subject","type":"string"},
    {"name":"description","type":"string"},
    {"name":"category","type":"string"},
    {"name":"options","type":"string[]"},
    {"name":"fundingType","type":"uint8"},
    {"name":"rewardDistribution","type":"uint8"},
    {"name":"targetFund","type":"uint256"},
    {"name":"minContribution","type":"uint256"},
    {"name":"rewardPerResponse","type":"uint256"},
    {"name":"maxResponses","type":"uint256"},
    {"name":"durationDays","type":"uint256"}]}],"outputs":[]},
  {"type":"function","name":"submitResponse","stateMutability":"payable","inputs":[{"name":"pollId","type":"uint256"},{"name":"response","type":"string"}],"outputs":[]},
  {"type":"function","name":"fundPoll","stateMutability":"payable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"fundPollWithToken","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimReward","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"openPoll","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"forFunding","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"forClaiming","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"closePoll","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelPoll","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"updateTargetFund","stateMutability":"nonpayable","inputs":[{"name":"pollId","type":"uint256"},{"name":"newTargetFund","type":"uint256"}],"outputs":[]}
]`

// RegistryPoll mirrors the contract's poll tuple.
type RegistryPoll struct {
	Id                 *big.Int
	Creator            common.Address
	Subject            string
	Description        string
	Category           string
	Options            []string
	Status             string
	IsOpen             bool
	FundingType        uint8
	RewardDistribution uint8
	TargetFund         *big.Int
	Funds              *big.Int
	MinContribution    *big.Int
	RewardPerResponse  *big.Int
	MaxResponses       *big.Int
	TotalResponses     *big.Int
	DurationDays       *big.Int
	EndTime            *big.Int
}

// RegistryResponse mirrors the contract's response tuple.
type RegistryResponse struct {
	Responder common.Address
	Response  string
	IsClaimed bool
	Weight    *big.Int
	Timestamp *big.Int
	Reward    *big.Int
}

// CreatePollParams mirrors the createPoll input tuple.
type CreatePollParams struct {
	Subject            string
	Description        string
	Category           string
	Options            []string
	FundingType        uint8
	RewardDistribution uint8
	TargetFund         *big.Int
	MinContribution    *big.Int
	RewardPerResponse  *big.Int
	MaxResponses       *big.Int
	DurationDays       *big.Int
}

// PollRegistry is a read binding plus calldata packing for the poll registry
// contract. Writes go through the account-abstraction layer, so there is no
// transactor here, only packed calldata.
type PollRegistry struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

func NewPollRegistry(address common.Address, backend bind.ContractBackend) (*PollRegistry, error) {
	parsed, err := abi.JSON(strings.NewReader(PollRegistryABI))
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(address, parsed, backend, nil, nil)

	return &PollRegistry{
		address:  address,
		abi:      parsed,
		contract: contract,
	}, nil
}

func (r *PollRegistry) Address() common.Address {
	return r.address
}

func (r *PollRegistry) GetAllPollIds(opts *bind.CallOpts) ([]*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "getAllPollIds")
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (r *PollRegistry) GetActivePolls(opts *bind.CallOpts) ([]*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "getActivePolls")
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (r *PollRegistry) GetUserPolls(opts *bind.CallOpts, creator common.Address) ([]*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "getUserPolls", creator)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (r *PollRegistry) GetPoll(opts *bind.CallOpts, pollId *big.Int) (RegistryPoll, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "getPoll", pollId)
	if err != nil {
		return RegistryPoll{}, err
	}

	return *abi.ConvertType(out[0], new(RegistryPoll)).(*RegistryPoll), nil
}

func (r *PollRegistry) GetPollResponses(opts *bind.CallOpts, pollId *big.Int) ([]RegistryResponse, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "getPollResponses", pollId)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]RegistryResponse)).(*[]RegistryResponse), nil
}

func (r *PollRegistry) PackCreatePoll(input CreatePollParams) ([]byte, error) {
	return r.abi.Pack("createPoll", input)
}

func (r *PollRegistry) PackSubmitResponse(pollId *big.Int, response string) ([]byte, error) {
	return r.abi.Pack("submitResponse", pollId, response)
}

func (r *PollRegistry) PackFundPoll(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("fundPoll", pollId)
}

func (r *PollRegistry) PackFundPollWithToken(pollId, amount *big.Int) ([]byte, error) {
	return r.abi.Pack("fundPollWithToken", pollId, amount)
}

func (r *PollRegistry) PackClaimReward(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("claimReward", pollId)
}

func (r *PollRegistry) PackOpenPoll(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("openPoll", pollId)
}

func (r *PollRegistry) PackForFunding(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("forFunding", pollId)
}

func (r *PollRegistry) PackForClaiming(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("forClaiming", pollId)
}

func (r *PollRegistry) PackClosePoll(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("closePoll", pollId)
}

func (r *PollRegistry) PackCancelPoll(pollId *big.Int) ([]byte, error) {
	return r.abi.Pack("cancelPoll", pollId)
}

func (r *PollRegistry) PackUpdateTargetFund(pollId, newTargetFund *big.Int) ([]byte, error) {
	return r.abi.Pack("updateTargetFund", pollId, newTargetFund)
}

// Deployed reports whether bytecode exists at the registry address.
func (r *PollRegistry) Deployed(ctx context.Context, backend bind.ContractBackend) (bool, error) {
	code, err := backend.CodeAt(ctx, r.address, nil)
	if err != nil {
		return false, err
	}

	return len(code) > 0, nil
}
