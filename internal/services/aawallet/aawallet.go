package aawallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/daopoll/pollnode/internal/services/ethrequest"
	"github.com/daopoll/pollnode/pkg/poll"
	"github.com/daopoll/pollnode/pkg/submitter"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	methodSendUserOperation       = "eth_sendUserOperation"
	methodGetUserOperationReceipt = "eth_getUserOperationReceipt"

	receiptPollInterval = 2 * time.Second
)

// the smart account call surface and the entry point views the wallet needs
const accountABI = `[
  {"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]}
]`

const entryPointABI = `[
  {"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]},
  {"type":"function","name":"getUserOpHash","stateMutability":"view","inputs":[{"name":"userOp","type":"tuple","components":[
    {"name":"sender","type":"address"},
    {"name":"nonce","type":"uint256"},
    {"name":"initCode","type":"bytes"},
    {"name":"callData","type":"bytes"},
    {"name":"callGasLimit","type":"uint256"},
    {"name":"verificationGasLimit","type":"uint256"},
    {"name":"preVerificationGas","type":"uint256"},
    {"name":"maxFeePerGas","type":"uint256"},
    {"name":"maxPriorityFeePerGas","type":"uint256"},
    {"name":"paymasterAndData","type":"bytes"},
    {"name":"signature","type":"bytes"}]}],"outputs":[{"name":"","type":"bytes32"}]}
]`

// gas defaults, the bundler re-validates and rejects if they are too low
var (
	defaultCallGasLimit         = big.NewInt(350_000)
	defaultVerificationGasLimit = big.NewInt(150_000)
	defaultPreVerificationGas   = big.NewInt(50_000)
)

type userOpReceipt struct {
	UserOpHash string `json:"userOpHash"`
	Success    bool   `json:"success"`
	Receipt    struct {
		TransactionHash string `json:"transactionHash"`
	} `json:"receipt"`
}

// Service signs and submits user operations for one smart account through an
// ERC-4337 bundler. It implements submitter.Client.
type Service struct {
	ctx context.Context
	rpc *rpc.Client
	evm *ethrequest.EthService

	chainID    *big.Int
	entryPoint common.Address
	account    common.Address
	key        *ecdsa.PrivateKey

	accABI abi.ABI
	ep     *bind.BoundContract
}

func NewService(ctx context.Context, endpoint, origin string, evm *ethrequest.EthService, chainID *big.Int, entryPoint, account common.Address, key *ecdsa.PrivateKey) (*Service, error) {
	rpc, err := rpc.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	if origin != "" {
		rpc.SetHeader("Origin", origin)
	}

	accabi, err := abi.JSON(strings.NewReader(accountABI))
	if err != nil {
		return nil, err
	}

	epabi, err := abi.JSON(strings.NewReader(entryPointABI))
	if err != nil {
		return nil, err
	}

	ep := bind.NewBoundContract(entryPoint, epabi, evm.Backend(), nil, nil)

	return &Service{
		ctx:        ctx,
		rpc:        rpc,
		evm:        evm,
		chainID:    chainID,
		entryPoint: entryPoint,
		account:    account,
		key:        key,
		accABI:     accabi,
		ep:         ep,
	}, nil
}

func (s *Service) Close() {
	s.rpc.Close()
}

// Connected reports whether a signer and account are configured. The session
// state is read-only here, nothing in the poll flow ever mutates it.
func (s *Service) Connected() bool {
	return s.key != nil && s.account != (common.Address{})
}

// Execute wraps the contract call in a signed user operation and submits it
// to the bundler. It returns the user operation hash as soon as the bundler
// accepts the operation into its pending set.
func (s *Service) Execute(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if !s.Connected() {
		return common.Hash{}, fmt.Errorf("no signer configured")
	}

	if value == nil {
		value = new(big.Int)
	}

	calldata, err := s.accABI.Pack("execute", to, value, data)
	if err != nil {
		return common.Hash{}, err
	}

	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	err = s.ep.Call(opts, &out, "getNonce", s.account, new(big.Int))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch account nonce: %w", err)
	}

	nonce := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	gasPrice, err := s.evm.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tip, err := s.evm.SuggestGasTipCap(ctx)
	if err != nil {
		tip = new(big.Int)
	}

	op := poll.UserOp{
		Sender:               s.account,
		Nonce:                nonce,
		InitCode:             []byte{},
		CallData:             calldata,
		CallGasLimit:         defaultCallGasLimit,
		VerificationGasLimit: defaultVerificationGasLimit,
		PreVerificationGas:   defaultPreVerificationGas,
		MaxFeePerGas:         new(big.Int).Mul(gasPrice, big.NewInt(2)),
		MaxPriorityFeePerGas: tip,
		PaymasterAndData:     []byte{},
		Signature:            []byte{},
	}

	sig, err := s.signUserOp(ctx, op)
	if err != nil {
		return common.Hash{}, err
	}

	op.Signature = sig

	var hash string
	err = s.rpc.CallContext(ctx, &hash, methodSendUserOperation, &op, s.entryPoint.Hex())
	if err != nil {
		return common.Hash{}, err
	}

	return common.HexToHash(hash), nil
}

// signUserOp asks the entry point for the canonical operation hash and signs
// its eth-signed-message form with the session key.
func (s *Service) signUserOp(ctx context.Context, op poll.UserOp) ([]byte, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	err := s.ep.Call(opts, &out, "getUserOpHash", op)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user op hash: %w", err)
	}

	opHash := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)

	sig, err := crypto.Sign(accounts.TextHash(opHash[:]), s.key)
	if err != nil {
		return nil, err
	}

	// bundlers expect the legacy 27/28 recovery id
	sig[crypto.RecoveryIDOffset] += 27

	return sig, nil
}

// WaitForUserOpResult polls the bundler for the operation's receipt until ctx
// expires. A receipt with success reports a confirmed outcome, a receipt
// without it only proves inclusion.
func (s *Service) WaitForUserOpResult(ctx context.Context, userOpHash common.Hash) (*submitter.OpResult, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		var receipt *userOpReceipt
		err := s.rpc.CallContext(ctx, &receipt, methodGetUserOperationReceipt, userOpHash.Hex())
		if err == nil && receipt != nil {
			return &submitter.OpResult{
				UserOpHash: userOpHash,
				TxHash:     common.HexToHash(receipt.Receipt.TransactionHash),
				Success:    receipt.Success,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
