package poll

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOp is an ERC-4337 user operation as submitted to the bundler on behalf
// of the user's smart account.
type UserOp struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

type userOpJSON struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

// MarshalJSON encodes the operation the way bundlers expect it: every
// quantity as a hex string.
func (op *UserOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(&userOpJSON{
		Sender:               op.Sender.String(),
		Nonce:                hexutil.EncodeBig(op.Nonce),
		InitCode:             hexutil.Encode(op.InitCode),
		CallData:             hexutil.Encode(op.CallData),
		CallGasLimit:         hexutil.EncodeBig(op.CallGasLimit),
		VerificationGasLimit: hexutil.EncodeBig(op.VerificationGasLimit),
		PreVerificationGas:   hexutil.EncodeBig(op.PreVerificationGas),
		MaxFeePerGas:         hexutil.EncodeBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: hexutil.EncodeBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     hexutil.Encode(op.PaymasterAndData),
		Signature:            hexutil.Encode(op.Signature),
	})
}

// UnmarshalJSON parses a bundler-encoded user operation.
func (op *UserOp) UnmarshalJSON(input []byte) error {
	aux := &userOpJSON{}
	if err := json.Unmarshal(input, aux); err != nil {
		return err
	}

	op.Sender = common.HexToAddress(aux.Sender)
	op.Nonce, _ = hexutil.DecodeBig(aux.Nonce)
	op.InitCode, _ = hexutil.Decode(aux.InitCode)
	op.CallData, _ = hexutil.Decode(aux.CallData)
	op.CallGasLimit, _ = hexutil.DecodeBig(aux.CallGasLimit)
	op.VerificationGasLimit, _ = hexutil.DecodeBig(aux.VerificationGasLimit)
	op.PreVerificationGas, _ = hexutil.DecodeBig(aux.PreVerificationGas)
	op.MaxFeePerGas, _ = hexutil.DecodeBig(aux.MaxFeePerGas)
	op.MaxPriorityFeePerGas, _ = hexutil.DecodeBig(aux.MaxPriorityFeePerGas)
	op.PaymasterAndData, _ = hexutil.Decode(aux.PaymasterAndData)
	op.Signature, _ = hexutil.Decode(aux.Signature)

	return nil
}
