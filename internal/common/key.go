package common

import (
	"crypto/ecdsa"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

func HexToPrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, err
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, err
	}

	return privateKey, nil
}

// GenerateHexPrivateKey generates a fresh session key and returns it with the
// address of its signer.
func GenerateHexPrivateKey() (string, string, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return "", "", err
	}

	privateKeyHex := hex.EncodeToString(crypto.FromECDSA(pk))
	address := crypto.PubkeyToAddress(pk.PublicKey).Hex()

	return privateKeyHex, address, nil
}
