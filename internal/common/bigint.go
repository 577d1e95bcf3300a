package common

import (
	"fmt"
	"math/big"
)

// ParseAmount parses a non-negative decimal amount in the chain's smallest
// unit. Amounts travel as strings end to end, never through a float.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}

	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	if i.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", s)
	}

	return i, nil
}
