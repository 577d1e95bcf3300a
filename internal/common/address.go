package common

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsSameHexAddress compares two hex addresses case-insensitively. The
// registry may return checksummed mixed-case hex while clients usually send
// lower case.
func IsSameHexAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ChecksumAddress(addr string) string {
	address := common.HexToAddress(addr)

	return address.Hex()
}

// IsHexAddress reports whether s parses as a 20 byte hex address.
func IsHexAddress(s string) bool {
	return common.IsHexAddress(s)
}
