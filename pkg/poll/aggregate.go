package poll

import (
	comm "github.com/daopoll/pollnode/internal/common"
)

// OptionResult is one display-ready option with its share of responses.
type OptionResult struct {
	Text       string `json:"text"`
	Percentage int    `json:"percentage"`
}

// Percentage returns the integer share of responses matching option, floored.
// An empty response list yields 0 for every option, never a division by zero.
func Percentage(option string, responses []string) int {
	if len(responses) == 0 {
		return 0
	}

	count := 0
	for _, r := range responses {
		if r == option {
			count++
		}
	}

	// integer division keeps the floor semantics: 1 of 3 is 33, not 34
	return count * 100 / len(responses)
}

// HasVoted reports whether addr appears in the response records. Addresses
// are compared case-insensitively, the contract may return checksummed
// mixed-case hex.
func HasVoted(addr string, records []ResponseRecord) bool {
	for _, r := range records {
		if comm.IsSameHexAddress(r.Address, addr) {
			return true
		}
	}

	return false
}

// HasClaimed reports whether addr has already claimed its reward.
func HasClaimed(addr string, records []ResponseRecord) bool {
	for _, r := range records {
		if comm.IsSameHexAddress(r.Address, addr) && r.IsClaimed {
			return true
		}
	}

	return false
}

// OptionsWithPercentages computes the share of each option, preserving the
// poll's option order exactly. The order is display order, not a ranking.
func OptionsWithPercentages(p *Poll) []OptionResult {
	results := make([]OptionResult, 0, len(p.Options))

	for _, opt := range p.Options {
		results = append(results, OptionResult{
			Text:       opt,
			Percentage: Percentage(opt, p.Responses),
		})
	}

	return results
}
