package poll

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPercentage(t *testing.T) {
	testCases := []struct {
		name      string
		option    string
		responses []string
		expected  int
	}{
		{
			name:      "two thirds floors to 66",
			option:    "yes",
			responses: []string{"yes", "yes", "no"},
			expected:  66,
		},
		{
			name:      "one third floors to 33",
			option:    "no",
			responses: []string{"yes", "yes", "no"},
			expected:  33,
		},
		{
			name:      "no responses",
			option:    "yes",
			responses: []string{},
			expected:  0,
		},
		{
			name:      "nil responses",
			option:    "yes",
			responses: nil,
			expected:  0,
		},
		{
			name:      "unanimous",
			option:    "yes",
			responses: []string{"yes", "yes"},
			expected:  100,
		},
		{
			name:      "option nobody picked",
			option:    "maybe",
			responses: []string{"yes", "no"},
			expected:  0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percentage(tc.option, tc.responses); got != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestPercentageBounds(t *testing.T) {
	// any distribution must stay within [0, 100]
	for total := 1; total <= 25; total++ {
		for count := 0; count <= total; count++ {
			responses := make([]string, 0, total)
			for i := 0; i < count; i++ {
				responses = append(responses, "yes")
			}
			for i := count; i < total; i++ {
				responses = append(responses, fmt.Sprintf("other-%d", i))
			}

			got := Percentage("yes", responses)
			if got < 0 || got > 100 {
				t.Fatalf("%d of %d yielded %d", count, total, got)
			}
		}
	}
}

func TestHasVoted(t *testing.T) {
	records := []ResponseRecord{
		{Address: "0x66aB6D9362d4F35596279692F0251Db635165871"},
		{Address: "0x5409ed021d9299bf6814279a6a1411a7e866a631"},
	}

	testCases := []struct {
		name     string
		addr     string
		expected bool
	}{
		{"exact match", "0x66aB6D9362d4F35596279692F0251Db635165871", true},
		{"lowercase caller", "0x66ab6d9362d4f35596279692f0251db635165871", true},
		{"uppercase caller", "0X66AB6D9362D4F35596279692F0251DB635165871", true},
		{"checksummed caller, lowercase record", "0x5409ED021D9299bf6814279A6A1411A7e866A631", true},
		{"not a voter", "0xE834EC434DABA538cd1b9Fe1582052B880BD7e63", false},
		{"empty address", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasVoted(tc.addr, records); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestHasClaimed(t *testing.T) {
	records := []ResponseRecord{
		{Address: "0x66aB6D9362d4F35596279692F0251Db635165871", IsClaimed: true},
		{Address: "0x5409ED021D9299bf6814279A6A1411A7e866A631"},
	}

	if !HasClaimed("0x66ab6d9362d4f35596279692f0251db635165871", records) {
		t.Fatal("expected claimed")
	}

	if HasClaimed("0x5409ED021D9299bf6814279A6A1411A7e866A631", records) {
		t.Fatal("expected unclaimed")
	}

	if HasClaimed("0xE834EC434DABA538cd1b9Fe1582052B880BD7e63", records) {
		t.Fatal("expected no record")
	}
}

func TestOptionsWithPercentages(t *testing.T) {
	p := Poll{
		Options:   []string{"green", "blue", "red"},
		Responses: []string{"blue", "blue", "green"},
	}

	got := OptionsWithPercentages(&p)

	// option order is display order, never re-sorted by share
	expected := []OptionResult{
		{Text: "green", Percentage: 33},
		{Text: "blue", Percentage: 66},
		{Text: "red", Percentage: 0},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
}

func TestOptionsWithPercentagesEmpty(t *testing.T) {
	p := Poll{Options: []string{"yes", "no"}}

	got := OptionsWithPercentages(&p)

	expected := []OptionResult{
		{Text: "yes", Percentage: 0},
		{Text: "no", Percentage: 0},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
}
