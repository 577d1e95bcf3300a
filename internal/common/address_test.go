package common

import (
	"testing"
)

func TestChecksumAddress(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected string
	}{
		{
			name:     "valid address",
			addr:     "0x1234567890123456789012345678901234567890",
			expected: "0x1234567890123456789012345678901234567890",
		},
		{
			name:     "invalid address",
			addr:     "not_an_address",
			expected: "0x0000000000000000000000000000000000000000",
		},
		{
			name:     "checksum address",
			addr:     "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			expected: "0x480Fbe37526226b6c6E2a7AfA449cDf661939D2f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ChecksumAddress(tt.addr)
			if actual != tt.expected {
				t.Errorf("checksumAddress(%s): expected %s, but got %s", tt.addr, tt.expected, actual)
			}
		})
	}
}

func TestIsSameHexAddress(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "identical",
			a:        "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			b:        "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			expected: true,
		},
		{
			name:     "checksummed vs lower case",
			a:        "0x480Fbe37526226b6c6E2a7AfA449cDf661939D2f",
			b:        "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			expected: true,
		},
		{
			name:     "different addresses",
			a:        "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			b:        "0x1234567890123456789012345678901234567890",
			expected: false,
		},
		{
			name:     "empty against address",
			a:        "",
			b:        "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := IsSameHexAddress(tt.a, tt.b)
			if actual != tt.expected {
				t.Errorf("IsSameHexAddress(%s, %s): expected %v, but got %v", tt.a, tt.b, tt.expected, actual)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "empty is zero", input: "", expected: "0"},
		{name: "zero", input: "0", expected: "0"},
		{name: "plain amount", input: "1000000000000000000", expected: "1000000000000000000"},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not a number", input: "1.5", wantErr: true},
		{name: "hex is rejected", input: "0x10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%s): expected error, got %s", tt.input, actual)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if actual.String() != tt.expected {
				t.Errorf("ParseAmount(%s): expected %s, but got %s", tt.input, tt.expected, actual)
			}
		})
	}
}
