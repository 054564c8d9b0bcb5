package rpc

import (
	"testing"
)

func TestFormatUnits_WholeAndFraction(t *testing.T) {
	cases := []struct {
		atomic   string
		decimals int
		expected string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"123456789", 6, "123.456789"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"42", 0, "42"},
		{"0x0de0b6b3a7640000", 18, "1"}, // hex input
		{"2500000", 6, "2.5"},
	}

	for _, tc := range cases {
		got := FormatUnits(tc.atomic, tc.decimals)
		if got != tc.expected {
			t.Errorf("FormatUnits(%q, %d) = %q, want %q", tc.atomic, tc.decimals, got, tc.expected)
		}
	}
}

func TestFormatUnits_LargeValueKeepsPrecision(t *testing.T) {
	// 123456789012345678901234567890 wei is beyond float64 precision.
	got := FormatUnits("123456789012345678901234567890", 18)
	if got != "123456789012.34567890123456789" {
		t.Errorf("unexpected large-value formatting: %q", got)
	}
}

func TestFormatUnits_BadInput(t *testing.T) {
	if got := FormatUnits("not-a-number", 18); got != "0" {
		t.Errorf("expected 0 for garbage input, got %q", got)
	}
	if got := FormatUnits("", 18); got != "0" {
		t.Errorf("expected 0 for empty input, got %q", got)
	}
}

func TestWeiToEther(t *testing.T) {
	if got := WeiToEther("0x1bc16d674ec80000"); got != "2" {
		t.Errorf("expected 2 ETH, got %q", got)
	}
}

func TestWeiToGwei(t *testing.T) {
	if got := WeiToGwei("0x3b9aca00"); got != "1" {
		t.Errorf("expected 1 gwei, got %q", got)
	}
}

func TestIsZeroBalance(t *testing.T) {
	if !IsZeroBalance("0") {
		t.Error("expected 0 to be zero")
	}
	if IsZeroBalance("0.000000000000000001") {
		t.Error("expected dust balance to be non-zero")
	}
}

func TestHexToInt64(t *testing.T) {
	if got := HexToInt64("0x10"); got != 16 {
		t.Errorf("expected 16, got %d", got)
	}
	if got := HexToInt64("garbage"); got != 0 {
		t.Errorf("expected 0 for garbage, got %d", got)
	}
}

func TestDecimalToFloat(t *testing.T) {
	if got := DecimalToFloat("1.5"); got != 1.5 {
		t.Errorf("expected 1.5, got %f", got)
	}
	if got := DecimalToFloat("bogus"); got != 0 {
		t.Errorf("expected 0 for bogus input, got %f", got)
	}
}
