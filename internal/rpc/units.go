package rpc

import (
	"math/big"
	"strconv"
	"strings"
)

// FormatUnits converts an atomic integer balance (decimal or 0x-hex string)
// into a human decimal string by dividing by 10^decimals. All math happens
// on big.Int; no floating point touches the atomic value, so large supplies
// keep full precision. Returns "0" for unparseable input.
func FormatUnits(atomic string, decimals int) string {
	bi, ok := parseAtomic(atomic)
	if !ok {
		return "0"
	}

	if decimals < 0 {
		decimals = 0
	}
	if decimals > 36 {
		decimals = 36
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(bi, base, frac)

	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := frac.String()
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")

	return whole.String() + "." + fracStr
}

// parseAtomic parses a decimal or 0x-hex atomic balance string.
func parseAtomic(atomic string) (*big.Int, bool) {
	atomic = strings.TrimSpace(atomic)
	if atomic == "" {
		return nil, false
	}

	if strings.HasPrefix(atomic, "0x") || strings.HasPrefix(atomic, "0X") {
		hexPart := atomic[2:]
		if hexPart == "" {
			return big.NewInt(0), true
		}
		bi, ok := new(big.Int).SetString(hexPart, 16)
		return bi, ok
	}

	bi, ok := new(big.Int).SetString(atomic, 10)
	return bi, ok
}

// DecimalToFloat converts an already-scaled decimal string to a float64 for
// display-side USD arithmetic. Very long decimals are truncated first so the
// conversion stays finite; precision loss here only affects rounding of USD
// values, never balances.
func DecimalToFloat(dec string) float64 {
	if len(dec) > 24 {
		dec = dec[:24]
	}
	f, err := strconv.ParseFloat(dec, 64)
	if err != nil {
		return 0
	}
	return f
}

// WeiToEther formats a wei amount (decimal or hex string) as ether.
func WeiToEther(wei string) string {
	return FormatUnits(wei, 18)
}

// WeiToGwei formats a wei amount (decimal or hex string) as gwei.
func WeiToGwei(wei string) string {
	return FormatUnits(wei, 9)
}

// HexToInt64 converts a 0x-hex quantity to int64, returning 0 for empty or
// malformed input.
func HexToInt64(hex string) int64 {
	if hex == "" || hex == "0x" {
		return 0
	}
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// HexToUint64 converts a 0x-hex quantity to uint64, returning 0 for empty or
// malformed input.
func HexToUint64(hex string) uint64 {
	if hex == "" || hex == "0x" {
		return 0
	}
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// IsZeroBalance reports whether a formatted decimal balance equals zero.
func IsZeroBalance(balance string) bool {
	return balance == "" || balance == "0"
}
