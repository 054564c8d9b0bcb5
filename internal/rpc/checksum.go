package rpc

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress returns the EIP-55 mixed-case checksum form of an address.
// Input that is not a plain 0x-prefixed 40-hex string is returned unchanged.
func ChecksumAddress(address string) string {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return address
	}

	lower := strings.ToLower(address[2:])
	for _, c := range lower {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return address
		}
	}

	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hex.EncodeToString(hash.Sum(nil))

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			b.WriteByte(byte(c) - 32)
		} else {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}
