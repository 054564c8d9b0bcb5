package rpc

import "testing"

func TestChecksumAddress_KnownVectors(t *testing.T) {
	// Mixed-case checksums from EIP-55.
	cases := map[string]string{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359": "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb": "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb": "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}

	for input, expected := range cases {
		got := ChecksumAddress(input)
		if got != expected {
			t.Errorf("ChecksumAddress(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestChecksumAddress_UppercaseInput(t *testing.T) {
	got := ChecksumAddress("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	if got != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Errorf("expected checksum to normalize case first, got %q", got)
	}
}
