package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// FileKind classifies an uploaded attachment.
type FileKind int

const (
	FileKindSolidity FileKind = iota
	FileKindImage
	FileKindBlockchainText
	FileKindUnrelated
)

// SolidityReport is the static summary of a Solidity source file.
type SolidityReport struct {
	FileName           string
	Pragma             string
	ContractName       string
	Functions          int
	Events             int
	Modifiers          int
	HasConstructor     bool
	HasPayable         bool
	UsesOpenZeppelin   bool
	HasOwnable         bool
	HasReentrancyGuard bool
	HasSelfDestruct    bool
	HasDelegateCall    bool
}

var (
	functionRegex     = regexp.MustCompile(`function\s+\w+`)
	eventRegex        = regexp.MustCompile(`event\s+\w+`)
	modifierRegex     = regexp.MustCompile(`modifier\s+\w+`)
	contractNameRegex = regexp.MustCompile(`contract\s+(\w+)`)
)

// blockchainFileMarkers is the vocabulary that lets a text attachment
// through; anything without one of these is declined as off-topic.
var blockchainFileMarkers = []string{
	"blockchain", "ethereum", "contract", "web3", "token", "0x", "wallet",
}

// ClassifyFile decides how an attachment should be analyzed. Solidity
// detection is content-based too, so pasted contracts without a .sol name
// still get the structured report.
func ClassifyFile(name, mimeType, data string) FileKind {
	if strings.HasSuffix(name, ".sol") ||
		strings.Contains(data, "pragma solidity") ||
		strings.Contains(data, "contract ") {
		return FileKindSolidity
	}
	if strings.HasPrefix(mimeType, "image/") {
		return FileKindImage
	}

	lower := strings.ToLower(data)
	for _, marker := range blockchainFileMarkers {
		if strings.Contains(lower, marker) {
			return FileKindBlockchainText
		}
	}
	return FileKindUnrelated
}

// AnalyzeSolidity builds a static report of a Solidity source file.
func AnalyzeSolidity(name, code string) *SolidityReport {
	report := &SolidityReport{
		FileName:           name,
		Functions:          len(functionRegex.FindAllString(code, -1)),
		Events:             len(eventRegex.FindAllString(code, -1)),
		Modifiers:          len(modifierRegex.FindAllString(code, -1)),
		HasConstructor:     strings.Contains(code, "constructor"),
		HasPayable:         strings.Contains(code, "payable"),
		UsesOpenZeppelin:   strings.Contains(code, "@openzeppelin"),
		HasOwnable:         strings.Contains(code, "Ownable"),
		HasReentrancyGuard: strings.Contains(code, "ReentrancyGuard"),
		HasSelfDestruct:    strings.Contains(code, "selfdestruct"),
		HasDelegateCall:    strings.Contains(code, "delegatecall"),
	}

	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if report.Pragma == "" && strings.HasPrefix(trimmed, "pragma solidity") {
			report.Pragma = trimmed
		}
		if report.ContractName == "" && strings.Contains(line, "contract ") && !strings.HasPrefix(trimmed, "//") {
			if m := contractNameRegex.FindStringSubmatch(line); m != nil {
				report.ContractName = m[1]
			}
		}
	}

	return report
}

// Render formats the report as the plain-text block shown to the user ahead
// of any model commentary.
func (r *SolidityReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "📜 Solidity Contract Analysis: %s\n\n", r.FileName)

	pragma := r.Pragma
	if pragma == "" {
		pragma = "Not specified"
	}
	name := r.ContractName
	if name == "" {
		name = "Unknown"
	}
	fmt.Fprintf(&b, "Compiler Version: %s\n", pragma)
	fmt.Fprintf(&b, "Contract Name: %s\n\n", name)

	b.WriteString("Structure:\n")
	fmt.Fprintf(&b, "• Functions: %d\n", r.Functions)
	fmt.Fprintf(&b, "• Events: %d\n", r.Events)
	fmt.Fprintf(&b, "• Modifiers: %d\n", r.Modifiers)
	fmt.Fprintf(&b, "• Has Constructor: %s\n\n", checkmark(r.HasConstructor))

	b.WriteString("Features Detected:\n")
	if r.UsesOpenZeppelin {
		b.WriteString("• ✅ Uses OpenZeppelin libraries\n")
	}
	if r.HasOwnable {
		b.WriteString("• ✅ Implements Ownable (access control)\n")
	}
	if r.HasReentrancyGuard {
		b.WriteString("• ✅ Protected against reentrancy attacks\n")
	}
	if r.HasPayable {
		b.WriteString("• ✅ Can receive ETH (payable functions)\n")
	}

	b.WriteString("\nSecurity Notes:\n")
	if r.HasPayable && !r.HasReentrancyGuard {
		b.WriteString("• ⚠️ Contains payable functions without ReentrancyGuard\n")
	}
	if r.HasSelfDestruct {
		b.WriteString("• ⚠️ Contains selfdestruct - contract can be destroyed\n")
	}
	if r.HasDelegateCall {
		b.WriteString("• ⚠️ Uses delegatecall - potential security risk\n")
	}

	return b.String()
}

// UnrelatedFileMessage is the decline shown for attachments with no
// blockchain content.
func UnrelatedFileMessage(name string) string {
	return fmt.Sprintf("❌ Not Blockchain-Related\n\nI can only analyze blockchain, cryptocurrency, and Web3-related files. The file %q doesn't appear to contain blockchain-related content.\n\nI can help with:\n• Solidity smart contracts (.sol)\n• Transaction receipts (images)\n• Wallet screenshots (images)\n• Blockchain configuration files\n• Web3 documentation\n• NFT metadata", name)
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
