package tools

import (
	"strings"
	"testing"
)

const sampleContract = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.20;

import "@openzeppelin/contracts/access/Ownable.sol";

contract Vault is Ownable {
    event Deposited(address indexed from, uint256 amount);

    modifier nonZero(uint256 amount) {
        require(amount > 0, "zero");
        _;
    }

    constructor() Ownable(msg.sender) {}

    function deposit() external payable nonZero(msg.value) {
        emit Deposited(msg.sender, msg.value);
    }

    function sweep(address target) external onlyOwner {
        selfdestruct(payable(target));
    }
}
`

func TestClassifyFile(t *testing.T) {
	if ClassifyFile("vault.sol", "text/plain", sampleContract) != FileKindSolidity {
		t.Error("expected Solidity by extension")
	}
	if ClassifyFile("notes.txt", "text/plain", "pragma solidity ^0.8.0;") != FileKindSolidity {
		t.Error("expected Solidity by content")
	}
	if ClassifyFile("receipt.png", "image/png", "") != FileKindImage {
		t.Error("expected image by mime type")
	}
	if ClassifyFile("readme.txt", "text/plain", "my ethereum wallet notes") != FileKindBlockchainText {
		t.Error("expected blockchain text")
	}
	if ClassifyFile("recipe.txt", "text/plain", "boil the pasta for 9 minutes") != FileKindUnrelated {
		t.Error("expected unrelated file")
	}
}

func TestAnalyzeSolidity(t *testing.T) {
	report := AnalyzeSolidity("vault.sol", sampleContract)

	if report.ContractName != "Vault" {
		t.Errorf("expected contract Vault, got %q", report.ContractName)
	}
	if !strings.HasPrefix(report.Pragma, "pragma solidity") {
		t.Errorf("unexpected pragma %q", report.Pragma)
	}
	if report.Functions != 2 {
		t.Errorf("expected 2 functions, got %d", report.Functions)
	}
	if report.Events != 1 {
		t.Errorf("expected 1 event, got %d", report.Events)
	}
	if report.Modifiers != 1 {
		t.Errorf("expected 1 modifier, got %d", report.Modifiers)
	}
	if !report.HasConstructor || !report.HasPayable || !report.UsesOpenZeppelin || !report.HasOwnable {
		t.Errorf("feature detection failed: %+v", report)
	}
	if !report.HasSelfDestruct {
		t.Error("selfdestruct not detected")
	}
	if report.HasReentrancyGuard {
		t.Error("ReentrancyGuard falsely detected")
	}
}

func TestSolidityReport_Render(t *testing.T) {
	out := AnalyzeSolidity("vault.sol", sampleContract).Render()

	for _, want := range []string{
		"Solidity Contract Analysis: vault.sol",
		"Contract Name: Vault",
		"• Functions: 2",
		"Uses OpenZeppelin libraries",
		"payable functions without ReentrancyGuard",
		"selfdestruct - contract can be destroyed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in report:\n%s", want, out)
		}
	}
}

func TestSolidityReport_NoContractLine(t *testing.T) {
	report := AnalyzeSolidity("lib.sol", "pragma solidity ^0.8.0;\nlibrary Math {}")
	if report.ContractName != "" {
		t.Errorf("expected empty contract name, got %q", report.ContractName)
	}
	if !strings.Contains(report.Render(), "Contract Name: Unknown") {
		t.Error("expected Unknown placeholder in render")
	}
}
