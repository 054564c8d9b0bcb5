package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/rpc"
)

// Integration test against live Alchemy endpoints. Requires ALCHEMY_API_KEY.
func TestLiveChainData_Integration(t *testing.T) {
	apiKey := os.Getenv("ALCHEMY_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: ALCHEMY_API_KEY required")
	}

	models.InitializeNetworks()

	registry, err := rpc.NewRegistry(apiKey)
	if err != nil {
		t.Fatalf("Failed to initialize registry: %v", err)
	}

	// Well-known addresses that are stable enough to assert against.
	const (
		vitalikWallet = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
		usdtContract  = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t.Run("Portfolio across networks", func(t *testing.T) {
		portfolio, err := registry.GetPortfolio(ctx, vitalikWallet, []string{"ethereum", "polygon"})
		if err != nil {
			t.Fatalf("GetPortfolio failed: %v", err)
		}
		if len(portfolio.Results) != 2 {
			t.Fatalf("Expected 2 network results, got %d", len(portfolio.Results))
		}

		fulfilled := 0
		for _, result := range portfolio.Results {
			if result.Status == models.StatusFulfilled {
				fulfilled++
			}
		}
		if fulfilled == 0 {
			t.Fatal("Expected at least one network to succeed")
		}
		if len(portfolio.Tokens) == 0 {
			t.Error("Expected at least one token with a non-zero balance")
		}
		for _, token := range portfolio.Tokens {
			if token.Balance == "" {
				t.Errorf("Token %s has empty balance", token.Symbol)
			}
		}
	})

	t.Run("Contract validation", func(t *testing.T) {
		client, err := registry.Client("ethereum")
		if err != nil {
			t.Fatalf("Failed to get ethereum client: %v", err)
		}

		validation, err := client.ValidateContract(ctx, usdtContract)
		if err != nil {
			t.Fatalf("ValidateContract failed: %v", err)
		}
		if !validation.IsContract {
			t.Fatal("USDT should be detected as a contract")
		}
		if validation.BytecodeLength == 0 {
			t.Error("Expected non-zero bytecode length")
		}
		if validation.Metadata == nil || !strings.EqualFold(validation.Metadata.Symbol, "USDT") {
			t.Errorf("Expected USDT metadata, got %+v", validation.Metadata)
		}
	})

	t.Run("Gas price lookup", func(t *testing.T) {
		client, err := registry.Client("ethereum")
		if err != nil {
			t.Fatalf("Failed to get ethereum client: %v", err)
		}

		gwei, err := client.GetGasPrice(ctx)
		if err != nil {
			t.Fatalf("GetGasPrice failed: %v", err)
		}
		if gwei == "" || gwei == "0" {
			t.Errorf("Expected positive gas price, got %q", gwei)
		}
	})
}
