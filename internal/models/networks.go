package models

import (
	"fmt"
	"os"
	"strings"
)

// Network represents a supported EVM-compatible blockchain network.
type Network struct {
	Name         string `json:"name"`         // canonical name, e.g. "ethereum"
	DisplayName  string `json:"display_name"` // e.g. "Ethereum"
	AlchemySlug  string `json:"alchemy_slug"` // provider network identifier, e.g. "eth-mainnet"
	ChainID      int64  `json:"chain_id"`
	Explorer     string `json:"explorer"`
	NativeSymbol string `json:"native_symbol"`
}

// DefaultNetwork is the network assumed when a query names none.
const DefaultNetwork = "ethereum"

// SupportedNetworks will be populated from environment variables or defaults
var SupportedNetworks map[string]Network

// Default networks (used as fallback if no env vars are configured)
var defaultNetworks = map[string]Network{
	"ethereum": {
		Name:         "ethereum",
		DisplayName:  "Ethereum",
		AlchemySlug:  "eth-mainnet",
		ChainID:      1,
		Explorer:     "https://etherscan.io",
		NativeSymbol: "ETH",
	},
	"polygon": {
		Name:         "polygon",
		DisplayName:  "Polygon",
		AlchemySlug:  "polygon-mainnet",
		ChainID:      137,
		Explorer:     "https://polygonscan.com",
		NativeSymbol: "POL",
	},
	"arbitrum": {
		Name:         "arbitrum",
		DisplayName:  "Arbitrum",
		AlchemySlug:  "arb-mainnet",
		ChainID:      42161,
		Explorer:     "https://arbiscan.io",
		NativeSymbol: "ETH",
	},
	"optimism": {
		Name:         "optimism",
		DisplayName:  "Optimism",
		AlchemySlug:  "opt-mainnet",
		ChainID:      10,
		Explorer:     "https://optimistic.etherscan.io",
		NativeSymbol: "ETH",
	},
	"base": {
		Name:         "base",
		DisplayName:  "Base",
		AlchemySlug:  "base-mainnet",
		ChainID:      8453,
		Explorer:     "https://basescan.org",
		NativeSymbol: "ETH",
	},
}

// LoadNetworksFromEnv loads network configurations from environment variables.
// Uses the pattern: ALCHEMY_NETWORK_<NAME> and EXPLORER_URL_<NAME>, where
// <NAME> is the upper-cased canonical network name.
func LoadNetworksFromEnv() map[string]Network {
	networks := make(map[string]Network)

	// First, load defaults
	for name, network := range defaultNetworks {
		networks[name] = network
	}

	for name, network := range networks {
		envName := strings.ToUpper(name)

		if slug := os.Getenv("ALCHEMY_NETWORK_" + envName); slug != "" {
			network.AlchemySlug = slug
		}
		if explorer := os.Getenv("EXPLORER_URL_" + envName); explorer != "" {
			network.Explorer = explorer
		}

		networks[name] = network
	}

	return networks
}

// InitializeNetworks initializes the SupportedNetworks from environment variables or defaults
func InitializeNetworks() {
	SupportedNetworks = LoadNetworksFromEnv()
}

// IsValidNetwork checks if the network name is supported
func IsValidNetwork(name string) bool {
	if SupportedNetworks == nil {
		InitializeNetworks()
	}
	_, exists := SupportedNetworks[strings.ToLower(name)]
	return exists
}

// GetNetwork returns network info for a given canonical name
func GetNetwork(name string) (Network, bool) {
	if SupportedNetworks == nil {
		InitializeNetworks()
	}
	network, exists := SupportedNetworks[strings.ToLower(name)]
	return network, exists
}

// ListNetworkNames returns the canonical names of all configured networks
func ListNetworkNames() []string {
	if SupportedNetworks == nil {
		InitializeNetworks()
	}

	var names []string
	for name := range SupportedNetworks {
		names = append(names, name)
	}
	return names
}

// ParseNetworkList parses a comma-separated network list, validating each
// entry. An empty input yields the default network. Entries may carry a
// ":<chain id>" suffix (e.g. "ethereum:1") which is ignored.
func ParseNetworkList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{DefaultNetwork}, nil
	}

	var networks []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if idx := strings.Index(name, ":"); idx >= 0 {
			name = name[:idx]
		}
		if name == "" {
			continue
		}
		if !IsValidNetwork(name) {
			return nil, fmt.Errorf("unsupported chain: %s", name)
		}
		networks = append(networks, name)
	}

	if len(networks) == 0 {
		return []string{DefaultNetwork}, nil
	}
	return networks, nil
}

// ExplorerAddressURL builds an explorer deep link for an address on a network.
func ExplorerAddressURL(network, address string) string {
	n, ok := GetNetwork(network)
	if !ok {
		n = defaultNetworks[DefaultNetwork]
	}
	return fmt.Sprintf("%s/address/%s", n.Explorer, address)
}

// ExplorerTxURL builds an explorer deep link for a transaction on a network.
func ExplorerTxURL(network, hash string) string {
	n, ok := GetNetwork(network)
	if !ok {
		n = defaultNetworks[DefaultNetwork]
	}
	return fmt.Sprintf("%s/tx/%s", n.Explorer, hash)
}

// OpenSeaAssetURL builds an OpenSea deep link for an NFT. OpenSea uses the
// canonical chain name in its asset paths.
func OpenSeaAssetURL(network, contract, tokenID string) string {
	if contract == "" || tokenID == "" {
		return ""
	}
	return fmt.Sprintf("https://opensea.io/assets/%s/%s/%s", strings.ToLower(network), contract, tokenID)
}
