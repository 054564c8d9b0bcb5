package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/arionchat/arion/internal/models"
)

// Standard ERC-20 function selectors.
var (
	erc20Name     = "0x06fdde03" // name()
	erc20Symbol   = "0x95d89b41" // symbol()
	erc20Decimals = "0x313ce567" // decimals()
)

// ValidateContract checks whether an address holds deployed bytecode on this
// client's network. For contracts it additionally attempts to resolve token
// metadata and the deployer; both are best effort and never fail the
// validation itself.
func (c *Client) ValidateContract(ctx context.Context, address string) (*models.ContractValidation, error) {
	validation := &models.ContractValidation{
		Address: ChecksumAddress(address),
		Chain:   c.network.Name,
		Network: c.network.AlchemySlug,
	}

	code, err := c.getCode(ctx, address)
	if err != nil {
		return nil, newChainError(c.network.Name, "validateContract", "could not fetch contract code", err)
	}

	if code == "" || code == "0x" {
		validation.Valid = true
		validation.IsContract = false
		validation.Message = "Address has no deployed bytecode on this network"
		return validation, nil
	}

	validation.Valid = true
	validation.IsContract = true
	validation.BytecodeLength = (len(code) - 2) / 2

	validation.Metadata = c.fetchContractMetadata(ctx, address)

	if creator, tx := c.fetchContractCreator(ctx, address); creator != "" {
		validation.Creator = ChecksumAddress(creator)
		validation.CreationTx = tx
	}

	return validation, nil
}

// GetTokenMetadata fetches token metadata for a contract via the provider's
// dedicated method.
func (c *Client) GetTokenMetadata(ctx context.Context, address string) (*models.TokenMetadata, error) {
	result, err := c.call(ctx, "alchemy_getTokenMetadata", []interface{}{address})
	if err != nil {
		return nil, newChainError(c.network.Name, "getTokenMetadata", "could not fetch token metadata", err)
	}

	var raw struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals *int   `json:"decimals"`
		Logo     string `json:"logo"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, newChainError(c.network.Name, "getTokenMetadata", "malformed metadata response", err)
	}

	meta := &models.TokenMetadata{
		Name:   raw.Name,
		Symbol: raw.Symbol,
		Logo:   raw.Logo,
	}
	if raw.Decimals != nil {
		meta.Decimals = *raw.Decimals
	}
	return meta, nil
}

// fetchContractMetadata resolves token metadata for a contract, falling back
// to direct eth_call lookups when the provider method yields nothing. Returns
// nil when the contract exposes no token interface.
func (c *Client) fetchContractMetadata(ctx context.Context, address string) *models.TokenMetadata {
	if meta, err := c.GetTokenMetadata(ctx, address); err == nil {
		if meta.Name != "" || meta.Symbol != "" {
			return meta
		}
	}

	meta := &models.TokenMetadata{}
	if result, err := c.ethCall(ctx, address, erc20Name); err == nil {
		meta.Name = decodeString(result)
	}
	if result, err := c.ethCall(ctx, address, erc20Symbol); err == nil {
		meta.Symbol = decodeString(result)
	}
	if result, err := c.ethCall(ctx, address, erc20Decimals); err == nil {
		if d := decodeUint256(result); d != nil {
			meta.Decimals = int(d.Int64())
		}
	}

	if meta.Name == "" && meta.Symbol == "" {
		return nil
	}
	return meta
}

// fetchContractCreator finds the deployment transaction by asking for the
// earliest external transfer into the contract address.
func (c *Client) fetchContractCreator(ctx context.Context, address string) (creator, creationTx string) {
	params := []interface{}{
		map[string]interface{}{
			"fromBlock": "0x0",
			"toAddress": address,
			"category":  []string{"external"},
			"maxCount":  "0x1",
			"order":     "asc",
		},
	}

	result, err := c.call(ctx, "alchemy_getAssetTransfers", params)
	if err != nil {
		return "", ""
	}

	var raw rawTransfersResult
	if err := json.Unmarshal(result, &raw); err != nil || len(raw.Transfers) == 0 {
		return "", ""
	}

	return raw.Transfers[0].From, raw.Transfers[0].Hash
}

// ethCall performs a read-only contract call and returns the raw hex result.
func (c *Client) ethCall(ctx context.Context, to, data string) (string, error) {
	params := []interface{}{
		map[string]interface{}{
			"to":   to,
			"data": data,
		},
		"latest",
	}

	result, err := c.call(ctx, "eth_call", params)
	if err != nil {
		return "", err
	}

	var hexResult string
	if err := json.Unmarshal(result, &hexResult); err != nil {
		return "", fmt.Errorf("malformed eth_call result: %w", err)
	}
	return hexResult, nil
}

// decodeString decodes an ABI-encoded string return value.
func decodeString(hexData string) string {
	if len(hexData) < 2 {
		return ""
	}

	data := hexData[2:]
	if len(data) < 128 {
		return ""
	}

	// Skip offset (first 32 bytes); the next 32 bytes carry the length.
	lengthHex := data[64:128]
	length, err := strconv.ParseInt(lengthHex, 16, 64)
	if err != nil || length <= 0 {
		return ""
	}

	if len(data) < 128+int(length)*2 {
		return ""
	}

	stringBytes, err := hex.DecodeString(data[128 : 128+int(length)*2])
	if err != nil {
		return ""
	}
	return string(stringBytes)
}

// decodeUint256 decodes an ABI-encoded uint256 return value.
func decodeUint256(hexData string) *big.Int {
	if len(hexData) < 2 {
		return nil
	}

	data := hexData[2:]
	if len(data) != 64 {
		return nil
	}

	value, ok := new(big.Int).SetString(data, 16)
	if !ok {
		return nil
	}
	return value
}
