package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/arionchat/arion/internal/models"
)

// This file is the narrow adapter between the provider's loosely typed JSON
// and the normalized result types. Nothing outside this package sees raw
// provider fields.

const (
	maxTransferCount = 50
	nftPageSize      = 100
	ipfsGateway      = "https://ipfs.io/ipfs/"
)

// rawTokensResponse is the provider's tokens-by-address page shape.
type rawTokensResponse struct {
	Data struct {
		Tokens []struct {
			Network       string `json:"network"`
			TokenAddress  string `json:"tokenAddress"`
			TokenBalance  string `json:"tokenBalance"`
			TokenMetadata struct {
				Name     string `json:"name"`
				Symbol   string `json:"symbol"`
				Decimals *int   `json:"decimals"`
				Logo     string `json:"logo"`
			} `json:"tokenMetadata"`
			TokenPrices []struct {
				Currency string `json:"currency"`
				Value    string `json:"value"`
			} `json:"tokenPrices"`
		} `json:"tokens"`
		PageKey string `json:"pageKey"`
	} `json:"data"`
}

// GetTokenBalances fetches the native balance plus all non-zero ERC-20
// balances for an address on this client's network. Provider pages are
// followed transparently until exhausted. The result is sorted by USD value
// descending with unpriced tokens last.
func (c *Client) GetTokenBalances(ctx context.Context, address string) ([]models.NormalizedToken, error) {
	endpoint := c.dataURL + "/assets/tokens/by-address"

	baseBody := map[string]interface{}{
		"addresses": []map[string]interface{}{
			{"address": address, "networks": []string{c.network.AlchemySlug}},
		},
		"withMetadata":        true,
		"withPrices":          true,
		"includeNativeTokens": true,
		"includeErc20Tokens":  true,
	}

	var tokens []models.NormalizedToken
	pageKey := ""

	for {
		body := make(map[string]interface{}, len(baseBody)+1)
		for k, v := range baseBody {
			body[k] = v
		}
		if pageKey != "" {
			body["pageKey"] = pageKey
		}

		var page rawTokensResponse
		if err := c.postJSON(ctx, endpoint, body, &page); err != nil {
			return nil, newChainError(c.network.Name, "getTokenBalances", "could not fetch token balances", err)
		}

		for _, t := range page.Data.Tokens {
			decimals := 18
			if t.TokenMetadata.Decimals != nil {
				decimals = *t.TokenMetadata.Decimals
			}

			balance := FormatUnits(t.TokenBalance, decimals)
			if IsZeroBalance(balance) {
				continue
			}

			token := models.NormalizedToken{
				Network:         c.network.Name,
				ContractAddress: t.TokenAddress,
				Symbol:          t.TokenMetadata.Symbol,
				Name:            t.TokenMetadata.Name,
				Decimals:        decimals,
				Balance:         balance,
				Logo:            t.TokenMetadata.Logo,
			}
			if token.Symbol == "" {
				if token.ContractAddress == "" {
					token.Symbol = c.network.NativeSymbol
				} else {
					token.Symbol = "TOKEN"
				}
			}

			for _, p := range t.TokenPrices {
				if strings.EqualFold(p.Currency, "usd") {
					price := DecimalToFloat(p.Value)
					if price > 0 {
						value := DecimalToFloat(balance) * price
						token.PriceUSD = &price
						token.ValueUSD = &value
					}
					break
				}
			}

			tokens = append(tokens, token)
		}

		pageKey = page.Data.PageKey
		if pageKey == "" {
			break
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		vi, vj := 0.0, 0.0
		if tokens[i].ValueUSD != nil {
			vi = *tokens[i].ValueUSD
		}
		if tokens[j].ValueUSD != nil {
			vj = *tokens[j].ValueUSD
		}
		return vi > vj
	})

	return tokens, nil
}

// rawNFTResponse is the provider's NFTs-by-owner page shape.
type rawNFTResponse struct {
	OwnedNFTs []struct {
		Contract struct {
			Address         string `json:"address"`
			Name            string `json:"name"`
			OpenSeaMetadata struct {
				CollectionName string `json:"collectionName"`
			} `json:"openSeaMetadata"`
		} `json:"contract"`
		TokenID     string `json:"tokenId"`
		TokenType   string `json:"tokenType"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       struct {
			CachedURL    string `json:"cachedUrl"`
			ThumbnailURL string `json:"thumbnailUrl"`
			OriginalURL  string `json:"originalUrl"`
		} `json:"image"`
		Collection struct {
			Name string `json:"name"`
		} `json:"collection"`
		Raw struct {
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"raw"`
	} `json:"ownedNfts"`
	PageKey    string `json:"pageKey"`
	TotalCount int    `json:"totalCount"`
}

// GetNFTs fetches the NFTs owned by an address on this client's network,
// resolving each NFT's display image and rewriting ipfs:// URIs to an HTTP
// gateway.
func (c *Client) GetNFTs(ctx context.Context, address string) ([]models.NormalizedNFT, error) {
	var nfts []models.NormalizedNFT
	pageKey := ""

	for {
		endpoint := fmt.Sprintf("%s/getNFTsForOwner?owner=%s&withMetadata=true&pageSize=%d",
			c.nftURL, url.QueryEscape(address), nftPageSize)
		if pageKey != "" {
			endpoint += "&pageKey=" + url.QueryEscape(pageKey)
		}

		var page rawNFTResponse
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, newChainError(c.network.Name, "getNFTs", "could not fetch NFTs", err)
		}

		for _, raw := range page.OwnedNFTs {
			nft := models.NormalizedNFT{
				ContractAddress: raw.Contract.Address,
				TokenID:         raw.TokenID,
				TokenType:       raw.TokenType,
				Name:            raw.Name,
				Description:     raw.Description,
				Network:         c.network.Name,
				ThumbnailURL:    ResolveIPFS(raw.Image.ThumbnailURL),
			}

			if nft.Name == "" {
				nft.Name = raw.Contract.Name
			}

			nft.CollectionName = raw.Collection.Name
			if nft.CollectionName == "" {
				nft.CollectionName = raw.Contract.OpenSeaMetadata.CollectionName
			}
			if nft.CollectionName == "" {
				nft.CollectionName = raw.Contract.Name
			}

			// Image resolution priority: provider-cached URL, original URL,
			// thumbnail, then the raw metadata image field.
			image := raw.Image.CachedURL
			if image == "" {
				image = raw.Image.OriginalURL
			}
			if image == "" {
				image = raw.Image.ThumbnailURL
			}
			if image == "" {
				if metaImage, ok := raw.Raw.Metadata["image"].(string); ok {
					image = metaImage
				}
			}
			nft.ImageURL = ResolveIPFS(image)

			nfts = append(nfts, nft)
		}

		pageKey = page.PageKey
		if pageKey == "" {
			break
		}
	}

	return nfts, nil
}

// rawTransfersResult is the provider's asset-transfers shape.
type rawTransfersResult struct {
	Transfers []struct {
		Hash          string   `json:"hash"`
		From          string   `json:"from"`
		To            string   `json:"to"`
		Value         *float64 `json:"value"`
		Asset         string   `json:"asset"`
		Category      string   `json:"category"`
		BlockNum      string   `json:"blockNum"`
		ERC721TokenID string   `json:"erc721TokenId"`
		Metadata      struct {
			BlockTimestamp string `json:"blockTimestamp"`
		} `json:"metadata"`
	} `json:"transfers"`
}

// GetTransactionHistory fetches the 50 most recent transfers (native plus
// token standards) sent from an address, newest first.
func (c *Client) GetTransactionHistory(ctx context.Context, address string) ([]models.NormalizedTransfer, error) {
	params := []interface{}{
		map[string]interface{}{
			"fromAddress":  address,
			"category":     []string{"external", "erc20", "erc721", "erc1155"},
			"maxCount":     fmt.Sprintf("0x%x", maxTransferCount),
			"order":        "desc",
			"withMetadata": true,
		},
	}

	result, err := c.call(ctx, "alchemy_getAssetTransfers", params)
	if err != nil {
		return nil, newChainError(c.network.Name, "getTransactionHistory", "could not fetch transaction history", err)
	}

	var raw rawTransfersResult
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, newChainError(c.network.Name, "getTransactionHistory", "malformed transfers response", err)
	}

	transfers := make([]models.NormalizedTransfer, 0, len(raw.Transfers))
	for _, t := range raw.Transfers {
		transfer := models.NormalizedTransfer{
			Hash:        t.Hash,
			From:        ChecksumAddress(t.From),
			To:          ChecksumAddress(t.To),
			Asset:       t.Asset,
			Category:    t.Category,
			BlockNumber: HexToInt64(t.BlockNum),
		}

		switch {
		case t.Value != nil:
			transfer.Value = trimFloat(*t.Value)
		case t.ERC721TokenID != "":
			transfer.Value = "1"
		default:
			transfer.Value = "0"
		}

		if t.Metadata.BlockTimestamp != "" {
			if ts, err := time.Parse(time.RFC3339, t.Metadata.BlockTimestamp); err == nil {
				transfer.Timestamp = ts
			}
		}

		transfers = append(transfers, transfer)
		if len(transfers) >= maxTransferCount {
			break
		}
	}

	return transfers, nil
}

// ResolveIPFS rewrites an ipfs:// URI to an HTTP gateway URL. Other URLs
// pass through unchanged.
func ResolveIPFS(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return ipfsGateway + strings.TrimPrefix(strings.TrimPrefix(uri, "ipfs://"), "ipfs/")
	}
	return uri
}

// trimFloat renders a transfer value without trailing zeros.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// postJSON issues a POST with a JSON body and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, endpoint string, body interface{}, dest interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req, dest)
}

// getJSON issues a GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.doJSON(req, dest)
}

func (c *Client) doJSON(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, bodyPreview)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
