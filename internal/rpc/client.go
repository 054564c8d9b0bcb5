package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arionchat/arion/internal/models"
)

// Client talks to the blockchain-data provider for one network. It wraps the
// provider's raw JSON-RPC endpoint plus its NFT and token-data REST APIs.
type Client struct {
	httpClient *http.Client
	network    models.Network
	rpcURL     string
	nftURL     string
	dataURL    string
}

type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error"`
	ID      int             `json:"id"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// NewClient creates a provider client for the named network.
func NewClient(networkName, apiKey string) (*Client, error) {
	network, exists := models.GetNetwork(networkName)
	if !exists {
		return nil, fmt.Errorf("unsupported network: %s", networkName)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		network: network,
		rpcURL:  fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", network.AlchemySlug, apiKey),
		nftURL:  fmt.Sprintf("https://%s.g.alchemy.com/nft/v3/%s", network.AlchemySlug, apiKey),
		dataURL: fmt.Sprintf("https://api.g.alchemy.com/data/v1/%s", apiKey),
	}, nil
}

// NewClientWithEndpoints creates a client with explicit endpoint URLs. Used
// by tests to point at a local fake provider.
func NewClientWithEndpoints(networkName, rpcURL, nftURL, dataURL string) (*Client, error) {
	network, exists := models.GetNetwork(networkName)
	if !exists {
		return nil, fmt.Errorf("unsupported network: %s", networkName)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		network:    network,
		rpcURL:     rpcURL,
		nftURL:     nftURL,
		dataURL:    dataURL,
	}, nil
}

// GetNetwork returns the network information for this client
func (c *Client) GetNetwork() models.Network {
	return c.network
}

// call makes a JSON-RPC call to the provider node
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, bodyPreview)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w (body: %s)", err, bodyPreview)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// callString makes a JSON-RPC call whose result is a plain hex string.
func (c *Client) callString(ctx context.Context, method string, params interface{}) (string, error) {
	result, err := c.call(ctx, method, params)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return "", fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return s, nil
}

// GetBalance returns the native-token balance of an address as a decimal
// ether string.
func (c *Client) GetBalance(ctx context.Context, address string) (string, error) {
	balance, err := c.callString(ctx, "eth_getBalance", []string{address, "latest"})
	if err != nil {
		return "", newChainError(c.network.Name, "getBalance", "could not fetch native balance", err)
	}
	return WeiToEther(balance), nil
}

// getCode fetches contract bytecode for an address.
func (c *Client) getCode(ctx context.Context, address string) (string, error) {
	return c.callString(ctx, "eth_getCode", []string{address, "latest"})
}

// GetGasPrice returns the current gas price in gwei as a decimal string.
func (c *Client) GetGasPrice(ctx context.Context) (string, error) {
	wei, err := c.callString(ctx, "eth_gasPrice", []string{})
	if err != nil {
		return "", newChainError(c.network.Name, "getGasPrice", "could not fetch gas price", err)
	}
	return WeiToGwei(wei), nil
}

// GetBlock retrieves block data by number.
func (c *Client) GetBlock(ctx context.Context, number int64) (*models.BlockInfo, error) {
	numberHex := fmt.Sprintf("0x%x", number)
	result, err := c.call(ctx, "eth_getBlockByNumber", []interface{}{numberHex, false})
	if err != nil {
		return nil, newChainError(c.network.Name, "getBlock", fmt.Sprintf("could not fetch block %d", number), err)
	}

	var block map[string]interface{}
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, newChainError(c.network.Name, "getBlock", "malformed block response", err)
	}
	if block == nil {
		return nil, newChainError(c.network.Name, "getBlock", fmt.Sprintf("block %d not found", number), nil)
	}

	info := &models.BlockInfo{
		Network:  c.network.Name,
		Number:   HexToInt64(str(block["number"])),
		Hash:     str(block["hash"]),
		GasUsed:  HexToUint64(str(block["gasUsed"])),
		GasLimit: HexToUint64(str(block["gasLimit"])),
		Miner:    str(block["miner"]),
	}

	if ts := HexToInt64(str(block["timestamp"])); ts > 0 {
		info.Timestamp = time.Unix(ts, 0).UTC()
	}
	if txs, ok := block["transactions"].([]interface{}); ok {
		info.TxCount = len(txs)
	}
	if baseFee := str(block["baseFeePerGas"]); baseFee != "" {
		info.BaseFeeGwei = WeiToGwei(baseFee)
	}

	return info, nil
}

// GetTransaction retrieves transaction data by hash.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*models.TransactionInfo, error) {
	result, err := c.call(ctx, "eth_getTransactionByHash", []string{txHash})
	if err != nil {
		return nil, newChainError(c.network.Name, "getTransaction", "could not fetch transaction", err)
	}

	var tx map[string]interface{}
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, newChainError(c.network.Name, "getTransaction", "malformed transaction response", err)
	}
	if tx == nil {
		return nil, newChainError(c.network.Name, "getTransaction", "transaction not found", nil)
	}

	return &models.TransactionInfo{
		Network:      c.network.Name,
		Hash:         str(tx["hash"]),
		From:         ChecksumAddress(str(tx["from"])),
		To:           ChecksumAddress(str(tx["to"])),
		ValueEther:   WeiToEther(str(tx["value"])),
		GasPriceGwei: WeiToGwei(str(tx["gasPrice"])),
		BlockNumber:  HexToInt64(str(tx["blockNumber"])),
		Nonce:        HexToUint64(str(tx["nonce"])),
	}, nil
}

// GetAddressInfo retrieves native balance, contract status, and nonce for an
// address. The three lookups run in parallel; any single failure fails the
// whole lookup since each field is part of the answer.
func (c *Client) GetAddressInfo(ctx context.Context, address string) (*models.AddressInfo, error) {
	// Buffered so the senders never block: on a failed lookup the receive
	// loop below returns early and the other goroutines must still exit.
	balanceChan := make(chan string, 1)
	codeChan := make(chan string, 1)
	nonceChan := make(chan string, 1)
	errChan := make(chan error, 3)

	go func() {
		balance, err := c.callString(ctx, "eth_getBalance", []string{address, "latest"})
		if err != nil {
			errChan <- err
			return
		}
		balanceChan <- balance
	}()

	go func() {
		code, err := c.getCode(ctx, address)
		if err != nil {
			errChan <- err
			return
		}
		codeChan <- code
	}()

	go func() {
		nonce, err := c.callString(ctx, "eth_getTransactionCount", []string{address, "latest"})
		if err != nil {
			errChan <- err
			return
		}
		nonceChan <- nonce
	}()

	var balance, code, nonce string
	for i := 0; i < 3; i++ {
		select {
		case balance = <-balanceChan:
		case code = <-codeChan:
		case nonce = <-nonceChan:
		case err := <-errChan:
			return nil, newChainError(c.network.Name, "getAddressInfo", "could not fetch address info", err)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &models.AddressInfo{
		Network:      c.network.Name,
		Address:      ChecksumAddress(address),
		BalanceEther: WeiToEther(balance),
		IsContract:   code != "" && code != "0x",
		TxCount:      HexToUint64(nonce),
	}, nil
}

// str extracts a string field from loosely typed provider JSON.
func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
