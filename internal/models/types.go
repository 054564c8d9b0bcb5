package models

import (
	"regexp"
	"time"
)

// ChatMessage is one turn of a conversation, as sent by the client.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// FileAttachment carries an uploaded file alongside a chat message. Data is
// either a data-URL (binary/image uploads) or the raw decoded text of the
// file.
type FileAttachment struct {
	Name string `json:"name"`
	Type string `json:"type"` // MIME type
	Data string `json:"data"`
}

// ChatRequest is the input to the chat endpoint.
type ChatRequest struct {
	Message       string          `json:"message"`
	Messages      []ChatMessage   `json:"messages,omitempty"` // conversation history, oldest first
	WalletAddress string          `json:"wallet_address,omitempty"`
	File          *FileAttachment `json:"file,omitempty"`
	Image         string          `json:"image,omitempty"` // data-URL
}

// ChatResponse is the chat endpoint's reply. Segments is the post-processed
// view of Response for clients that render images and links inline.
type ChatResponse struct {
	Response string    `json:"response"`
	Segments []Segment `json:"segments,omitempty"`
}

// Segment kinds produced by the response post-processor.
const (
	SegmentText  = "text"
	SegmentImage = "image"
	SegmentLink  = "link"
)

// Segment is one renderable piece of an assistant reply.
type Segment struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"` // text content, or link/image label
	URL  string `json:"url,omitempty"`
}

// QueryIntent is the classification result for a user message.
type QueryIntent struct {
	IsBlockchainRelated     bool   `json:"is_blockchain_related"`
	WantsBalance            bool   `json:"wants_balance"`
	WantsNFTs               bool   `json:"wants_nfts"`
	WantsTransactions       bool   `json:"wants_transactions"`
	WantsContractValidation bool   `json:"wants_contract_validation"`
	MentionsContract        bool   `json:"mentions_contract"`
	WantsGasPrice           bool   `json:"wants_gas_price"`
	ExtractedAddress        string `json:"extracted_address,omitempty"`
	ExtractedTxHash         string `json:"extracted_tx_hash,omitempty"`
	ExtractedBlockNumber    int64  `json:"extracted_block_number,omitempty"` // 0 = none
	HasBlockNumber          bool   `json:"has_block_number"`
	Network                 string `json:"network"`
}

// NormalizedToken is one token position in a wallet portfolio. Balance is a
// decimal string computed from the atomic integer balance and the token's
// decimals; zero balances are filtered out before display.
type NormalizedToken struct {
	Network         string   `json:"network"`
	ContractAddress string   `json:"contract_address,omitempty"` // empty = native token
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name,omitempty"`
	Decimals        int      `json:"decimals"`
	Balance         string   `json:"balance"`
	PriceUSD        *float64 `json:"price_usd,omitempty"`
	ValueUSD        *float64 `json:"value_usd,omitempty"`
	Logo            string   `json:"logo,omitempty"`
}

// NormalizedNFT is one owned NFT with its display image resolved.
type NormalizedNFT struct {
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
	TokenType       string `json:"token_type,omitempty"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	CollectionName  string `json:"collection_name,omitempty"`
	Network         string `json:"network"`
}

// NormalizedTransfer is one entry of an address's transfer history.
type NormalizedTransfer struct {
	Hash        string    `json:"hash"`
	From        string    `json:"from"`
	To          string    `json:"to,omitempty"` // empty = contract creation
	Value       string    `json:"value"`
	Asset       string    `json:"asset"`
	Category    string    `json:"category"` // external, erc20, erc721, erc1155
	BlockNumber int64     `json:"block_number"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// NetworkStatus tags one network's outcome in a multi-network fetch.
const (
	StatusFulfilled = "fulfilled"
	StatusRejected  = "rejected"
)

// NetworkResult records per-network success or failure for partial-success
// aggregation.
type NetworkResult struct {
	Network string `json:"network"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Portfolio aggregates token balances across one or more networks.
type Portfolio struct {
	Address       string            `json:"address"`
	Networks      []string          `json:"networks"`
	Tokens        []NormalizedToken `json:"tokens"`
	TotalValueUSD float64           `json:"total_value_usd"`
	Results       []NetworkResult   `json:"results"`
}

// NFTCollection aggregates owned NFTs across one or more networks.
type NFTCollection struct {
	Address  string          `json:"address"`
	NFTs     []NormalizedNFT `json:"nfts"`
	Count    int             `json:"count"`
	Results  []NetworkResult `json:"results"`
	Networks []string        `json:"networks"`
}

// TokenMetadata is the provider's metadata for a token contract.
type TokenMetadata struct {
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int    `json:"decimals,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

// ContractValidation is the result of checking whether an address is a
// deployed contract. Metadata, Creator, and CreationTx are best effort and
// may be absent.
type ContractValidation struct {
	Valid          bool           `json:"valid"`
	IsContract     bool           `json:"is_contract"`
	Address        string         `json:"address"`
	Chain          string         `json:"chain"`
	Network        string         `json:"network"` // provider network identifier
	BytecodeLength int            `json:"bytecode_length,omitempty"`
	Metadata       *TokenMetadata `json:"metadata,omitempty"`
	Creator        string         `json:"creator,omitempty"`
	CreationTx     string         `json:"creation_tx,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// BlockInfo is a point lookup of one block.
type BlockInfo struct {
	Network     string    `json:"network"`
	Number      int64     `json:"number"`
	Hash        string    `json:"hash"`
	Timestamp   time.Time `json:"timestamp"`
	TxCount     int       `json:"tx_count"`
	GasUsed     uint64    `json:"gas_used"`
	GasLimit    uint64    `json:"gas_limit"`
	Miner       string    `json:"miner,omitempty"`
	BaseFeeGwei string    `json:"base_fee_gwei,omitempty"`
}

// TransactionInfo is a point lookup of one transaction.
type TransactionInfo struct {
	Network      string `json:"network"`
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to,omitempty"`
	ValueEther   string `json:"value_ether"`
	GasPriceGwei string `json:"gas_price_gwei,omitempty"`
	BlockNumber  int64  `json:"block_number"`
	Nonce        uint64 `json:"nonce"`
}

// AddressInfo is a point lookup of one address.
type AddressInfo struct {
	Network      string `json:"network"`
	Address      string `json:"address"`
	BalanceEther string `json:"balance_ether"`
	IsContract   bool   `json:"is_contract"`
	TxCount      uint64 `json:"tx_count"`
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a strict 0x-prefixed 40-hex-character
// address. No checksum validation is applied.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}
