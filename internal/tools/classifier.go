package tools

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arionchat/arion/internal/models"
)

// Classifier routes free-form chat messages to blockchain data lookups using
// keyword tables and pattern extraction. It deliberately runs before any LLM
// call so that data fetching never depends on model availability.
type Classifier struct{}

// NewClassifier creates a query classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Keyword tables. Matching is case-insensitive substring containment, so
// multi-word entries match anywhere in the message.
var (
	blockchainKeywords = []string{
		"balance", "wallet", "token", "eth", "ethereum", "polygon", "my tokens",
		"my balance", "check balance", "show balance", "how much", "transfer",
		"send", "transaction", "tx", "contract", "nft", "gas", "wei", "gwei",
		"smart contract", "contract address", "validate contract", "block",
	}

	balanceKeywords = []string{
		"my balance", "my wallet", "my tokens", "check my",
		"show my", "what do i have", "how much do i have",
		"what's my", "check balance", "show balance", "balance on",
		"my portfolio", "show portfolio", "my holdings", "check wallet",
	}

	nftKeywords = []string{"nft", "nfts", "my nft", "show nft", "my collection"}

	transactionKeywords = []string{
		"transaction", "transactions", "my transactions",
		"recent transactions", "tx history",
	}

	contractKeywords = []string{
		"contract", "smart contract", "contract address", "validate contract",
		"check contract", "contract details", "token contract", "about this contract",
	}

	gasKeywords = []string{"gas price", "gas fee", "gas cost", "current gas", "gwei"}
)

// Tunables for the follow-up heuristic.
var (
	// FollowUpMaxLength is the message length below which a reply to prior
	// conversation counts as a follow-up.
	FollowUpMaxLength = 50

	// followUpStarters are continuation words that mark a message as
	// referring back to the previous answer regardless of length.
	followUpStarters = []string{
		"what about", "and ", "also", "how about", "same for",
		"why", "what does that mean", "more", "again", "it", "that", "those",
	}
)

var (
	txHashRegex      = regexp.MustCompile(`0x[a-fA-F0-9]{64}`)
	addressRegex     = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	blockNumberRegex = regexp.MustCompile(`(?i)block\s*(?:#|number\s*)?(\d+)`)
)

// Classify derives a QueryIntent from a chat message.
func (c *Classifier) Classify(message string) models.QueryIntent {
	lower := strings.ToLower(message)

	intent := models.QueryIntent{
		IsBlockchainRelated: containsAny(lower, blockchainKeywords),
		Network:             c.ExtractNetwork(message),
	}

	// Transaction hashes are 64 hex chars; an address pattern would match
	// their first 40, so the hash check must run first.
	if hash := txHashRegex.FindString(message); hash != "" {
		intent.ExtractedTxHash = hash
		intent.IsBlockchainRelated = true
	} else if address := addressRegex.FindString(message); address != "" {
		intent.ExtractedAddress = address
		intent.IsBlockchainRelated = true
	}

	if m := blockNumberRegex.FindStringSubmatch(message); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			intent.ExtractedBlockNumber = n
			intent.HasBlockNumber = true
			intent.IsBlockchainRelated = true
		}
	}

	intent.WantsBalance = containsAny(lower, balanceKeywords)
	intent.WantsNFTs = containsAny(lower, nftKeywords)
	intent.WantsTransactions = containsAny(lower, transactionKeywords)
	intent.WantsGasPrice = containsAny(lower, gasKeywords)

	// Contract validation needs both a keyword and an address in the same
	// message; an address alone is too ambiguous to trigger bytecode checks.
	// MentionsContract survives without an address so callers can ask for
	// one instead of guessing.
	intent.MentionsContract = containsAny(lower, contractKeywords)
	intent.WantsContractValidation = intent.MentionsContract &&
		intent.ExtractedAddress != ""

	return intent
}

// ExtractNetwork finds the network a message refers to. Checks run in
// specificity order: "polygon" before "base" before the rollups, with
// ethereum both the explicit and the fallback match. "arb" and "op" are
// accepted as shorthand.
func (c *Classifier) ExtractNetwork(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "polygon"):
		return "polygon"
	case strings.Contains(lower, "base"):
		return "base"
	case strings.Contains(lower, "arbitrum") || strings.Contains(lower, "arb"):
		return "arbitrum"
	case strings.Contains(lower, "optimism") || strings.Contains(lower, "op"):
		return "optimism"
	case strings.Contains(lower, "eth") || strings.Contains(lower, "ethereum"):
		return "ethereum"
	}
	return models.DefaultNetwork
}

// MentionsNetwork reports whether the message names a network explicitly,
// as opposed to ExtractNetwork falling back to the default.
func (c *Classifier) MentionsNetwork(message string) bool {
	lower := strings.ToLower(message)
	for _, name := range []string{"polygon", "base", "arbitrum", "arb", "optimism", "op", "eth"} {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// IsFollowUp reports whether a message continues the previous exchange
// rather than opening a new topic. Short messages and messages opening with
// a continuation word count as follow-ups, but only when there is prior
// conversation to follow up on.
func (c *Classifier) IsFollowUp(message string, history []models.ChatMessage) bool {
	if len(history) == 0 {
		return false
	}

	trimmed := strings.TrimSpace(message)
	if len(trimmed) < FollowUpMaxLength {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, starter := range followUpStarters {
		if strings.HasPrefix(lower, starter) {
			return true
		}
	}
	return false
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
