package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/rpc"
	"github.com/arionchat/arion/internal/tools"
)

// Config holds the model settings for the assistant.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64

	// AuditTemperature is used for Solidity security commentary, where a
	// colder model gives more consistent findings.
	AuditTemperature float64

	HistoryLimit int

	// Retry overrides the model retry policy when MaxAttempts is set.
	Retry tools.LLMRetryConfig
}

// DefaultConfig returns the standard model settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.aimlapi.com/v1",
		Model:            "gpt-4o",
		MaxTokens:        1000,
		Temperature:      0.7,
		AuditTemperature: 0.3,
		HistoryLimit:     10,
	}
}

// NewLLM builds the chat model client from config.
func NewLLM(cfg Config) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}
	return openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.BaseURL),
	)
}

// Agent is the conversational assistant: it classifies a message, fetches
// whatever chain data the message asks for, and has the model narrate the
// result. Chain data fetching never depends on the model, so data survives
// model outages via the plain-text fallback.
type Agent struct {
	registry   *rpc.Registry
	llm        *tools.LLMRetryWrapper
	classifier *tools.Classifier
	formatter  *tools.Formatter
	renderer   *tools.Renderer
	config     Config
	logger     zerolog.Logger
}

// NewAgent wires the assistant together. llm may be nil, in which case every
// reply is the data-only fallback.
func NewAgent(registry *rpc.Registry, llm llms.Model, cfg Config, logger zerolog.Logger) *Agent {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = tools.DefaultLLMRetryConfig()
	}

	var wrapper *tools.LLMRetryWrapper
	if llm != nil {
		wrapper = tools.NewLLMRetryWrapper(llm, retry, logger)
	}

	return &Agent{
		registry:   registry,
		llm:        wrapper,
		classifier: tools.NewClassifier(),
		formatter:  tools.NewFormatter(),
		renderer:   tools.NewRenderer(),
		config:     cfg,
		logger:     logger,
	}
}

// Canned replies for input problems. Kept as plain text so they pass through
// the renderer unchanged.
const (
	invalidContractReply = "❌ Invalid contract address!\n\nPlease provide a valid Ethereum address (0x followed by 40 hex characters). 🔍"
	invalidWalletReply   = "❌ Invalid wallet address!\n\nPlease provide a valid Ethereum address (0x followed by 40 hex characters). 🔍"
	noWalletReply        = "💡 To check wallet balance, either:\n\n1️⃣ Connect your wallet using the button above\n2️⃣ Provide a wallet address in your message (e.g., 'check balance 0x...')\n\nTry again! 🚀"
	modelDownReply       = "⚠️ I'm having trouble reaching my language model right now. Please try again in a moment. 🙏"
)

// dataFallbackPrefix introduces the raw context block when the model cannot
// narrate it.
const dataFallbackPrefix = "⚠️ AI formatting unavailable - here's the raw data:\n\n"

// Chat answers one user message.
func (a *Agent) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if req.File != nil {
		return a.analyzeFile(ctx, req)
	}
	if req.Image != "" {
		return a.analyzeImage(ctx, req)
	}

	intent := a.classifier.Classify(req.Message)

	// Follow-ups inherit the previous question's address, data intent, and
	// network so short turns like "what about polygon" stay on topic.
	if a.classifier.IsFollowUp(req.Message, req.Messages) {
		a.carryFollowUp(&intent, req.Message, req.Messages)
	}

	targetAddress := intent.ExtractedAddress
	if targetAddress == "" {
		targetAddress = req.WalletAddress
	}

	a.logger.Debug().
		Str("network", intent.Network).
		Bool("balance", intent.WantsBalance).
		Bool("nfts", intent.WantsNFTs).
		Bool("transactions", intent.WantsTransactions).
		Bool("contract", intent.WantsContractValidation).
		Msg("classified message")

	// Contract questions run on an address in the message itself, never the
	// connected wallet. A contract keyword without an extractable address
	// gets a clarification instead of a model call.
	if intent.MentionsContract && !intent.WantsContractValidation {
		return a.render(invalidContractReply), nil
	}
	if intent.WantsBalance && targetAddress == "" {
		return a.render(noWalletReply), nil
	}
	if (intent.WantsBalance || intent.WantsNFTs || intent.WantsTransactions) && targetAddress != "" {
		if !models.IsValidAddress(targetAddress) {
			return a.render(invalidWalletReply), nil
		}
	}

	dataContext := a.fetchContext(ctx, intent, targetAddress, req.WalletAddress)

	reply, err := a.complete(ctx, a.systemPrompt(dataContext, req.WalletAddress), req.Messages, req.Message)
	if err != nil {
		a.logger.Error().Err(err).Msg("model call failed, serving fallback")
		if dataContext != "" {
			return a.render(dataFallbackPrefix + dataContext), nil
		}
		return a.render(modelDownReply), nil
	}

	return a.render(reply), nil
}

// carryFollowUp back-fills a follow-up turn's intent from the most recent
// user message: the prior address when the new message has none, the prior
// data intents when the new message asks for nothing concrete, and the prior
// network when the new message names none. Contract validation is never
// inherited, so its address guard always reflects the current message.
func (a *Agent) carryFollowUp(intent *models.QueryIntent, message string, history []models.ChatMessage) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		prior := a.classifier.Classify(history[i].Content)

		if intent.ExtractedAddress == "" {
			intent.ExtractedAddress = prior.ExtractedAddress
		}
		if !intent.WantsBalance && !intent.WantsNFTs && !intent.WantsTransactions &&
			!intent.WantsGasPrice && !intent.MentionsContract {
			intent.WantsBalance = prior.WantsBalance
			intent.WantsNFTs = prior.WantsNFTs
			intent.WantsTransactions = prior.WantsTransactions
			intent.WantsGasPrice = prior.WantsGasPrice
		}
		if !a.classifier.MentionsNetwork(message) {
			intent.Network = prior.Network
		}
		return
	}
}

// fetchContext gathers every data block the intent calls for. Failures
// become explicit failure blocks so the model explains the miss instead of
// inventing numbers.
func (a *Agent) fetchContext(ctx context.Context, intent models.QueryIntent, targetAddress, connectedWallet string) string {
	var blocks []string
	networks := []string{intent.Network}

	switch {
	case intent.WantsContractValidation:
		client, err := a.registry.Client(intent.Network)
		if err == nil {
			var validation *models.ContractValidation
			validation, err = client.ValidateContract(ctx, intent.ExtractedAddress)
			if err == nil {
				blocks = append(blocks, a.formatter.FormatContract(validation))
			}
		}
		if err != nil {
			blocks = append(blocks, a.formatter.FormatFailure("contract validation", errMessage(err)))
		}

	case intent.WantsBalance && targetAddress != "":
		portfolio, err := a.registry.GetPortfolio(ctx, targetAddress, networks)
		if err != nil {
			blocks = append(blocks, a.formatter.FormatFailure("balance data", errMessage(err)))
		} else {
			own := intent.ExtractedAddress == "" || strings.EqualFold(intent.ExtractedAddress, connectedWallet)
			blocks = append(blocks, a.formatter.FormatPortfolio(portfolio, own))
		}

	case intent.WantsNFTs && targetAddress != "":
		collection, err := a.registry.GetNFTCollection(ctx, targetAddress, networks)
		if err != nil {
			blocks = append(blocks, a.formatter.FormatFailure("NFT data", errMessage(err)))
		} else {
			blocks = append(blocks, a.formatter.FormatNFTs(collection))
		}

	case intent.WantsTransactions && targetAddress != "":
		client, err := a.registry.Client(intent.Network)
		if err == nil {
			var transfers []models.NormalizedTransfer
			transfers, err = client.GetTransactionHistory(ctx, targetAddress)
			if err == nil {
				blocks = append(blocks, a.formatter.FormatTransfers(targetAddress, intent.Network, transfers))
			}
		}
		if err != nil {
			blocks = append(blocks, a.formatter.FormatFailure("transaction data", errMessage(err)))
		}

	case intent.ExtractedAddress != "":
		// A bare address with no other ask gets the address overview.
		client, err := a.registry.Client(intent.Network)
		if err == nil {
			var info *models.AddressInfo
			info, err = client.GetAddressInfo(ctx, intent.ExtractedAddress)
			if err == nil {
				blocks = append(blocks, a.formatter.FormatAddress(info))
			}
		}
		if err != nil {
			blocks = append(blocks, a.formatter.FormatFailure("address lookup", errMessage(err)))
		}
	}

	// Point lookups stack on top of the primary intent.
	if intent.ExtractedTxHash != "" {
		if client, err := a.registry.Client(intent.Network); err == nil {
			if tx, err := client.GetTransaction(ctx, intent.ExtractedTxHash); err == nil {
				blocks = append(blocks, a.formatter.FormatTransaction(tx))
			} else {
				blocks = append(blocks, a.formatter.FormatFailure("transaction lookup", errMessage(err)))
			}
		}
	}
	if intent.HasBlockNumber {
		if client, err := a.registry.Client(intent.Network); err == nil {
			if block, err := client.GetBlock(ctx, intent.ExtractedBlockNumber); err == nil {
				blocks = append(blocks, a.formatter.FormatBlock(block))
			} else {
				blocks = append(blocks, a.formatter.FormatFailure("block lookup", errMessage(err)))
			}
		}
	}
	if intent.WantsGasPrice {
		if client, err := a.registry.Client(intent.Network); err == nil {
			if gwei, err := client.GetGasPrice(ctx); err == nil {
				blocks = append(blocks, a.formatter.FormatGasPrice(intent.Network, gwei))
			} else {
				blocks = append(blocks, a.formatter.FormatFailure("gas price", errMessage(err)))
			}
		}
	}

	return strings.Join(blocks, "\n\n")
}

// systemPrompt builds the persona message, splicing in fetched data.
func (a *Agent) systemPrompt(dataContext, walletAddress string) string {
	var b strings.Builder

	b.WriteString(`You are Arion, a friendly AI assistant for blockchain and Web3.

CRITICAL FORMATTING RULES:
- Use emojis liberally 🚀💰🎯
- Keep responses SHORT and concise (3-5 sentences max)
- NO markdown symbols like ** for bold or ## for headings
- Just use plain text
- Use bullet points with emojis instead of long paragraphs

NFT DISPLAY RULES (IMPORTANT):
- When showing NFT data, ALWAYS display the image using the Image URL provided
- Format NFT images as: [Image](ImageURL) so they are clickable and viewable
- Make ALL URLs clickable by formatting them properly
- Show FULL NFT details including name, description, collection, chain, and links
- Include marketplace links when available

Your capabilities:
💰 Check wallet balances
🖼️ View NFT collections
📊 Show transaction history
🔄 Guide token transfers
📜 Analyze smart contracts
🔍 Validate contract addresses
🎓 Explain blockchain concepts`)

	if dataContext != "" {
		b.WriteString("\n\nREAL-TIME BLOCKCHAIN DATA:\n")
		b.WriteString(dataContext)
		b.WriteString("\n\nUSE THIS DATA to answer the user's question. Format it nicely with emojis and keep it SHORT.")
	}
	if walletAddress != "" {
		fmt.Fprintf(&b, "\n\nUser's connected wallet: %s", walletAddress)
	}

	b.WriteString("\n\nRemember: SHORT responses, lots of emojis, NO ** or ## symbols!")
	return b.String()
}

// complete sends system + trailing history + user to the model.
func (a *Agent) complete(ctx context.Context, system string, history []models.ChatMessage, message string) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("no language model configured")
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
	}

	if len(history) > a.config.HistoryLimit {
		history = history[len(history)-a.config.HistoryLimit:]
	}
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))

	resp, err := a.llm.GenerateContent(ctx, msgs,
		llms.WithMaxTokens(a.config.MaxTokens),
		llms.WithTemperature(a.config.Temperature),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// render post-processes a reply into the response shape.
func (a *Agent) render(reply string) *models.ChatResponse {
	cleaned, segments := a.renderer.Render(reply)
	return &models.ChatResponse{Response: cleaned, Segments: segments}
}

func errMessage(err error) string {
	if chainErr, ok := err.(*rpc.ChainError); ok {
		return chainErr.UserMessage()
	}
	return err.Error()
}
