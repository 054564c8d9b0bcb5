package tools

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/arionchat/arion/internal/models"
)

// Formatter renders fetched chain data into labeled plain-text context
// blocks for the LLM prompt. Blocks are also the data-only fallback shown
// verbatim when the LLM is unavailable, so they must read reasonably on
// their own.
type Formatter struct{}

// NewFormatter creates a context formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

const (
	// descriptionLimit truncates NFT descriptions so one verbose collection
	// cannot crowd out the rest of the prompt.
	descriptionLimit = 200

	// displayTxLimit caps how many transfers are spelled out; the remainder
	// is summarized as a count.
	displayTxLimit = 10
)

// FormatPortfolio renders wallet token balances.
func (f *Formatter) FormatPortfolio(p *models.Portfolio, ownWallet bool) string {
	var b strings.Builder

	label := "WALLET"
	if ownWallet {
		label = "USER WALLET"
	}
	fmt.Fprintf(&b, "%s DATA:\n", label)
	fmt.Fprintf(&b, "Address: %s\n", p.Address)
	fmt.Fprintf(&b, "Networks checked: %s\n", strings.Join(p.Networks, ", "))
	fmt.Fprintf(&b, "Total Portfolio Value: $%s USD\n\n", humanize.CommafWithDigits(p.TotalValueUSD, 2))

	b.WriteString("TOKENS:\n")
	if len(p.Tokens) == 0 {
		fmt.Fprintf(&b, "No tokens found on %s.\n", strings.Join(p.Networks, ", "))
	}
	for i, token := range p.Tokens {
		name := token.Name
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, token.Symbol, name)
		fmt.Fprintf(&b, "   Chain: %s\n", token.Network)
		fmt.Fprintf(&b, "   Balance: %s\n", token.Balance)
		fmt.Fprintf(&b, "   USD Price: %s\n", orNA(formatUSD(token.PriceUSD)))
		fmt.Fprintf(&b, "   USD Value: %s\n\n", orNA(formatUSD(token.ValueUSD)))
	}

	f.appendFailures(&b, p.Results)
	return b.String()
}

// FormatNFTs renders an NFT collection with image and marketplace links.
func (f *Formatter) FormatNFTs(c *models.NFTCollection) string {
	var b strings.Builder

	b.WriteString("USER NFT DATA:\n")
	fmt.Fprintf(&b, "Address: %s\n", c.Address)
	fmt.Fprintf(&b, "Total NFTs: %d\n\n", c.Count)

	for i, nft := range c.NFTs {
		name := nft.Name
		if name == "" {
			name = "Unnamed NFT"
		}
		description := nft.Description
		if description == "" {
			description = "No description"
		} else {
			description = truncate(description, descriptionLimit)
		}
		collection := nft.CollectionName
		if collection == "" {
			collection = "Unknown"
		}

		fmt.Fprintf(&b, "NFT %d:\n", i+1)
		fmt.Fprintf(&b, "Name: %s\n", name)
		fmt.Fprintf(&b, "Description: %s\n", description)
		fmt.Fprintf(&b, "Collection: %s\n", collection)
		fmt.Fprintf(&b, "Chain: %s\n", nft.Network)
		fmt.Fprintf(&b, "Token ID: %s\n", nft.TokenID)
		fmt.Fprintf(&b, "Token Type: %s\n", nft.TokenType)
		fmt.Fprintf(&b, "Contract Address: %s\n", nft.ContractAddress)
		if nft.ImageURL != "" {
			fmt.Fprintf(&b, "Image URL: %s\n", nft.ImageURL)
		}
		if nft.ThumbnailURL != "" {
			fmt.Fprintf(&b, "Thumbnail URL: %s\n", nft.ThumbnailURL)
		}
		if url := models.OpenSeaAssetURL(nft.Network, nft.ContractAddress, nft.TokenID); url != "" {
			fmt.Fprintf(&b, "OpenSea URL: %s\n", url)
		}
		b.WriteString("\n")
	}

	f.appendFailures(&b, c.Results)
	return b.String()
}

// FormatTransfers renders recent transfer history, listing the first
// displayTxLimit in full and summarizing the rest.
func (f *Formatter) FormatTransfers(address, network string, transfers []models.NormalizedTransfer) string {
	var b strings.Builder

	b.WriteString("USER TRANSACTION DATA:\n")
	fmt.Fprintf(&b, "Address: %s\n", address)
	fmt.Fprintf(&b, "Chain: %s\n", network)
	fmt.Fprintf(&b, "Total Transactions: %d\n\n", len(transfers))

	shown := transfers
	if len(shown) > displayTxLimit {
		shown = shown[:displayTxLimit]
	}
	for i, tx := range shown {
		to := tx.To
		if to == "" {
			to = "Contract Creation"
		}
		asset := tx.Asset
		if asset == "" {
			asset = "N/A"
		}

		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ToUpper(tx.Category))
		fmt.Fprintf(&b, "   From: %s\n", tx.From)
		fmt.Fprintf(&b, "   To: %s\n", to)
		fmt.Fprintf(&b, "   Value: %s %s\n", tx.Value, asset)
		if !tx.Timestamp.IsZero() {
			fmt.Fprintf(&b, "   Time: %s\n", tx.Timestamp.Format("Jan 2, 2006 15:04 MST"))
		} else {
			fmt.Fprintf(&b, "   Time: N/A\n")
		}
		if url := models.ExplorerTxURL(network, tx.Hash); url != "" {
			fmt.Fprintf(&b, "   Explorer: %s\n", url)
		}
		b.WriteString("\n")
	}

	if remainder := len(transfers) - len(shown); remainder > 0 {
		fmt.Fprintf(&b, "...and %d more transactions.\n", remainder)
	}

	return b.String()
}

// FormatContract renders a contract validation result.
func (f *Formatter) FormatContract(v *models.ContractValidation) string {
	var b strings.Builder

	if !v.IsContract {
		fmt.Fprintf(&b, "ADDRESS VALIDATION:\nAddress %s is NOT a smart contract. It appears to be a regular wallet address (EOA - Externally Owned Account).", v.Address)
		return b.String()
	}

	b.WriteString("SMART CONTRACT DATA:\n")
	fmt.Fprintf(&b, "Address: %s\n", v.Address)
	fmt.Fprintf(&b, "Chain: %s\n", v.Chain)
	fmt.Fprintf(&b, "Network: %s\n", v.Network)
	b.WriteString("Is Contract: YES\n")
	fmt.Fprintf(&b, "Bytecode Length: %d bytes\n\n", v.BytecodeLength)

	if v.Metadata != nil {
		b.WriteString("TOKEN METADATA:\n")
		fmt.Fprintf(&b, "Name: %s\n", orNA(v.Metadata.Name))
		fmt.Fprintf(&b, "Symbol: %s\n", orNA(v.Metadata.Symbol))
		if v.Metadata.Decimals > 0 {
			fmt.Fprintf(&b, "Decimals: %d\n", v.Metadata.Decimals)
		} else {
			b.WriteString("Decimals: N/A\n")
		}
		fmt.Fprintf(&b, "Logo: %s\n\n", orNA(v.Metadata.Logo))
	}

	if v.Creator != "" {
		fmt.Fprintf(&b, "Deployed by: %s\n", v.Creator)
		if v.CreationTx != "" {
			fmt.Fprintf(&b, "Creation Tx: %s\n", v.CreationTx)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "This is a verified smart contract on %s.", v.Chain)
	if v.Metadata != nil && v.Metadata.Name != "" {
		fmt.Fprintf(&b, " It appears to be a token contract for %s (%s).", v.Metadata.Name, v.Metadata.Symbol)
	}

	return b.String()
}

// FormatBlock renders a block lookup.
func (f *Formatter) FormatBlock(block *models.BlockInfo) string {
	var b strings.Builder

	b.WriteString("BLOCK DATA:\n")
	fmt.Fprintf(&b, "Network: %s\n", block.Network)
	fmt.Fprintf(&b, "Block Number: %d\n", block.Number)
	fmt.Fprintf(&b, "Hash: %s\n", block.Hash)
	if !block.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp: %s\n", block.Timestamp.Format("Jan 2, 2006 15:04:05 MST"))
	} else {
		b.WriteString("Timestamp: N/A\n")
	}
	fmt.Fprintf(&b, "Transactions: %d\n", block.TxCount)
	fmt.Fprintf(&b, "Gas Used: %s\n", humanize.Comma(int64(block.GasUsed)))
	if block.BaseFeeGwei != "" {
		fmt.Fprintf(&b, "Base Fee: %s gwei\n", block.BaseFeeGwei)
	}

	return b.String()
}

// FormatTransaction renders a transaction lookup.
func (f *Formatter) FormatTransaction(tx *models.TransactionInfo) string {
	var b strings.Builder

	b.WriteString("TRANSACTION DATA:\n")
	fmt.Fprintf(&b, "Network: %s\n", tx.Network)
	fmt.Fprintf(&b, "Hash: %s\n", tx.Hash)
	fmt.Fprintf(&b, "From: %s\n", tx.From)
	if tx.To != "" {
		fmt.Fprintf(&b, "To: %s\n", tx.To)
	} else {
		b.WriteString("To: Contract Creation\n")
	}
	fmt.Fprintf(&b, "Value: %s %s\n", tx.ValueEther, nativeSymbol(tx.Network))
	if tx.BlockNumber > 0 {
		fmt.Fprintf(&b, "Block: %d\n", tx.BlockNumber)
	} else {
		b.WriteString("Block: pending\n")
	}
	fmt.Fprintf(&b, "Gas Price: %s gwei\n", tx.GasPriceGwei)
	if url := models.ExplorerTxURL(tx.Network, tx.Hash); url != "" {
		fmt.Fprintf(&b, "Explorer: %s\n", url)
	}

	return b.String()
}

// FormatAddress renders an address overview.
func (f *Formatter) FormatAddress(info *models.AddressInfo) string {
	var b strings.Builder

	b.WriteString("ADDRESS DATA:\n")
	fmt.Fprintf(&b, "Address: %s\n", info.Address)
	fmt.Fprintf(&b, "Network: %s\n", info.Network)
	fmt.Fprintf(&b, "Balance: %s %s\n", info.BalanceEther, nativeSymbol(info.Network))
	fmt.Fprintf(&b, "Transactions Sent: %d\n", info.TxCount)
	if info.IsContract {
		b.WriteString("Type: Smart Contract\n")
	} else {
		b.WriteString("Type: Wallet (EOA)\n")
	}
	if url := models.ExplorerAddressURL(info.Network, info.Address); url != "" {
		fmt.Fprintf(&b, "Explorer: %s\n", url)
	}

	return b.String()
}

// FormatGasPrice renders a gas price lookup.
func (f *Formatter) FormatGasPrice(network, gwei string) string {
	return fmt.Sprintf("GAS DATA:\nNetwork: %s\nCurrent Gas Price: %s gwei\n", network, gwei)
}

// FormatFailure renders an explicit failure block so the LLM explains the
// miss instead of inventing data.
func (f *Formatter) FormatFailure(what, errMsg string) string {
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	return fmt.Sprintf("Failed to fetch %s. Error: %s", what, errMsg)
}

// appendFailures lists per-network failures from a partial multi-network
// fetch.
func (f *Formatter) appendFailures(b *strings.Builder, results []models.NetworkResult) {
	for _, r := range results {
		if r.Status == models.StatusRejected {
			fmt.Fprintf(b, "NOTE: data for %s could not be fetched (%s).\n", r.Network, r.Error)
		}
	}
}

// truncate shortens s to at most limit runes, never splitting a multi-byte
// character, and marks the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func formatUSD(v *float64) string {
	if v == nil {
		return ""
	}
	return "$" + humanize.CommafWithDigits(*v, 2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func nativeSymbol(network string) string {
	if n, ok := models.GetNetwork(network); ok {
		return n.NativeSymbol
	}
	return "ETH"
}
