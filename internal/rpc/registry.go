package rpc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arionchat/arion/internal/models"
)

// Registry holds one Client per supported network and runs multi-network
// fetches concurrently, aggregating per-network outcomes so one failing chain
// never discards another chain's data.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	apiKey  string
}

// NewRegistry builds clients for every configured network.
func NewRegistry(apiKey string) (*Registry, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}

	r := &Registry{
		clients: make(map[string]*Client),
		apiKey:  apiKey,
	}

	for _, name := range models.ListNetworkNames() {
		client, err := NewClient(name, apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for %s: %w", name, err)
		}
		r.clients[name] = client
	}

	return r, nil
}

// NewRegistryWithClients builds a registry over pre-constructed clients.
// Used by tests to point networks at fake providers.
func NewRegistryWithClients(clients map[string]*Client) *Registry {
	return &Registry{clients: clients}
}

// Client returns the client for a network.
func (r *Registry) Client(network string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[network]
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %s", network)
	}
	return client, nil
}

// Networks lists the networks this registry serves.
func (r *Registry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// networkOutcome carries one network's fetch result through the fan-out
// channel.
type networkOutcome struct {
	network   string
	tokens    []models.NormalizedToken
	nfts      []models.NormalizedNFT
	transfers []models.NormalizedTransfer
	err       error
}

// GetPortfolio fetches token balances for an address across the given
// networks concurrently. Networks that fail are recorded as rejected in the
// result; the call errors only when every network fails.
func (r *Registry) GetPortfolio(ctx context.Context, address string, networks []string) (*models.Portfolio, error) {
	outcomes, err := r.fanOut(ctx, networks, func(ctx context.Context, client *Client) networkOutcome {
		tokens, err := client.GetTokenBalances(ctx, address)
		return networkOutcome{network: client.network.Name, tokens: tokens, err: err}
	})
	if err != nil {
		return nil, err
	}

	portfolio := &models.Portfolio{
		Address:  address,
		Networks: networks,
	}

	failures := 0
	for _, outcome := range outcomes {
		result := models.NetworkResult{Network: outcome.network, Status: models.StatusFulfilled}
		if outcome.err != nil {
			result.Status = models.StatusRejected
			result.Error = userMessage(outcome.err)
			failures++
		} else {
			portfolio.Tokens = append(portfolio.Tokens, outcome.tokens...)
			for _, token := range outcome.tokens {
				if token.ValueUSD != nil {
					portfolio.TotalValueUSD += *token.ValueUSD
				}
			}
		}
		portfolio.Results = append(portfolio.Results, result)
	}

	if failures == len(outcomes) {
		return nil, fmt.Errorf("all networks failed for %s", address)
	}

	// Re-sort across networks so a single USD-descending view comes out.
	sort.SliceStable(portfolio.Tokens, func(i, j int) bool {
		vi, vj := 0.0, 0.0
		if portfolio.Tokens[i].ValueUSD != nil {
			vi = *portfolio.Tokens[i].ValueUSD
		}
		if portfolio.Tokens[j].ValueUSD != nil {
			vj = *portfolio.Tokens[j].ValueUSD
		}
		return vi > vj
	})

	return portfolio, nil
}

// GetNFTCollection fetches owned NFTs for an address across the given
// networks concurrently, with the same partial-success semantics as
// GetPortfolio.
func (r *Registry) GetNFTCollection(ctx context.Context, address string, networks []string) (*models.NFTCollection, error) {
	outcomes, err := r.fanOut(ctx, networks, func(ctx context.Context, client *Client) networkOutcome {
		nfts, err := client.GetNFTs(ctx, address)
		return networkOutcome{network: client.network.Name, nfts: nfts, err: err}
	})
	if err != nil {
		return nil, err
	}

	collection := &models.NFTCollection{
		Address:  address,
		Networks: networks,
	}

	failures := 0
	for _, outcome := range outcomes {
		result := models.NetworkResult{Network: outcome.network, Status: models.StatusFulfilled}
		if outcome.err != nil {
			result.Status = models.StatusRejected
			result.Error = userMessage(outcome.err)
			failures++
		} else {
			collection.NFTs = append(collection.NFTs, outcome.nfts...)
		}
		collection.Results = append(collection.Results, result)
	}

	if failures == len(outcomes) {
		return nil, fmt.Errorf("all networks failed for %s", address)
	}

	collection.Count = len(collection.NFTs)
	return collection, nil
}

// fanOut runs fetch once per requested network in its own goroutine and
// collects the outcomes in request order.
func (r *Registry) fanOut(ctx context.Context, networks []string, fetch func(context.Context, *Client) networkOutcome) ([]networkOutcome, error) {
	if len(networks) == 0 {
		networks = []string{models.DefaultNetwork}
	}

	clients := make([]*Client, 0, len(networks))
	for _, name := range networks {
		client, err := r.Client(name)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	outcomes := make([]networkOutcome, len(clients))
	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client *Client) {
			defer wg.Done()
			outcomes[i] = fetch(ctx, client)
		}(i, client)
	}
	wg.Wait()

	return outcomes, nil
}

// userMessage prefers the sanitized message of a ChainError.
func userMessage(err error) string {
	if chainErr, ok := err.(*ChainError); ok {
		return chainErr.UserMessage()
	}
	return err.Error()
}
