package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"github.com/arionchat/arion/internal/agent"
	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/ratelimit"
	"github.com/arionchat/arion/internal/rpc"
	"github.com/arionchat/arion/internal/tools"
)

const wallet = "0x1234567890abcdef1234567890abcdef12345678"

type cannedLLM struct{ reply string }

func (c *cannedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: c.reply}}}, nil
}

func (c *cannedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

// newTestServer builds a server over a fake provider and a canned model.
func newTestServer(t *testing.T, provider http.HandlerFunc, limiter ratelimit.Limiter) *Server {
	t.Helper()

	fake := httptest.NewServer(provider)
	t.Cleanup(fake.Close)

	clients := make(map[string]*rpc.Client)
	for _, network := range []string{"ethereum", "polygon"} {
		client, err := rpc.NewClientWithEndpoints(network, fake.URL, fake.URL+"/nft", fake.URL+"/data")
		if err != nil {
			t.Fatalf("failed to build client: %v", err)
		}
		clients[network] = client
	}
	registry := rpc.NewRegistryWithClients(clients)

	cfg := agent.DefaultConfig()
	cfg.Retry = tools.LLMRetryConfig{MaxAttempts: 1, RetryDelay: time.Millisecond, TimeoutPerAttempt: time.Second}
	chatAgent := agent.NewAgent(registry, &cannedLLM{reply: "All done! 🚀"}, cfg, zerolog.Nop())

	return NewServer(":0", chatAgent, registry, limiter, zerolog.Nop())
}

func emptyPortfolioProvider(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/data/"):
		w.Write([]byte(`{"data":{"tokens":[]}}`))
	case strings.HasPrefix(r.URL.Path, "/nft/"):
		w.Write([]byte(`{"ownedNfts":[],"totalCount":0}`))
	default:
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"transfers":[]}}`))
	}
}

func TestPortfolio_InvalidAddressIs400BeforeProviderCall(t *testing.T) {
	provider := func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider must not be called, got %s", r.URL.Path)
	}
	server := newTestServer(t, provider, nil)

	for _, address := range []string{
		"",
		"0x123", // too short
		"1234567890abcdef1234567890abcdef12345678",   // missing 0x
		"0x1234567890abcdef1234567890abcdef1234567g", // non-hex
	} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/portfolio?address="+address, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("address %q: expected 400, got %d", address, rec.Code)
		}
	}
}

func TestPortfolio_MultiNetwork(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"tokens":[
			{"network":"eth-mainnet","tokenAddress":"","tokenBalance":"1000000000000000000",
			 "tokenMetadata":{"name":"Ethereum","symbol":"ETH","decimals":18},
			 "tokenPrices":[{"currency":"usd","value":"2000"}]}
		]}}`))
	}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/portfolio?address="+wallet+"&chains=ethereum,polygon", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var portfolio models.Portfolio
	if err := json.Unmarshal(rec.Body.Bytes(), &portfolio); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(portfolio.Tokens) != 2 {
		t.Errorf("expected one token per network, got %d", len(portfolio.Tokens))
	}
	if len(portfolio.Results) != 2 {
		t.Errorf("expected per-network results, got %d", len(portfolio.Results))
	}
}

func TestPortfolio_UnknownNetworkIs400(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/portfolio?address="+wallet+"&chains=dogechain", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown network, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported chain: dogechain") {
		t.Errorf("expected chain name in details, got %s", rec.Body.String())
	}
}

func TestChat_RequiresMessageOrFile(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(`{}`))
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChat_EndToEnd(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	body := `{"message":"check my balance","wallet_address":"` + wallet + `"}`
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Response != "All done! 🚀" {
		t.Errorf("unexpected reply %q", resp.Response)
	}
}

func TestContract_InvalidAddressIs400(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/contract", strings.NewReader(`{"address":"0xshort"}`))
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestContract_Validate(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "eth_getCode":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x6080"}`))
		case "alchemy_getTokenMetadata":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"name":"Tether USD","symbol":"USDT","decimals":6}}`))
		default:
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"transfers":[]}}`))
		}
	}, nil)

	body := `{"address":"0xdac17f958d2ee523a2206206994597c13d831ec7","chain":"ethereum"}`
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/contract", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var validation models.ContractValidation
	if err := json.Unmarshal(rec.Body.Bytes(), &validation); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !validation.IsContract {
		t.Error("expected contract")
	}
	if validation.Metadata == nil || validation.Metadata.Symbol != "USDT" {
		t.Errorf("unexpected metadata %+v", validation.Metadata)
	}
}

func TestContract_GetMetadata(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"name":"Tether USD","symbol":"USDT","decimals":6}}`))
	}, nil)

	body := `{"address":"0xdac17f958d2ee523a2206206994597c13d831ec7","chain":"ethereum","action":"getMetadata"}`
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/contract", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"USDT"`) {
		t.Errorf("expected metadata in response, got %s", rec.Body.String())
	}
}

func TestContract_InvalidAction(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	body := `{"address":"0xdac17f958d2ee523a2206206994597c13d831ec7","action":"selfdestruct"}`
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/contract", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Supported actions") {
		t.Errorf("expected action error, got %s", rec.Body.String())
	}
}

func TestAddressOverview(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		var result string
		switch req.Method {
		case "eth_getBalance":
			result = "0x0de0b6b3a7640000"
		case "eth_getCode":
			result = "0x6080"
		case "eth_getTransactionCount":
			result = "0x1"
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + result + `"}`))
	}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/address?address="+wallet+"&chain=ethereum", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var info models.AddressInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if info.BalanceEther != "1" {
		t.Errorf("expected balance 1, got %q", info.BalanceEther)
	}
	if !info.IsContract {
		t.Error("expected contract type for non-empty bytecode")
	}
}

func TestAddressOverview_InvalidAddress(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider must not be called, got %s", r.URL.Path)
	}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/address?address=0xnope", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestNetworks(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/networks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ethereum") {
		t.Errorf("expected networks list, got %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	limiter := ratelimit.NewLocalLimiter(ratelimit.Config{Limit: 2, Window: time.Hour})
	server := newTestServer(t, emptyPortfolioProvider, limiter)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/networks", nil)
		req.Header.Set("X-Wallet-Address", wallet)
		server.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/networks", nil)
	req.Header.Set("X-Wallet-Address", wallet)
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}

	// Health stays outside the budget.
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	server := newTestServer(t, emptyPortfolioProvider, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/v1/chat", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
