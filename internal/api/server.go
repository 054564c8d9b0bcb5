package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/arionchat/arion/internal/agent"
	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/ratelimit"
	"github.com/arionchat/arion/internal/rpc"
)

// Server is the HTTP front of the assistant.
type Server struct {
	router   *mux.Router
	server   *http.Server
	agent    *agent.Agent
	registry *rpc.Registry
	limiter  ratelimit.Limiter
	address  string
	logger   zerolog.Logger
}

// NewServer wires routes and middleware. limiter may be nil to disable rate
// limiting entirely.
func NewServer(address string, chatAgent *agent.Agent, registry *rpc.Registry, limiter ratelimit.Limiter, logger zerolog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		agent:    chatAgent,
		registry: registry,
		limiter:  limiter,
		address:  address,
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.rateLimitMiddleware)

	v1.HandleFunc("/chat", s.handleChat).Methods("POST")
	v1.HandleFunc("/portfolio", s.handlePortfolio).Methods("GET")
	v1.HandleFunc("/nfts", s.handleNFTs).Methods("GET")
	v1.HandleFunc("/transactions", s.handleTransactions).Methods("GET")
	v1.HandleFunc("/contract", s.handleContract).Methods("POST")
	v1.HandleFunc("/address", s.handleAddress).Methods("GET")
	v1.HandleFunc("/networks", s.handleNetworks).Methods("GET")

	// Preflight requests need a matching route for the CORS middleware to
	// run; the middleware answers them before this handler is reached.
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "arion",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Message == "" && req.File == nil && req.Image == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Message or file is required", nil)
		return
	}

	resp, err := s.agent.Chat(r.Context(), &req)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to process message", err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	address, networks, ok := s.addressAndNetworks(w, r)
	if !ok {
		return
	}

	portfolio, err := s.registry.GetPortfolio(r.Context(), address, networks)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch portfolio", err)
		return
	}

	s.writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handleNFTs(w http.ResponseWriter, r *http.Request) {
	address, networks, ok := s.addressAndNetworks(w, r)
	if !ok {
		return
	}

	collection, err := s.registry.GetNFTCollection(r.Context(), address, networks)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch NFTs", err)
		return
	}

	s.writeJSON(w, http.StatusOK, collection)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if !models.IsValidAddress(address) {
		s.writeErrorResponse(w, http.StatusBadRequest, "A valid address parameter is required", nil)
		return
	}

	network := r.URL.Query().Get("chain")
	if network == "" {
		network = models.DefaultNetwork
	}
	client, err := s.registry.Client(network)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Unsupported network", err)
		return
	}

	transfers, err := client.GetTransactionHistory(r.Context(), address)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch transactions", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":      address,
		"network":      network,
		"transactions": transfers,
		"total_count":  len(transfers),
	})
}

// contractRequest is the validation endpoint's input. Action selects the
// lookup; an empty action means a full validation.
type contractRequest struct {
	Address string `json:"address"`
	Chain   string `json:"chain,omitempty"`
	Action  string `json:"action,omitempty"`
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !models.IsValidAddress(req.Address) {
		s.writeErrorResponse(w, http.StatusBadRequest, "A valid contract address is required", nil)
		return
	}

	chain := req.Chain
	if chain == "" {
		chain = models.DefaultNetwork
	}
	client, err := s.registry.Client(chain)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Unsupported network", err)
		return
	}

	switch req.Action {
	case "", "validate":
		validation, err := client.ValidateContract(r.Context(), req.Address)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadGateway, "Failed to validate contract", err)
			return
		}
		s.writeJSON(w, http.StatusOK, validation)
	case "getMetadata":
		metadata, err := client.GetTokenMetadata(r.Context(), req.Address)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch token metadata", err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"metadata": metadata,
		})
	default:
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid action. Supported actions: validate, getMetadata", nil)
	}
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if !models.IsValidAddress(address) {
		s.writeErrorResponse(w, http.StatusBadRequest, "A valid address parameter is required", nil)
		return
	}

	network := r.URL.Query().Get("chain")
	if network == "" {
		network = models.DefaultNetwork
	}
	client, err := s.registry.Client(network)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Unsupported network", err)
		return
	}

	info, err := client.GetAddressInfo(r.Context(), address)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch address info", err)
		return
	}

	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	type networkInfo struct {
		Name         string `json:"name"`
		DisplayName  string `json:"display_name"`
		ChainID      int64  `json:"chain_id"`
		NativeSymbol string `json:"native_symbol"`
		Explorer     string `json:"explorer"`
	}

	var networks []networkInfo
	for _, name := range s.registry.Networks() {
		n, ok := models.GetNetwork(name)
		if !ok {
			continue
		}
		networks = append(networks, networkInfo{
			Name:         n.Name,
			DisplayName:  n.DisplayName,
			ChainID:      n.ChainID,
			NativeSymbol: n.NativeSymbol,
			Explorer:     n.Explorer,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"networks": networks})
}

// addressAndNetworks pulls and validates the shared query parameters of the
// wallet endpoints. Address problems answer 400 before any provider call.
func (s *Server) addressAndNetworks(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	address := r.URL.Query().Get("address")
	if !models.IsValidAddress(address) {
		s.writeErrorResponse(w, http.StatusBadRequest, "A valid address parameter is required", nil)
		return "", nil, false
	}

	networks, err := models.ParseNetworkList(r.URL.Query().Get("chains"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Unsupported network", err)
		return "", nil, false
	}

	return address, networks, true
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeErrorResponse sends a sanitized JSON error. Full details go to the
// log only; the public payload never leaks provider URLs or internals.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC(),
	}

	if err != nil {
		s.logger.Error().Err(err).Int("status", statusCode).Msg(message)

		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "unsupported chain"):
			response["details"] = errStr
		case strings.Contains(errStr, "RPC"), strings.Contains(errStr, "provider"):
			response["details"] = "Network connectivity issue"
		case strings.Contains(errStr, "context"):
			response["details"] = "Request timeout"
		default:
			response["details"] = "Internal processing error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		s.logger.Error().Err(encodeErr).Msg("failed to encode error response")
	}
}

// rateLimitMiddleware enforces the per-client request budget. Clients are
// keyed by wallet address when they send one, IP otherwise. A broken limiter
// backend fails open: losing rate limiting is better than losing the API.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-Wallet-Address")
		if key == "" {
			key = clientIP(r)
		}

		decision, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			s.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		if !decision.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(decision.RetryAfter.Seconds())+1))
			s.writeErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Wallet-Address")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic in handler")

				if w.Header().Get("Content-Type") == "" {
					s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", rec))
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Start runs the HTTP server until it is stopped.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.router,

		ReadTimeout:       120 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
	}

	s.logger.Info().Str("address", s.address).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down API server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
