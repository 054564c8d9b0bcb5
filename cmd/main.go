package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arionchat/arion/internal/agent"
	"github.com/arionchat/arion/internal/api"
	"github.com/arionchat/arion/internal/models"
	"github.com/arionchat/arion/internal/ratelimit"
	"github.com/arionchat/arion/internal/rpc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	models.InitializeNetworks()

	var (
		httpAddr    = flag.String("http-addr", ":8080", "HTTP server address")
		alchemyKey  = flag.String("alchemy-key", "", "Alchemy API key (can also be set via ALCHEMY_API_KEY env var)")
		modelKey    = flag.String("model-key", "", "LLM API key (can also be set via AIML_API_KEY env var)")
		query       = flag.String("q", "", "Ask a single question and exit (one-shot mode)")
		wallet      = flag.String("wallet", "", "Wallet address for one-shot mode")
		showVersion = flag.Bool("version", false, "Show version and exit")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("Arion v1.0.0")
		fmt.Println("AI assistant for wallets, NFTs, and smart contracts")
		os.Exit(0)
	}

	logger := newLogger(*verbose)

	providerKey := *alchemyKey
	if providerKey == "" {
		providerKey = os.Getenv("ALCHEMY_API_KEY")
	}
	if providerKey == "" {
		logger.Fatal().Msg("Alchemy API key is required. Set ALCHEMY_API_KEY or use -alchemy-key")
	}

	registry, err := rpc.NewRegistry(providerKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize chain clients")
	}

	cfg := agent.DefaultConfig()
	cfg.APIKey = *modelKey
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("AIML_API_KEY")
	}
	if base := os.Getenv("AIML_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if model := os.Getenv("AIML_MODEL"); model != "" {
		cfg.Model = model
	}

	llm, err := agent.NewLLM(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("language model unavailable, running in data-only mode")
		llm = nil
	}

	chatAgent := agent.NewAgent(registry, llm, cfg, logger)

	if *query != "" {
		runOneShot(chatAgent, *query, *wallet, logger)
		return
	}

	limiter := buildLimiter(logger)
	server := api.NewServer(*httpAddr, chatAgent, registry, limiter, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal().Err(err).Msg("server failed")
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// runOneShot answers a single question and exits.
func runOneShot(chatAgent *agent.Agent, query, wallet string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := chatAgent.Chat(ctx, &models.ChatRequest{
		Message:       query,
		WalletAddress: wallet,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to answer")
	}

	fmt.Println(resp.Response)
}

// buildLimiter picks Redis-backed rate limiting when REDIS_ADDR is set, the
// in-process fallback otherwise.
func buildLimiter(logger zerolog.Logger) ratelimit.Limiter {
	config := ratelimit.DefaultConfig()
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Limit = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Window = d
		}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		logger.Info().Str("addr", addr).Msg("using Redis rate limiter")
		return ratelimit.NewRedisLimiter(client, config)
	}

	logger.Info().Msg("using in-process rate limiter")
	return ratelimit.NewLocalLimiter(config)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if os.Getenv("LOG_FORMAT") == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
