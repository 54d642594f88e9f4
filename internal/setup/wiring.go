package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/guardkit/guardkit/internal/audit"
	"github.com/guardkit/guardkit/internal/cache"
	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/executor"
	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/hub"
	"github.com/guardkit/guardkit/internal/provider"
	"github.com/guardkit/guardkit/internal/provider/bedrock"
	"github.com/guardkit/guardkit/internal/provider/gemini"
	"github.com/guardkit/guardkit/internal/provider/openai"
	redisconn "github.com/guardkit/guardkit/internal/redis"
	"github.com/guardkit/guardkit/internal/router"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/rs/zerolog"
)

type Config struct {
	AWSRegion        string
	ClaudeModelID    string
	OpenAIKey        string
	OpenAIModelID    string
	GeminiKey        string
	GeminiModelID    string
	DefaultProvider  string
	RedisAddr        string
	RedisPassword    string
	CacheTTLSeconds  int
	AuditDatabaseURL string
}

type Dependencies struct {
	Guard    *guard.Guard
	Executor *executor.SingleExecutor
	Results  *cache.ResultsCache
	Auditor  *audit.Store
	Logger   *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:    getEnv("CLAUDE_MODEL_ID", ""),
		OpenAIKey:        getEnv("OPEN_AI_KEY", ""),
		OpenAIModelID:    getEnv("OPEN_AI_MODEL_ID", ""),
		GeminiKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		DefaultProvider:  getEnv("DEFAULT_LLM_PROVIDER", "bedrock"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		CacheTTLSeconds:  getEnvInt("RESULT_CACHE_TTL_SECONDS", 900),
		AuditDatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),
	}
}

// Wire builds the full validation pipeline: rc file, hub manifest, model
// provider, router, guard and single-validator executor, plus the
// optional Redis results cache and Postgres audit store.
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	rc, err := config.LoadRC()
	if err != nil {
		return nil, fmt.Errorf("failed to load rc file: %w", err)
	}

	manifest, err := hub.LoadManifest()
	if err != nil {
		return nil, fmt.Errorf("failed to load hub manifest: %w", err)
	}

	providerClient, err := createProviderClient(ctx, cfg.DefaultProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	validatorsConfig, err := config.LoadValidatorsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load validators config: %w", err)
	}

	builder := router.New(rc, manifest, providerClient, logger)

	// One build feeds both the guard and the factory, so they share
	// validator instances (lexicons load once, remote clients too).
	pool := validator.NewPool(builder, logger)
	validators, err := pool.BuildFromConfig(validatorsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build validators from config: %w", err)
	}

	g := guard.FromValidators(validatorsConfig, validators, logger)
	factory := validator.NewFactory(validators)

	deps := &Dependencies{
		Guard:    g,
		Executor: executor.NewSingleExecutor(factory, logger),
		Logger:   logger,
	}

	if cfg.RedisAddr != "" {
		client, err := redisconn.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, 3, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect results cache: %w", err)
		}
		deps.Results = cache.NewResultsCache(client, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
	}

	if cfg.AuditDatabaseURL != "" {
		store, err := audit.NewStore(ctx, cfg.AuditDatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		deps.Auditor = store
	}

	return deps, nil
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func createProviderClient(ctx context.Context, name string, cfg *Config) (provider.Client, error) {
	switch name {
	case "bedrock":
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	case "openai":
		return openai.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID)
	case "gemini":
		return gemini.NewClient(ctx, cfg.GeminiKey, cfg.GeminiModelID)
	default:
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	}
}
