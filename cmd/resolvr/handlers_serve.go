package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/resolvr/internal/adminapi"
	"github.com/haasonsaas/resolvr/internal/agent/providers"
	"github.com/haasonsaas/resolvr/internal/agentcore"
	"github.com/haasonsaas/resolvr/internal/audit"
	"github.com/haasonsaas/resolvr/internal/auditchain"
	"github.com/haasonsaas/resolvr/internal/auth"
	"github.com/haasonsaas/resolvr/internal/bgqueue"
	"github.com/haasonsaas/resolvr/internal/cachestore"
	"github.com/haasonsaas/resolvr/internal/collab"
	"github.com/haasonsaas/resolvr/internal/config"
	"github.com/haasonsaas/resolvr/internal/convstore"
	"github.com/haasonsaas/resolvr/internal/customerlink"
	"github.com/haasonsaas/resolvr/internal/experiments"
	"github.com/haasonsaas/resolvr/internal/gatewayhttp"
	"github.com/haasonsaas/resolvr/internal/health"
	"github.com/haasonsaas/resolvr/internal/orchestrator"
	"github.com/haasonsaas/resolvr/internal/piivault"
	"github.com/haasonsaas/resolvr/internal/proactive"
	"github.com/haasonsaas/resolvr/internal/prompts"
	"github.com/haasonsaas/resolvr/internal/sla"
	"github.com/haasonsaas/resolvr/internal/tools/facts"
	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/internal/voc"
	"github.com/haasonsaas/resolvr/internal/vocstore"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// runConfigCheck loads and validates configuration, reporting success
// without starting any server — useful in CI or pre-deploy checks.
func runConfigCheck(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config OK: http_port=%d llm_provider=%s tenants=%d\n",
		cfg.Server.HTTPPort, cfg.LLM.Provider, len(cfg.Tenants.ByTenant))
	return nil
}

// runServe wires every collaborator named in Config into an
// orchestrator.Orchestrator and serves it over gatewayhttp until a
// shutdown signal arrives.
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))
	if cfg.Logging.Format == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))
	}
	slog.SetDefault(logger)

	slog.Info("starting resolvr gateway", "version", version, "commit", commit, "config", configPath)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pgPool *pgxpool.Pool
	if cfg.Database.URL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	provider, err := buildLLMProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to build LLM provider: %w", err)
	}

	core := agentcore.New(provider, prompts.New(nil), cfg.LLM.Model)

	convStore := buildConvStore(redisClient)
	vocStore := buildVOCStore(redisClient)
	cache := cachestore.New(cachestore.Config{RedisClient: redisClient, EnableMetrics: true})

	customerStore := buildCustomerStore(pgPool)
	customerLinker := customerlink.New(customerStore, convStore, logger)

	var chain *auditchain.Chain
	if pgPool != nil {
		chain = auditchain.New(auditchain.NewPostgresStore(pgPool), auditchain.DefaultConfig(), logger)
	} else {
		chain = auditchain.New(auditchain.NewMemoryStore(), auditchain.DefaultConfig(), logger)
	}

	slaStore := buildSLAStore(pgPool)
	slaEngine := sla.New(slaStore, logger)

	vault, err := buildPIIVault(cfg.PIIVault, redisClient, logger)
	if err != nil {
		return fmt.Errorf("failed to build PII vault: %w", err)
	}
	_ = vault // wired into tool/conversation handlers that tokenize PII at the call sites that own it

	healthRegistry := health.New(5, 30*time.Second)

	registry := toolruntime.NewRegistry()
	registry.Register(facts.NewExtractTool(20).Definition())

	auditConfig := audit.DefaultConfig()
	auditConfig.Enabled = true
	if cfg.Audit.BufferSize > 0 {
		auditConfig.BufferSize = cfg.Audit.BufferSize
	}
	auditLogger, err := audit.NewLogger(auditConfig)
	if err != nil {
		return fmt.Errorf("failed to build audit logger: %w", err)
	}

	runtime := toolruntime.New(toolruntime.Config{
		Registry: registry,
		Health:   healthRegistry,
		Cache:    cache,
		Audit:    chain,
		Logger:   logger,
	})

	proactiveChecker := proactive.New(runtime, proactive.DefaultChecks(), logger)

	expManager := experiments.NewManager(experiments.Config{})
	background := bgqueue.New(64, 4, logger)

	vocProcessor := voc.NewProcessor(voc.DefaultEntityPrefixes())

	orch := orchestrator.New(orchestrator.Config{
		ConvStore:        convStore,
		CustomerLinker:   customerLinker,
		SLAEngine:        slaEngine,
		VOCProcessor:     vocProcessor,
		VOCStore:         vocStore,
		ProactiveChecker: proactiveChecker,
		ToolRuntime:      runtime,
		AgentCore:        core,
		AuditChain:       chain,
		AuditLogger:      auditLogger,
		Outbound:         collab.NewNullChannelOutbound(),
		Ticketing:        collab.NewMemoryTicketing(),
		Experiments:      expManager,
		Background:       background,
		Tenants:          buildTenantConfigs(cfg.Tenants),
		Logger:           logger,
	})

	var slaScheduler *sla.Scheduler
	if cfg.SLA.Enabled {
		slaScheduler, err = sla.NewScheduler(slaEngine, cfg.SLA.Schedule, logger)
		if err != nil {
			return fmt.Errorf("failed to build SLA scheduler: %w", err)
		}
	}

	adminHandler := adminapi.NewHandler(adminapi.Config{
		Secret:       auth.NewSharedSecret(cfg.Auth.AdminSecret),
		Orchestrator: orch,
		ToolRegistry: registry,
		Logger:       logger,
	})

	httpServer := gatewayhttp.New(gatewayhttp.Config{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Channels:     cfg.Channels,
		Orchestrator: orch,
		Health:       healthRegistry,
		Admin:        adminHandler,
		Logger:       logger,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	if slaScheduler != nil {
		slaScheduler.Start(ctx)
	}

	slog.Info("resolvr gateway started", "addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort))

	<-ctx.Done()
	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if slaScheduler != nil {
		slaScheduler.Stop()
	}
	background.Stop()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if pgPool != nil {
		pgPool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	slog.Info("resolvr gateway stopped gracefully")
	return nil
}

func buildLLMProvider(cfg config.LLMConfig) (*providers.AnthropicProvider, error) {
	if cfg.Provider != "" && cfg.Provider != "anthropic" {
		return nil, fmt.Errorf("unsupported llm provider %q: only anthropic is wired", cfg.Provider)
	}
	return providers.NewAnthropicProvider(providers.AnthropicConfig{
		APIKey:       os.Getenv(cfg.APIKeyEnv),
		DefaultModel: cfg.Model,
	})
}

func buildConvStore(client *redis.Client) convstore.Store {
	if client == nil {
		return convstore.NewMemoryStore()
	}
	return convstore.New(client)
}

func buildVOCStore(client *redis.Client) vocstore.Store {
	if client == nil {
		return vocstore.NewMemoryStore()
	}
	return vocstore.New(client)
}

func buildCustomerStore(pool *pgxpool.Pool) customerlink.Store {
	if pool == nil {
		return customerlink.NewMemoryStore()
	}
	return customerlink.NewPostgresStore(pool)
}

func buildSLAStore(pool *pgxpool.Pool) sla.Store {
	if pool == nil {
		return sla.NewMemoryStore()
	}
	return sla.NewPostgresStore(pool)
}

func buildPIIVault(cfg config.PIIVaultConfig, client *redis.Client, logger *slog.Logger) (*piivault.Vault, error) {
	var key [32]byte
	if cfg.SecretEnv != "" {
		if secret := os.Getenv(cfg.SecretEnv); secret != "" {
			derived, err := piivault.DeriveKey(secret)
			if err != nil {
				return nil, err
			}
			key = derived
		}
	}
	if key == ([32]byte{}) {
		key = piivault.EphemeralKey(logger)
	}

	if cfg.Backend == "redis" && client != nil {
		return piivault.NewRedisVault(client, key)
	}
	return piivault.NewMemoryVault(key, cfg.SweepEvery)
}

func buildTenantConfigs(cfg config.TenantsConfig) orchestrator.TenantConfigs {
	out := orchestrator.TenantConfigs{
		Default:  tenantConfigFromPolicy(cfg.Default),
		ByTenant: make(map[string]orchestrator.TenantConfig, len(cfg.ByTenant)),
	}
	for id, policy := range cfg.ByTenant {
		out.ByTenant[id] = tenantConfigFromPolicy(policy)
	}
	return out
}

func tenantConfigFromPolicy(p config.TenantPolicy) orchestrator.TenantConfig {
	tc := orchestrator.DefaultTenantConfig()
	tc.AutoCreateOnNew = p.AutoCreateOnNew
	if len(p.EscalationIntents) > 0 {
		tc.EscalationIntents = p.EscalationIntents
	}
	if len(p.UrgencyAutoEscalate) > 0 {
		tc.UrgencyAutoEscalate = p.UrgencyLevels()
	}
	if len(p.RiskFlagAutoEscalate) > 0 {
		tc.RiskFlagAutoEscalate = p.RiskFlags()
	}
	if p.SentimentThreshold != 0 {
		tc.SentimentThreshold = p.SentimentThreshold
	}
	if len(p.FrustrationKeywords) > 0 {
		tc.FrustrationKeywords = p.FrustrationKeywords
	}
	if p.MaxClarifications > 0 {
		tc.MaxClarifications = p.MaxClarifications
	}
	if p.DefaultMaxTurns > 0 {
		tc.DefaultChannelPolicy.MaxTurnsBeforeEscalation = p.DefaultMaxTurns
	}
	for channel, maxTurns := range p.ChannelMaxTurns {
		tc.ChannelPolicies[models.Channel(channel)] = orchestrator.ChannelPolicy{MaxTurnsBeforeEscalation: maxTurns}
	}
	return tc
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
