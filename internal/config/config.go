// Package config loads and validates resolvr's runtime configuration:
// server/database/redis wiring, per-tenant escalation policy, LLM
// provider selection, and the ambient PII vault / audit chain knobs.
// Loading follows the same shape as the teacher's original bot config —
// YAML (or JSON5) with $include merging, environment overrides, and a
// defaults + validate pass — scoped down to resolvr's own domain.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haasonsaas/resolvr/pkg/models"
)

func getenv(key string) string { return os.Getenv(key) }

// Load reads and parses the configuration file at path (YAML or JSON5,
// with $include merging via LoadRaw), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config is resolvr's top-level configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	PIIVault  PIIVaultConfig  `yaml:"pii_vault"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Tenants   TenantsConfig   `yaml:"tenants"`
	SLA       SLASweepConfig  `yaml:"sla"`
}

// ServerConfig configures the inbound webhook/admin HTTP surface.
type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DatabaseConfig configures the Postgres-backed stores (convstore,
// customerlink, auditchain, piivault when run in durable mode).
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the cache/queue-backed stores (convstore,
// vocstore, cachestore, piivault when run in cache mode).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig configures the admin API's shared-secret authentication.
type AuthConfig struct {
	AdminSecret string        `yaml:"admin_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// LLMConfig selects the agent-core completion backend.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// PIIVaultConfig configures the tokenization vault's key material.
type PIIVaultConfig struct {
	// SecretEnv names the environment variable holding the vault's key
	// material; DeriveKey folds it to 32 bytes. If empty, an ephemeral
	// key is generated per process (tokens do not survive a restart).
	SecretEnv  string        `yaml:"secret_env"`
	Backend    string        `yaml:"backend"` // "memory" or "redis"
	SweepEvery time.Duration `yaml:"sweep_every"`
}

// AuditConfig configures the tamper-evident hash-chain audit log.
type AuditConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SLASweepConfig configures the periodic breach-detection sweep.
type SLASweepConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression, e.g. "*/1 * * * *"
}

// TenantsConfig is the per-tenant escalation/SLA policy document, keyed
// by tenant ID, with a Default applied to any tenant not listed.
type TenantsConfig struct {
	Default  TenantPolicy            `yaml:"default"`
	ByTenant map[string]TenantPolicy `yaml:"by_tenant"`
}

// TenantPolicy mirrors internal/orchestrator.TenantConfig's fields in
// YAML-friendly form; the loader converts string tags to the strongly
// typed models.UrgencyLevel/models.RiskFlag the orchestrator expects.
type TenantPolicy struct {
	AutoCreateOnNew      bool                       `yaml:"auto_create_on_new"`
	EscalationIntents    []string                   `yaml:"escalation_intents"`
	UrgencyAutoEscalate  []string                   `yaml:"urgency_auto_escalate"`
	RiskFlagAutoEscalate []string                   `yaml:"risk_flag_auto_escalate"`
	SentimentThreshold   float64                    `yaml:"sentiment_threshold"`
	FrustrationKeywords  []string                   `yaml:"frustration_keywords"`
	MaxClarifications    int                        `yaml:"max_clarifications"`
	DefaultMaxTurns      int                        `yaml:"default_max_turns_before_escalation"`
	ChannelMaxTurns      map[string]int             `yaml:"channel_max_turns_before_escalation"`
}

// UrgencyLevels converts the policy's string tags to models.UrgencyLevel.
func (p TenantPolicy) UrgencyLevels() []models.UrgencyLevel {
	out := make([]models.UrgencyLevel, 0, len(p.UrgencyAutoEscalate))
	for _, v := range p.UrgencyAutoEscalate {
		out = append(out, models.UrgencyLevel(v))
	}
	return out
}

// RiskFlags converts the policy's string tags to models.RiskFlag.
func (p TenantPolicy) RiskFlags() []models.RiskFlag {
	out := make([]models.RiskFlag, 0, len(p.RiskFlagAutoEscalate))
	for _, v := range p.RiskFlagAutoEscalate {
		out = append(out, models.RiskFlag(v))
	}
	return out
}

// ChannelsConfig holds per-channel webhook/auth material for the three
// supported surfaces (web widget, WhatsApp Business API, business chat).
type ChannelsConfig struct {
	Web          WebChannelConfig          `yaml:"web"`
	WhatsApp     WhatsAppChannelConfig     `yaml:"whatsapp"`
	BusinessChat BusinessChatChannelConfig `yaml:"business_chat"`
}

type WebChannelConfig struct {
	Enabled       bool   `yaml:"enabled"`
	WidgetOrigin  string `yaml:"widget_origin"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type WhatsAppChannelConfig struct {
	Enabled           bool   `yaml:"enabled"`
	PhoneNumberID     string `yaml:"phone_number_id"`
	AccessTokenEnv    string `yaml:"access_token_env"`
	VerifyToken       string `yaml:"verify_token"`
	AppSecretEnv      string `yaml:"app_secret_env"`
}

type BusinessChatChannelConfig struct {
	Enabled        bool   `yaml:"enabled"`
	AccountID      string `yaml:"account_id"`
	AccessTokenEnv string `yaml:"access_token_env"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyRedisDefaults(&cfg.Redis)
	applyAuthDefaults(&cfg.Auth)
	applyLLMDefaults(&cfg.LLM)
	applyPIIVaultDefaults(&cfg.PIIVault)
	applyAuditDefaults(&cfg.Audit)
	applyLoggingDefaults(&cfg.Logging)
	applySLADefaults(&cfg.SLA)
	applyTenantDefaults(&cfg.Tenants)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8080
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9090
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 25
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
}

func applyRedisDefaults(cfg *RedisConfig) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}
}

func applyLLMDefaults(cfg *LLMConfig) {
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
}

func applyPIIVaultDefaults(cfg *PIIVaultConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.SweepEvery == 0 {
		cfg.SweepEvery = 10 * time.Minute
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
}

func applySLADefaults(cfg *SLASweepConfig) {
	if cfg.Schedule == "" {
		cfg.Schedule = "*/1 * * * *"
	}
}

func applyTenantDefaults(cfg *TenantsConfig) {
	if cfg.Default.MaxClarifications == 0 {
		cfg.Default.MaxClarifications = 3
	}
	if cfg.Default.SentimentThreshold == 0 {
		cfg.Default.SentimentThreshold = -0.7
	}
	if cfg.Default.DefaultMaxTurns == 0 {
		cfg.Default.DefaultMaxTurns = 15
	}
	if len(cfg.Default.UrgencyAutoEscalate) == 0 {
		cfg.Default.UrgencyAutoEscalate = []string{"critical"}
	}
	if len(cfg.Default.RiskFlagAutoEscalate) == 0 {
		cfg.Default.RiskFlagAutoEscalate = []string{
			"legal_threat", "social_media_threat", "policy_exception_requested", "repeat_complaint",
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(getenv("RESOLVR_HOST")); v != "" {
		cfg.Server.Host = v
	}
	if v := strings.TrimSpace(getenv("RESOLVR_HTTP_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = parsed
		}
	}
	if v := strings.TrimSpace(getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(getenv("RESOLVR_ADMIN_SECRET")); v != "" {
		cfg.Auth.AdminSecret = v
	}
}

type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var issues []string

	if cfg.Database.MaxConnections < 0 {
		issues = append(issues, "database.max_connections must be >= 0")
	}
	if cfg.Auth.AdminSecret != "" && len(cfg.Auth.AdminSecret) < 16 {
		issues = append(issues, "auth.admin_secret must be at least 16 characters when set")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "anthropic", "":
	default:
		issues = append(issues, fmt.Sprintf("llm.provider %q is not supported", cfg.LLM.Provider))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.PIIVault.Backend)) {
	case "memory", "redis":
	default:
		issues = append(issues, "pii_vault.backend must be \"memory\" or \"redis\"")
	}
	if cfg.Tenants.Default.MaxClarifications < 0 {
		issues = append(issues, "tenants.default.max_clarifications must be >= 0")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
