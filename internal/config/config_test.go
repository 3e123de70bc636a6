package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "resolvr.yaml", `
database:
  url: "postgres://localhost/resolvr"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Fatalf("expected default http_port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("expected default llm provider anthropic, got %q", cfg.LLM.Provider)
	}
	if cfg.PIIVault.Backend != "memory" {
		t.Fatalf("expected default pii_vault backend memory, got %q", cfg.PIIVault.Backend)
	}
	if len(cfg.Tenants.Default.RiskFlagAutoEscalate) != 4 {
		t.Fatalf("expected 4 default auto-escalate risk flags, got %d", len(cfg.Tenants.Default.RiskFlagAutoEscalate))
	}
}

func TestLoadWithInclude(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "tenants.yaml", `
tenants:
  default:
    max_clarifications: 5
`)
	path := writeConfigFile(t, dir, "resolvr.yaml", `
$include: tenants.yaml
server:
  http_port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9000 {
		t.Fatalf("expected http_port 9000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Tenants.Default.MaxClarifications != 5 {
		t.Fatalf("expected max_clarifications 5 from included file, got %d", cfg.Tenants.Default.MaxClarifications)
	}
}

func TestValidateRejectsShortAdminSecret(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "resolvr.yaml", `
auth:
  admin_secret: "short"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for short admin_secret")
	}
}

func TestTenantPolicyConversions(t *testing.T) {
	p := TenantPolicy{
		UrgencyAutoEscalate:  []string{"critical"},
		RiskFlagAutoEscalate: []string{"legal_threat"},
	}
	if len(p.UrgencyLevels()) != 1 || string(p.UrgencyLevels()[0]) != "critical" {
		t.Fatalf("unexpected urgency levels: %v", p.UrgencyLevels())
	}
	if len(p.RiskFlags()) != 1 || string(p.RiskFlags()[0]) != "legal_threat" {
		t.Fatalf("unexpected risk flags: %v", p.RiskFlags())
	}
}
