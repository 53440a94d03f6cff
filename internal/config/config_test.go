package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  mysql:
    dsn: "user:pass@tcp(localhost:3306)/db"
jwt:
  secret: "s"
auth:
  lookup_failure_role: "user"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expect default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Auth.AdminRole != "admin" || cfg.Auth.SignInPath != "/login" {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.BypassAdminCheck {
		t.Fatalf("bypass must default to false")
	}
	if cfg.List.DefaultPageSize != 10 {
		t.Fatalf("expect default page size 10, got %d", cfg.List.DefaultPageSize)
	}
	if cfg.Auth.LookupTimeout != 5*time.Second {
		t.Fatalf("expect default lookup timeout 5s, got %s", cfg.Auth.LookupTimeout)
	}
}

func TestLoad_RequiresLookupFailureRole(t *testing.T) {
	path := writeConfig(t, `
database:
  mysql:
    dsn: "user:pass@tcp(localhost:3306)/db"
jwt:
  secret: "s"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "auth.lookup_failure_role") {
		t.Fatalf("expect lookup_failure_role error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expect error for missing file")
	}
}
