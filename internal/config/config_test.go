package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gdw.yaml")
	yml := `
env: staging
db:
  dsn: postgres://yaml
orders:
  payment_ttl: 45m
  standard_shipping_cents: 40000
storage:
  driver: local
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv("GDW_CONFIG_FILE", path)
	t.Setenv("DB_DSN", "postgres://env")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB.DSN != "postgres://env" {
		t.Errorf("Expected env DSN to win, got %q", cfg.DB.DSN)
	}
	if cfg.Env != "staging" {
		t.Errorf("Expected env from yaml, got %q", cfg.Env)
	}
	if cfg.Orders.PaymentTTL != 45*time.Minute {
		t.Errorf("Expected payment ttl 45m, got %v", cfg.Orders.PaymentTTL)
	}
	if cfg.Orders.StandardShippingCents != 40000 {
		t.Errorf("Expected standard shipping 40000, got %d", cfg.Orders.StandardShippingCents)
	}
	if cfg.Orders.ExpressShippingCents != Defaults().Orders.ExpressShippingCents {
		t.Errorf("Expected express shipping default, got %d", cfg.Orders.ExpressShippingCents)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "http://b.test" {
		t.Errorf("Expected two cors origins, got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Payments.Provider = "gateway"
	cfg.Storage.Driver = "s3"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"DB_DSN", "PAYMENT_KEY_ID", "S3_BUCKET"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected error to mention %s, got %q", want, msg)
		}
	}
}

func TestValidate_ProductionRejectsMockProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Env = "production"
	cfg.DB.DSN = "postgres://x"
	cfg.Cart.Secret = strings.Repeat("s", 32)

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "mock") {
		t.Fatalf("Expected mock provider to be rejected in production, got %v", err)
	}
}

func TestValidate_DefaultsWithDSN(t *testing.T) {
	cfg := Defaults()
	cfg.DB.DSN = "postgres://x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
}
