package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "ASSIGNMENT_CACHE_TTL_SECONDS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(nil)
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: got=%q", cfg.Addr())
	}
	if cfg.DB.Driver != "postgres" {
		t.Fatalf("driver: got=%q", cfg.DB.Driver)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Fatalf("cache ttl: got=%v", cfg.Redis.TTL)
	}
	if cfg.CORSOrigins != nil {
		t.Fatalf("cors: got=%v want nil", cfg.CORSOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("ASSIGNMENT_CACHE_TTL_SECONDS", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")

	cfg := LoadConfig(nil)
	if cfg.Addr() != ":9000" {
		t.Fatalf("addr: got=%q", cfg.Addr())
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.SQLitePath != "/tmp/x.db" {
		t.Fatalf("db: got=%+v", cfg.DB)
	}
	if cfg.Redis.TTL != time.Minute {
		t.Fatalf("cache ttl: got=%v", cfg.Redis.TTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors: got=%v", cfg.CORSOrigins)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown: got=%v", cfg.ShutdownTimeout)
	}
}

func TestWireCredentials(t *testing.T) {
	log := logger.Nop()
	ctx := t.Context()

	v, err := wireCredentials(log, Config{})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if id, err := v.Verify(ctx, "test-token-123"); err != nil || id != 1 {
		t.Fatalf("default token: got=%d err=%v", id, err)
	}

	v, err = wireCredentials(log, Config{AuthTokens: "alpha:7"})
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if _, err := v.Verify(ctx, "test-token-123"); err == nil {
		t.Fatal("defaults should not apply when AUTH_TOKENS is set")
	}
	if id, _ := v.Verify(ctx, "alpha"); id != 7 {
		t.Fatalf("env token: got=%d", id)
	}

	path := filepath.Join(t.TempDir(), "tokens.yaml")
	if err := os.WriteFile(path, []byte("credentials:\n  - token: beta\n    client_id: 9\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err = wireCredentials(log, Config{AuthTokensFile: path, JWTSecretKey: "secret"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if id, _ := v.Verify(ctx, "beta"); id != 9 {
		t.Fatalf("file token: got=%d", id)
	}
	signer, err := services.NewJWTCredentials("secret")
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	tok, err := signer.Issue(11, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if id, err := v.Verify(ctx, tok); err != nil || id != 11 {
		t.Fatalf("jwt token: got=%d err=%v", id, err)
	}

	if _, err := wireCredentials(log, Config{AuthTokens: "broken"}); err == nil {
		t.Fatal("malformed AUTH_TOKENS should fail")
	}
}
