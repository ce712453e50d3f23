package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DATA_FILE", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("CHANNEL_ID", "")
	t.Setenv("CHANNEL_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.StorageBackend != StorageBackendJSON {
		t.Errorf("expected default backend %s, got %s", StorageBackendJSON, cfg.StorageBackend)
	}
	if cfg.DataFile != "accounts.json" {
		t.Errorf("expected default data file accounts.json, got %s", cfg.DataFile)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "dynamodb")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestNormalizeConnectionString(t *testing.T) {
	raw := "Host=db.internal;Port=5433;Database=ledger;Username=svc;Password=secret;Timeout=30"
	got := normalizeConnectionString(raw)

	for _, want := range []string{
		"host=db.internal",
		"port=5433",
		"dbname=ledger",
		"user=svc",
		"password=secret",
		"connect_timeout=30",
		"sslmode=disable",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("normalized DSN missing %q: %s", want, got)
		}
	}
}
