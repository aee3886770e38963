package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
jwt:
  secret: from-file
outbox:
  batch_size: 50
`)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadFrom("local", dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("secret = %q", cfg.JWT.Secret)
	}
	if cfg.Server.Port != ":5000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Outbox.BatchSize != 50 || cfg.Outbox.Interval() != time.Second {
		t.Errorf("outbox = %+v", cfg.Outbox)
	}
}

func TestLoadFromRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
storage:
  driver: mongo
jwt:
  secret: x
`)
	if _, err := LoadFrom("", dir); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadFromRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", "server:\n  port: \":8080\"\n")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadFrom("", dir); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}
