package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDecodeMergesEnvironmentAndSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  password: ${DB_PASSWORD_SECRET}
jwt:
  secret: base-secret
server:
  port: ":8080"
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
server:
  port: ":9090"
`)
	writeFile(t, dir, "secrets.env", `
# comment
DB_PASSWORD_SECRET="s3cret"
`)

	var cfg struct {
		DB     DBConfig     `yaml:"db"`
		JWT    JWTConfig    `yaml:"jwt"`
		Server ServerConfig `yaml:"server"`
	}
	if err := Decode("staging", dir, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.DB.Host != "db.staging" {
		t.Errorf("host = %q, want db.staging", cfg.DB.Host)
	}
	if cfg.DB.Port != 5432 {
		t.Errorf("port = %d, want 5432 from base", cfg.DB.Port)
	}
	if cfg.DB.Password != "s3cret" {
		t.Errorf("password = %q, want value from secrets.env", cfg.DB.Password)
	}
	if cfg.Server.Port != ":9090" {
		t.Errorf("server port = %q", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "base-secret" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error when base.yaml is missing")
	}
}

func TestSubstituteStringPrefersProcessEnv(t *testing.T) {
	t.Setenv("AGENCY_TEST_VALUE", "from-env")

	got := substituteString("x-${AGENCY_TEST_VALUE}-${UNKNOWN_VALUE}", map[string]string{"AGENCY_TEST_VALUE": "from-file"})
	if got != "x-from-env-${UNKNOWN_VALUE}" {
		t.Fatalf("got %q", got)
	}
}

func TestJWTConfigTTLDefault(t *testing.T) {
	if got := (JWTConfig{}).TTL().Hours(); got != 100 {
		t.Fatalf("default ttl = %vh, want 100h", got)
	}
	if got := (JWTConfig{TTLHours: 2}).TTL().Hours(); got != 2 {
		t.Fatalf("ttl = %vh, want 2h", got)
	}
}

func TestOverrideSMTPFromEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg := SMTPConfig{Host: "localhost", Port: 25}
	OverrideSMTPFromEnv(&cfg)
	if cfg.Host != "smtp.example.com" || cfg.Port != 2525 {
		t.Fatalf("override failed: %+v", cfg)
	}
}
