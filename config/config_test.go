package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != "8000" {
		t.Errorf("http_port = %q, want 8000", cfg.Server.HTTPPort)
	}
	if cfg.Gateway.Timeout != 10*time.Second {
		t.Errorf("gateway.timeout = %v, want 10s", cfg.Gateway.Timeout)
	}
	if cfg.Poller.Enabled {
		t.Error("poller must be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openwan.yaml")
	yaml := `
server:
  http_port: "9090"
database:
  driver: sqlite
  dsn: ":memory:"
poller:
  enabled: true
  interval: 3s
mail:
  host: smtp.example.com
  username: alerts@example.com
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != "9090" {
		t.Errorf("http_port = %q", cfg.Server.HTTPPort)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if !cfg.Poller.Enabled || cfg.Poller.Interval != 3*time.Second {
		t.Errorf("poller = %+v", cfg.Poller)
	}
	if cfg.Mail.Host != "smtp.example.com" {
		t.Errorf("mail.host = %q", cfg.Mail.Host)
	}
	if cfg.Mail.Port != 587 {
		t.Errorf("mail.port default = %d, want 587", cfg.Mail.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load("/nonexistent/openwan.yaml"); err == nil {
		t.Error("explicit missing config path must error")
	}
}
