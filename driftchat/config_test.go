package driftchat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftchat.yaml")
	data := []byte(`
base_url: https://api.chat.test
socket_url: wss://api.chat.test/ws
history_page_size: 25
verify_paths:
  - /auth/verify-password
  - /auth/verify-pin
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://api.chat.test" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.HistoryPageSize != 25 {
		t.Fatalf("history page size = %d", cfg.HistoryPageSize)
	}
	if len(cfg.VerifyPaths) != 2 || cfg.VerifyPaths[1] != "/auth/verify-pin" {
		t.Fatalf("verify paths = %v", cfg.VerifyPaths)
	}
	// untouched fields keep their defaults
	if cfg.HeartbeatInterval != DefaultConfig().HeartbeatInterval {
		t.Fatalf("heartbeat interval = %v", cfg.HeartbeatInterval)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
