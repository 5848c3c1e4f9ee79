package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN", "")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OccurrenceAPIURL != "https://api.gbif.org/v1/occurrence/search" {
		t.Fatalf("unexpected occurrence URL: %q", cfg.OccurrenceAPIURL)
	}

	if cfg.InstitutionCode != "NHMUK" {
		t.Fatalf("unexpected institution code: %q", cfg.InstitutionCode)
	}

	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", cfg.OpenAIModel)
	}

	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected HTTP timeout: %s", cfg.HTTPTimeout)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected HTTP address: %q", cfg.HTTPAddr)
	}
}

func TestLoadAllowedUsers(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("ALLOWED_USERS", "1,2,3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(cfg.AllowedUsers, []int64{1, 2, 3}) {
		t.Fatalf("unexpected allowed users: %v", cfg.AllowedUsers)
	}
}

func TestLoadRequiresFrontEnd(t *testing.T) {
	t.Setenv("TOKEN", " ")
	t.Setenv("HTTP_ADDR", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when neither TOKEN nor HTTP_ADDR is set")
	}
}

func TestLoadRejectsInvalidAllowedUsers(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("ALLOWED_USERS", "1,abc")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric ALLOWED_USERS")
	}
}
