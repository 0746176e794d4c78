package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.FeedDir == "" {
		t.Fatal("expected a default feed dir")
	}
	if cfg.MaxMessages != 500 {
		t.Errorf("MaxMessages = %d, want 500", cfg.MaxMessages)
	}
	if !cfg.StayBottomEnabled() {
		t.Error("stay_bottom should default to true")
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("flag takes priority", func(t *testing.T) {
		got := configPath("/my/flag/path.toml")
		if got != "/my/flag/path.toml" {
			t.Errorf("configPath with flag = %q, want %q", got, "/my/flag/path.toml")
		}
	})

	t.Run("env var when no flag", func(t *testing.T) {
		t.Setenv("TAILCHAT_CONFIG", "/env/path.toml")
		got := configPath("")
		if got != "/env/path.toml" {
			t.Errorf("configPath with env = %q, want %q", got, "/env/path.toml")
		}
	})

	t.Run("default when no flag or env", func(t *testing.T) {
		t.Setenv("TAILCHAT_CONFIG", "")
		got := configPath("")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Fatalf("os.UserHomeDir() failed: %v", err)
		}
		want := filepath.Join(home, ".config", "tailchat", "config.toml")
		if got != want {
			t.Errorf("configPath default = %q, want %q", got, want)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgFile
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		t.Setenv("USER", "tester")
		flagPath := filepath.Join(t.TempDir(), "nonexistent.toml")
		cfg, err := LoadConfig(flagPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxMessages != 500 {
			t.Errorf("MaxMessages = %d, want 500", cfg.MaxMessages)
		}
		if cfg.UserID != "tester" || cfg.DisplayName != "tester" {
			t.Errorf("user = %q/%q, want tester/tester", cfg.UserID, cfg.DisplayName)
		}
	})

	t.Run("valid TOML parses", func(t *testing.T) {
		cfgFile := writeConfig(t, `
feed_dir = "/srv/feed"
user_id = "alice"
display_name = "Alice"
max_messages = 100
stay_bottom = false
show_date_divider = 1
header = "welcome"

[scroll]
remote_delay = "250ms"
`)
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.FeedDir != "/srv/feed" {
			t.Errorf("FeedDir = %q", cfg.FeedDir)
		}
		if cfg.UserID != "alice" || cfg.DisplayName != "Alice" {
			t.Errorf("user = %q/%q", cfg.UserID, cfg.DisplayName)
		}
		if cfg.MaxMessages != 100 {
			t.Errorf("MaxMessages = %d, want 100", cfg.MaxMessages)
		}
		if cfg.StayBottomEnabled() {
			t.Error("stay_bottom = false was ignored")
		}

		opts, err := cfg.ListOptions()
		if err != nil {
			t.Fatalf("ListOptions: %v", err)
		}
		if opts.StayBottom || opts.ShowDateDivider != 1 || opts.Header != "welcome" || opts.LocalUserID != "alice" {
			t.Errorf("unexpected list options: %+v", opts)
		}
		if opts.Delays.Remote != 250*time.Millisecond {
			t.Errorf("Remote delay = %v, want 250ms", opts.Delays.Remote)
		}
		if opts.Delays.Local != 10*time.Millisecond || opts.Delays.Activate != 500*time.Millisecond {
			t.Errorf("unset delays should keep defaults, got %+v", opts.Delays)
		}
	})

	t.Run("zero max_messages gets default", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `max_messages = 0`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxMessages != 500 {
			t.Errorf("MaxMessages = %d, want 500 (default)", cfg.MaxMessages)
		}
	})

	t.Run("invalid delay is an error", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "[scroll]\nlocal_delay = \"soon\"\n"))
		if err == nil || !strings.Contains(err.Error(), "scroll.local_delay") {
			t.Errorf("expected scroll.local_delay error, got %v", err)
		}
	})

	t.Run("negative delay is an error", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "[scroll]\nactivate_delay = \"-1s\"\n"))
		if err == nil {
			t.Error("expected an error for a negative delay")
		}
	})

	t.Run("malformed TOML is an error", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `max_messages = = 3`))
		if err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestLoadLastActiveAndSaveLastActive(t *testing.T) {
	cfgFile := writeConfig(t, "")

	if got := LoadLastActive(cfgFile); got != "" {
		t.Errorf("expected no last active conversation, got %q", got)
	}

	if err := SaveLastActive(cfgFile, "general"); err != nil {
		t.Fatal(err)
	}
	if got := LoadLastActive(cfgFile); got != "general" {
		t.Errorf("LoadLastActive = %q, want %q", got, "general")
	}
}
