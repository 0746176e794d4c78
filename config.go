package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ScrollConfig holds the auto-scroll delays as duration strings ("100ms").
type ScrollConfig struct {
	LocalDelay    string `toml:"local_delay"`
	RemoteDelay   string `toml:"remote_delay"`
	ActivateDelay string `toml:"activate_delay"`
}

type Config struct {
	FeedDir         string       `toml:"feed_dir"`
	UserID          string       `toml:"user_id"`
	DisplayName     string       `toml:"display_name"`
	MaxMessages     int          `toml:"max_messages"`
	StayBottom      *bool        `toml:"stay_bottom"` // nil = default (true)
	StaticUI        bool         `toml:"static_ui"`
	ShowDateDivider int          `toml:"show_date_divider"`
	Header          string       `toml:"header"`
	LogLevel        string       `toml:"log_level"`
	LogFormat       string       `toml:"log_format"`
	Scroll          ScrollConfig `toml:"scroll"`
}

// StayBottomEnabled returns whether auto-scrolling is enabled.
func (c Config) StayBottomEnabled() bool {
	if c.StayBottom == nil {
		return true // enabled by default
	}
	return *c.StayBottom
}

// Delays parses the scroll delays, falling back to the defaults for empty values.
func (c Config) Delays() (scrollDelays, error) {
	d := defaultScrollDelays()
	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"scroll.local_delay", c.Scroll.LocalDelay, &d.Local},
		{"scroll.remote_delay", c.Scroll.RemoteDelay, &d.Remote},
		{"scroll.activate_delay", c.Scroll.ActivateDelay, &d.Activate},
	} {
		if f.raw == "" {
			continue
		}
		v, err := time.ParseDuration(f.raw)
		if err != nil {
			return d, fmt.Errorf("%s: %w", f.name, err)
		}
		if v < 0 {
			return d, fmt.Errorf("%s: negative duration %s", f.name, v)
		}
		*f.dst = v
	}
	return d, nil
}

// ListOptions builds the message list options described by the config.
func (c Config) ListOptions() (ListOptions, error) {
	delays, err := c.Delays()
	if err != nil {
		return ListOptions{}, err
	}
	opts := defaultListOptions()
	opts.StayBottom = c.StayBottomEnabled()
	opts.StaticUI = c.StaticUI
	opts.ShowDateDivider = c.ShowDateDivider
	opts.Header = c.Header
	opts.LocalUserID = c.UserID
	opts.Delays = delays
	return opts, nil
}

func defaultConfig() Config {
	return Config{
		FeedDir:     defaultFeedDir(),
		MaxMessages: 500,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

func defaultFeedDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "feed"
	}
	return filepath.Join(home, ".local", "share", "tailchat", "feed")
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("TAILCHAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "tailchat", "config.toml")
}

func LoadConfig(flagPath string) (Config, error) {
	cfg := defaultConfig()

	path := configPath(flagPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.fillDefaults()
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.fillDefaults()
}

func (c *Config) fillDefaults() error {
	if c.MaxMessages <= 0 {
		c.MaxMessages = 500
	}
	if c.FeedDir == "" {
		c.FeedDir = defaultFeedDir()
	}
	if c.UserID == "" {
		c.UserID = os.Getenv("USER")
	}
	if c.DisplayName == "" {
		c.DisplayName = c.UserID
	}
	if _, err := c.Delays(); err != nil {
		return err
	}
	return nil
}

// lastActivePath returns the path of the file remembering the selected conversation.
func lastActivePath(cfgFlagPath string) string {
	dir := filepath.Dir(configPath(cfgFlagPath))
	return filepath.Join(dir, "last_active")
}

// LoadLastActive returns the conversation that was selected when tailchat
// last exited, or "" if unknown.
func LoadLastActive(cfgFlagPath string) string {
	data, err := os.ReadFile(lastActivePath(cfgFlagPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveLastActive remembers the selected conversation.
func SaveLastActive(cfgFlagPath, conversationID string) error {
	path := lastActivePath(cfgFlagPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(conversationID+"\n"), 0o644)
}
