// Package config loads the daemon configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Daemon holds all configuration for the communication service daemon.
type Daemon struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// Storage
	DataDir string `yaml:"data_dir"` // gameplay databases live under <data_dir>/gameplay

	// Locale sent to the gameplay service in X-Gog-Lc.
	Locale string `yaml:"locale"`

	// Lifecycle
	QuitWhenIdle bool `yaml:"quit_when_idle"`
	IdleSeconds  int  `yaml:"idle_seconds"` // window after the last handler exits

	// Service endpoints (overridable for testing)
	Endpoints Endpoints `yaml:"endpoints"`

	// Overlay notification preferences forwarded to the overlay frontend.
	Overlay Overlay `yaml:"overlay"`
}

// Endpoints are the vendor service base URLs.
type Endpoints struct {
	Auth     string `yaml:"auth"`
	Embed    string `yaml:"embed"`
	Gameplay string `yaml:"gameplay"`
	API      string `yaml:"api"`
	Pusher   string `yaml:"pusher"`
}

// Overlay holds the overlay UI preferences.
type Overlay struct {
	NotificationVolume int                   `yaml:"notification_volume"`
	Position           string                `yaml:"position"` // bottom_right, bottom_left, top_right, top_left
	Notifications      map[string]NotifyPref `yaml:"notifications"`
}

// NotifyPref enables one notification kind and its sound.
type NotifyPref struct {
	Enabled bool `yaml:"enabled"`
	Sound   bool `yaml:"sound"`
}

// Default returns the daemon config with production defaults.
func Default() Daemon {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}

	return Daemon{
		BindAddress:  "127.0.0.1",
		Port:         9977,
		LogLevel:     "info",
		DataDir:      filepath.Join(dataDir, "galaxyd"),
		Locale:       "en-US",
		QuitWhenIdle: false,
		IdleSeconds:  15,
		Endpoints: Endpoints{
			Auth:     "https://auth.gog.com",
			Embed:    "https://embed.gog.com",
			Gameplay: "https://gameplay.gog.com",
			API:      "https://api.gog.com",
			Pusher:   "wss://notifications-pusher.gog.com",
		},
		Overlay: Overlay{
			NotificationVolume: 50,
			Position:           "bottom_right",
			Notifications: map[string]NotifyPref{
				"chat":              {Enabled: true, Sound: true},
				"friend_online":     {Enabled: true, Sound: true},
				"friend_invite":     {Enabled: true, Sound: true},
				"friend_game_start": {Enabled: true, Sound: true},
				"game_invite":       {Enabled: true, Sound: true},
			},
		},
	}
}

// Load reads daemon config from a YAML file. A missing file yields the
// defaults.
func Load(path string) (Daemon, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
