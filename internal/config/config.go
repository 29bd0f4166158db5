package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"unifimon/internal/addrutil"
)

const (
	DefaultControllerURL = "https://192.168.1.1"
	DefaultAPIKey        = "<insert-your-api-key>"
	DefaultSiteName      = "default"
	DefaultWANIndex      = 0
	DefaultTimeoutSec    = 5
	DefaultIntervalSec   = 1
	DefaultPanelListen   = "127.0.0.1:9120"
	DefaultSTUNServer    = "stun.l.google.com:19302"
)

// Config holds the monitor's settings.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Poll    PollConfig    `yaml:"poll"`
	Panel   PanelConfig   `yaml:"panel"`
	Doctor  DoctorConfig  `yaml:"doctor"`
}

// GatewayConfig describes how to reach the UniFi controller.
type GatewayConfig struct {
	ControllerURL string `yaml:"controller_url"`
	APIKey        string `yaml:"api_key"`
	SiteName      string `yaml:"site_name"`
	WANIndex      int    `yaml:"wan_index"`
	// InsecureSkipVerify defaults to true: gateways ship self-signed
	// certificates. Set false together with ca_file to pin a CA.
	InsecureSkipVerify *bool  `yaml:"insecure_skip_verify,omitempty"`
	CAFile             string `yaml:"ca_file,omitempty"`
	Proxy              string `yaml:"proxy,omitempty"`
	TimeoutSec         int    `yaml:"timeout_sec"`
}

// PollConfig controls the polling cadence.
type PollConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

// PanelConfig controls the local panel HTTP server.
type PanelConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token,omitempty"`
}

// DoctorConfig is used by the doctor command only.
type DoctorConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

// Default returns a config with every default applied.
func Default() Config {
	cfg := Config{
		Gateway: GatewayConfig{
			ControllerURL: DefaultControllerURL,
			APIKey:        DefaultAPIKey,
			SiteName:      DefaultSiteName,
			WANIndex:      DefaultWANIndex,
		},
	}
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// LoadOrCreate loads path, writing a default config first when the file does
// not exist. created reports whether the file was written.
func LoadOrCreate(path string) (cfg Config, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Config{}, false, err
	}

	cfg = Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("writing default config: %w", err)
	}
	return cfg, true, nil
}

// Save writes a YAML config file to disk. The API key makes it 0600.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the fields the poller depends on.
func Validate(cfg Config) error {
	if cfg.Gateway.ControllerURL == "" {
		return fmt.Errorf("gateway.controller_url is required")
	}
	if cfg.Gateway.APIKey == "" {
		return fmt.Errorf("gateway.api_key is required")
	}
	if cfg.Gateway.SiteName == "" {
		return fmt.Errorf("gateway.site_name is required")
	}
	if cfg.Gateway.WANIndex < 0 {
		return fmt.Errorf("gateway.wan_index must be >= 0, got %d", cfg.Gateway.WANIndex)
	}
	if cfg.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll.interval_sec must be > 0")
	}
	if p := cfg.Gateway.Proxy; p != "" && !strings.HasPrefix(p, "socks5://") && !strings.HasPrefix(p, "socks5h://") {
		return fmt.Errorf("gateway.proxy must be a socks5:// url")
	}
	if !InsecureSkipVerify(cfg.Gateway) && cfg.Gateway.CAFile != "" {
		if _, err := os.Stat(cfg.Gateway.CAFile); err != nil {
			return fmt.Errorf("gateway.ca_file: %w", err)
		}
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Gateway.ControllerURL == "" {
		cfg.Gateway.ControllerURL = DefaultControllerURL
	}
	cfg.Gateway.ControllerURL = addrutil.BaseURL(cfg.Gateway.ControllerURL)
	if cfg.Gateway.SiteName == "" {
		cfg.Gateway.SiteName = DefaultSiteName
	}
	if cfg.Gateway.InsecureSkipVerify == nil {
		v := true
		cfg.Gateway.InsecureSkipVerify = &v
	}
	if cfg.Gateway.TimeoutSec == 0 {
		cfg.Gateway.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Poll.IntervalSec == 0 {
		cfg.Poll.IntervalSec = DefaultIntervalSec
	}
	if cfg.Panel.Listen == "" {
		cfg.Panel.Listen = DefaultPanelListen
	}
	if len(cfg.Doctor.STUNServers) == 0 {
		cfg.Doctor.STUNServers = []string{DefaultSTUNServer}
	}
}

// InsecureSkipVerify reports the effective certificate policy.
func InsecureSkipVerify(g GatewayConfig) bool {
	return g.InsecureSkipVerify == nil || *g.InsecureSkipVerify
}

// APIKeyIsPlaceholder reports whether the API key was never filled in.
func APIKeyIsPlaceholder(g GatewayConfig) bool {
	return g.APIKey == DefaultAPIKey
}

// Interval returns the poll cadence.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// Timeout returns the per-request timeout.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}
