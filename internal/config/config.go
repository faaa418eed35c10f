package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Connection modes sent in the mode query parameter
const (
	ModePresenter = "presenter"
	ModeObserver  = "obs"
)

// ServerConfig holds the relay listen address
type ServerConfig struct {
	Host string `env:"SLIDELINK_HOST" envDefault:"0.0.0.0"`
	Port string `env:"SLIDELINK_PORT" envDefault:"8080"`
}

// TLSConfig holds the relay certificate settings
type TLSConfig struct {
	Enabled    bool   `env:"SLIDELINK_TLS_ENABLED" envDefault:"false"`
	CertFile   string `env:"SLIDELINK_TLS_CERT"`
	KeyFile    string `env:"SLIDELINK_TLS_KEY"`
	MinVersion string `env:"SLIDELINK_TLS_MIN_VERSION" envDefault:"1.2"`
}

// RelayConfig is the configuration of the relay server
type RelayConfig struct {
	Server  ServerConfig
	TLS     TLSConfig
	DBPath  string `env:"DB_PATH" envDefault:"./data/slidelink.db"`
	DeckDir string `env:"SLIDELINK_DECK_DIR"`
}

// ReconnectConfig enables bounded exponential backoff after a lost connection
type ReconnectConfig struct {
	Enabled      bool          `env:"SLIDELINK_RECONNECT" envDefault:"false"`
	InitialDelay time.Duration `env:"SLIDELINK_RECONNECT_INITIAL" envDefault:"250ms"`
	Multiplier   float64       `env:"SLIDELINK_RECONNECT_MULTIPLIER" envDefault:"2"`
	MaxDelay     time.Duration `env:"SLIDELINK_RECONNECT_MAX_DELAY" envDefault:"5s"`
	MaxAttempts  int           `env:"SLIDELINK_RECONNECT_MAX_ATTEMPTS" envDefault:"10"`
	Jitter       bool          `env:"SLIDELINK_RECONNECT_JITTER" envDefault:"true"`
}

// ClientConfig is the configuration of a presentation client
type ClientConfig struct {
	// URL may be absolute (ws://, wss://) or relative to PageURL
	URL              string        `env:"SLIDELINK_URL" envDefault:"/ws"`
	PageURL          string        `env:"SLIDELINK_PAGE_URL" envDefault:"http://localhost:8080/"`
	Mode             string        `env:"SLIDELINK_MODE" envDefault:"obs"`
	Key              string        `env:"SLIDELINK_KEY"`
	Deck             string        `env:"SLIDELINK_DECK"`
	RootClass        string        `env:"SLIDELINK_ROOT_CLASS" envDefault:"slides"`
	HandshakeTimeout time.Duration `env:"SLIDELINK_HANDSHAKE_TIMEOUT" envDefault:"5s"`
	// Heartbeat enables websocket pings; zero leaves liveness to the transport
	Heartbeat time.Duration `env:"SLIDELINK_HEARTBEAT" envDefault:"0s"`
	DeadAfter time.Duration `env:"SLIDELINK_DEAD_AFTER" envDefault:"15s"`
	Reconnect ReconnectConfig
	LogFile   string `env:"SLIDELINK_LOG_FILE" envDefault:"slidelink.log"`
	// Watch reloads the deck when the file changes
	Watch bool `env:"SLIDELINK_WATCH" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadRelay reads the relay configuration from the environment
func LoadRelay() (*RelayConfig, error) {
	var cfg RelayConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.TLS.Enabled && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		return nil, fmt.Errorf("TLS enabled but certificate or key file not set")
	}
	return &cfg, nil
}

// LoadClient reads the client configuration from the environment
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env tags cannot express
func (c *ClientConfig) Validate() error {
	switch c.Mode {
	case ModePresenter, ModeObserver:
	default:
		return fmt.Errorf("invalid mode %q: want %q or %q", c.Mode, ModePresenter, ModeObserver)
	}
	if c.Heartbeat < 0 || c.DeadAfter < 0 {
		return fmt.Errorf("heartbeat durations must not be negative")
	}
	if c.Heartbeat > 0 && c.DeadAfter <= c.Heartbeat {
		return fmt.Errorf("dead-after %s must exceed heartbeat %s", c.DeadAfter, c.Heartbeat)
	}
	return nil
}

// TLSVersion converts string version to tls.Version constant
func TLSVersion(version string) uint16 {
	switch version {
	case "1.0":
		return tls.VersionTLS10
	case "1.1":
		return tls.VersionTLS11
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
