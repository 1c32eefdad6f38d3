package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spikewatch/spikewatch/pkg/scene"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort          = 8080
	DefaultHostTimeout       = 10 * time.Second
	DefaultResultTTL         = time.Hour
	DefaultThreshold         = 1.0
	DefaultProgressStepPct   = 10
	DefaultBroadcastInterval = time.Second
)

// Config is the top-level configuration for spikewatchd.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	// HTTPPort is the port the REST API, WebSocket hub, and metrics
	// endpoint listen on.
	HTTPPort int `yaml:"http_port"`

	// Host configures the connection to the animation host's bridge.
	Host HostConfig `yaml:"host"`

	// Auth configures authentication for incoming API requests.
	Auth APIAuthConfig `yaml:"auth"`

	// Scan holds scan execution defaults.
	Scan ScanConfig `yaml:"scan"`

	// Results controls scan record retention.
	Results ResultsConfig `yaml:"results"`

	// Watch seeds the attribute/threshold watch list at startup and on
	// config reload. API additions are kept across reloads.
	Watch []WatchEntry `yaml:"watch"`
}

// HostConfig describes the bridge endpoint inside the animation host.
type HostConfig struct {
	// Endpoint is the base URL of the bridge (e.g. "http://127.0.0.1:4795").
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds each bridge request.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how spikewatchd authenticates to the bridge.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for the bridge connection.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields — used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields — used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields — used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields — used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the bridge connection.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// APIAuthConfig configures authentication for the service's own HTTP surface.
type APIAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name carrying the key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the expected API key resolved from the environment.
func (a APIAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a APIAuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// ScanConfig holds scan execution defaults.
type ScanConfig struct {
	// DefaultThreshold is applied to watch entries that omit a threshold.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// ProgressStepPct throttles status pushes: a push happens when progress
	// advances by at least this many percent, and always on the final frame.
	ProgressStepPct int `yaml:"progress_step_pct"`

	// BroadcastInterval is how often the WebSocket hub pushes the current
	// scan status to connected clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// ResultsConfig controls scan record retention.
type ResultsConfig struct {
	// TTL is how long finished scan records are kept before eviction.
	TTL time.Duration `yaml:"ttl"`
}

// WatchEntry seeds one attribute into the watch list.
type WatchEntry struct {
	// Ref is the "node.attribute" reference.
	Ref string `yaml:"ref"`

	// Threshold is the tolerated frame-to-frame delta. When omitted,
	// scan.default_threshold applies.
	Threshold *float64 `yaml:"threshold"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		HTTPPort: DefaultHTTPPort,
		Host: HostConfig{
			Timeout: DefaultHostTimeout,
		},
		Scan: ScanConfig{
			DefaultThreshold:  DefaultThreshold,
			ProgressStepPct:   DefaultProgressStepPct,
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Results: ResultsConfig{
			TTL: DefaultResultTTL,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.HTTPPort <= 0 {
		return fmt.Errorf("http_port must be positive")
	}
	if cfg.Host.Endpoint == "" {
		return fmt.Errorf("host.endpoint is required")
	}
	if cfg.Host.Timeout <= 0 {
		return fmt.Errorf("host.timeout must be positive")
	}
	switch cfg.Host.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("host.auth: unknown mode %q", cfg.Host.Auth.Mode)
	}
	switch cfg.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("auth: unknown mode %q", cfg.Auth.Mode)
	}
	if cfg.Scan.DefaultThreshold < 0 {
		return fmt.Errorf("scan.default_threshold must not be negative")
	}
	if cfg.Scan.ProgressStepPct < 1 || cfg.Scan.ProgressStepPct > 100 {
		return fmt.Errorf("scan.progress_step_pct must be between 1 and 100")
	}
	if cfg.Scan.BroadcastInterval <= 0 {
		return fmt.Errorf("scan.broadcast_interval must be positive")
	}
	if cfg.Results.TTL <= 0 {
		return fmt.Errorf("results.ttl must be positive")
	}
	for i, w := range cfg.Watch {
		if w.Ref == "" {
			return fmt.Errorf("watch[%d]: ref is required", i)
		}
		if !scene.ValidRef(w.Ref) {
			return fmt.Errorf("watch[%d]: %q is not a node.attribute reference", i, w.Ref)
		}
		if w.Threshold != nil && *w.Threshold < 0 {
			return fmt.Errorf("watch[%d] %q: threshold must not be negative", i, w.Ref)
		}
	}
	return nil
}
