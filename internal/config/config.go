package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultMemoryLimitMB = 32
	DefaultMechanism     = MechanismCompile
	DefaultSourceType    = "file"
	DefaultTimeout       = 10 * time.Second
	DefaultConditionMode = "always"
	DefaultChances       = 100
	DefaultHits          = 200000
)

// Mechanisms the generated script can use to load each listed file.
const (
	MechanismCompile = "compile"
	MechanismRequire = "require"
)

// Config is the top-level configuration.
// Fields map 1:1 to preloader.example.yaml.
type Config struct {
	Preloader PreloaderConfig `yaml:"preloader"`
	Status    Source          `yaml:"status"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// PreloaderConfig holds the list and script settings.
type PreloaderConfig struct {
	// Output is the path the preload script is written to.
	Output string `yaml:"output"`

	// Overwrite allows replacing an existing script at Output.
	Overwrite bool `yaml:"overwrite"`

	// Mechanism is how the script loads each file: compile | require.
	Mechanism string `yaml:"mechanism"`

	// Autoloader is the Composer autoload file. Required when Mechanism is require.
	Autoloader string `yaml:"autoloader"`

	// MemoryLimitMB caps the cumulative cache memory of ranked files. 0 disables it.
	MemoryLimitMB float64 `yaml:"memory_limit_mb"`

	// IgnoreNotFound makes the script skip listed files that no longer exist
	// instead of failing.
	IgnoreNotFound bool `yaml:"ignore_not_found"`

	// SelfExclude removes the tool's own files from the list: the output
	// script and InternalPaths. On by default.
	SelfExclude bool `yaml:"self_exclude"`

	// InternalPaths are extra path specs for the tool's own files (see Exclude).
	InternalPaths []string `yaml:"internal_paths"`

	// Exclude and Append are path specs: literal files, directories or globs.
	Exclude []string `yaml:"exclude"`
	Append  []string `yaml:"append"`

	// BaseDir resolves relative path specs. Defaults to the config file's directory.
	BaseDir string `yaml:"base_dir"`

	// Condition gates whether a generate run writes anything.
	Condition ConditionConfig `yaml:"condition"`
}

// MemoryLimitBytes converts MemoryLimitMB to bytes.
func (p PreloaderConfig) MemoryLimitBytes() int64 {
	return int64(p.MemoryLimitMB * 1024 * 1024)
}

// ConditionConfig selects the run-gating policy.
type ConditionConfig struct {
	// Mode is one of: always | never | one_in | hits.
	Mode string `yaml:"mode"`

	// Chances is N for one_in: the run happens roughly once every N invocations.
	Chances int `yaml:"chances"`

	// Hits is the threshold for hits: the run happens while the cache reports
	// fewer hits than this.
	Hits int64 `yaml:"hits"`
}

// Source describes where the opcache status is read from.
type Source struct {
	// Type is one of: file | http | prometheus.
	Type string `yaml:"type"`

	// Path is the JSON status dump for type file.
	Path string `yaml:"path"`

	// Endpoint is the URL for types http and prometheus.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds one status request.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how requests authenticate to Endpoint.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for a status endpoint.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token variable name when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
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

// TLSConfig holds TLS dial options for the status endpoint.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// NotifyConfig lists webhooks called after a script is written.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults. Relative status and
// certificate paths are resolved against BaseDir.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if cfg.Preloader.BaseDir == "" {
		if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
			cfg.Preloader.BaseDir = abs
		}
	}
	cfg.resolvePaths()
	return cfg, nil
}

// resolvePaths anchors the relative file paths of the status source to
// BaseDir so they do not depend on the working directory.
func (c *Config) resolvePaths() {
	base := c.Preloader.BaseDir
	src := &c.Status
	src.Path = resolvePath(base, src.Path)
	src.Auth.CertFile = resolvePath(base, src.Auth.CertFile)
	src.Auth.KeyFile = resolvePath(base, src.Auth.KeyFile)
	src.Auth.CAFile = resolvePath(base, src.Auth.CAFile)
}

func resolvePath(base, p string) string {
	if p == "" || base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Parse decodes and validates YAML config data.
func Parse(data []byte) (*Config, error) {
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
		Preloader: PreloaderConfig{
			Mechanism:     DefaultMechanism,
			MemoryLimitMB: DefaultMemoryLimitMB,
			SelfExclude:   true,
			Condition: ConditionConfig{
				Mode:    DefaultConditionMode,
				Chances: DefaultChances,
				Hits:    DefaultHits,
			},
		},
		Status: Source{
			Type:    DefaultSourceType,
			Timeout: DefaultTimeout,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	p := cfg.Preloader
	if p.Output == "" {
		return fmt.Errorf("preloader.output is required")
	}
	if p.MemoryLimitMB < 0 {
		return fmt.Errorf("preloader.memory_limit_mb must not be negative")
	}
	switch p.Mechanism {
	case MechanismCompile:
	case MechanismRequire:
		if p.Autoloader == "" {
			return fmt.Errorf("preloader.autoloader is required with mechanism %q", MechanismRequire)
		}
	default:
		return fmt.Errorf("preloader.mechanism: unknown value %q", p.Mechanism)
	}
	switch p.Condition.Mode {
	case "always", "never":
	case "one_in":
		if p.Condition.Chances <= 0 {
			return fmt.Errorf("preloader.condition.chances must be positive")
		}
	case "hits":
		if p.Condition.Hits <= 0 {
			return fmt.Errorf("preloader.condition.hits must be positive")
		}
	default:
		return fmt.Errorf("preloader.condition.mode: unknown value %q", p.Condition.Mode)
	}

	src := cfg.Status
	switch src.Type {
	case "file":
		if src.Path == "" {
			return fmt.Errorf("status.path is required for type file")
		}
	case "http", "prometheus":
		if src.Endpoint == "" {
			return fmt.Errorf("status.endpoint is required for type %q", src.Type)
		}
	default:
		return fmt.Errorf("status.type: unknown value %q", src.Type)
	}
	if src.Timeout <= 0 {
		return fmt.Errorf("status.timeout must be positive")
	}
	switch src.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("status.auth: unknown mode %q", src.Auth.Mode)
	}

	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	return nil
}
