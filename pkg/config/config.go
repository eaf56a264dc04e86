package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Mode values for the Mode field. The mode is resolved once at process
// start and threaded through the config struct; nothing re-reads the
// environment per request.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Config represents the application configuration
type Config struct {
	Mode      string          `yaml:"mode" envconfig:"MODE"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Admin     AdminConfig     `yaml:"admin" envconfig:"ADMIN"`
	Identity  IdentityConfig  `yaml:"identity" envconfig:"IDENTITY"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Blog      BlogConfig      `yaml:"blog" envconfig:"BLOG"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Cleanup   CleanupConfig   `yaml:"cleanup" envconfig:"CLEANUP"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
	// SiteURL is the public base URL of the site. It is the fallback for
	// deriving the WebAuthn relying-party id/origin when no forwarded-host
	// header is present on the request.
	SiteURL string `yaml:"site_url" envconfig:"SITE_URL"`
	// RPName is the relying-party display name shown in passkey prompts
	RPName string `yaml:"rp_name" envconfig:"RP_NAME"`
}

// AdminConfig contains the admin allowlist and step-up session settings
type AdminConfig struct {
	// Email is the single allowlisted administrator email
	Email string `yaml:"email" envconfig:"EMAIL"`
	// SessionTTLSeconds is the lifetime of an elevated session
	SessionTTLSeconds int `yaml:"session_ttl_seconds" envconfig:"SESSION_TTL_SECONDS"`
	// ChallengeTTLSeconds is the lifetime of a pending ceremony challenge
	ChallengeTTLSeconds int `yaml:"challenge_ttl_seconds" envconfig:"CHALLENGE_TTL_SECONDS"`
}

// IdentityConfig contains identity-provider settings
type IdentityConfig struct {
	// BaseURL is the identity provider base URL; its user-info endpoint
	// resolves a bearer token to an email
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`
	// JWTSecret, when set, switches identity resolution to local HS256
	// verification of the bearer token instead of the user-info call
	JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	// Timeout is the HTTP timeout for user-info requests (seconds)
	Timeout int `yaml:"timeout" envconfig:"TIMEOUT"`
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, rest, mongodb
	REST    RESTConfig    `yaml:"rest" envconfig:"REST"`
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// RESTConfig contains settings for the hosted REST datastore proxy
type RESTConfig struct {
	URL            string `yaml:"url" envconfig:"URL"`
	ServiceRoleKey string `yaml:"service_role_key" envconfig:"SERVICE_ROLE_KEY"`
	Timeout        int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string `yaml:"uri" envconfig:"URI"`
	Database string `yaml:"database" envconfig:"DATABASE"`
	Timeout  int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// BlogConfig contains blog content settings
type BlogConfig struct {
	// LocalPostsDir is where markdown posts land when the remote write
	// fails outside production
	LocalPostsDir string `yaml:"local_posts_dir" envconfig:"LOCAL_POSTS_DIR"`
}

// RateLimitConfig limits ceremony attempts per caller
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxAttempts    int  `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	WindowSeconds  int  `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	LockoutSeconds int  `yaml:"lockout_seconds" envconfig:"LOCKOUT_SECONDS"`
}

// SetDefaults fills zero values with defaults
func (c *RateLimitConfig) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.WindowSeconds == 0 {
		c.WindowSeconds = 60
	}
	if c.LockoutSeconds == 0 {
		c.LockoutSeconds = 300
	}
}

// CleanupConfig controls the expired-challenge sweep
type CleanupConfig struct {
	Enabled         bool `yaml:"enabled" envconfig:"ENABLED"`
	IntervalSeconds int  `yaml:"interval_seconds" envconfig:"INTERVAL_SECONDS"`
}

// SetDefaults fills zero values with defaults
func (c *CleanupConfig) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 300
	}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("PORTFOLIO", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			SiteURL: "http://localhost:5173",
			RPName:  "Portfolio Admin",
		},
		Admin: AdminConfig{
			SessionTTLSeconds:   3600,
			ChallengeTTLSeconds: 300,
		},
		Identity: IdentityConfig{
			Timeout: 10,
		},
		Storage: StorageConfig{
			Type: "memory",
			REST: RESTConfig{
				Timeout: 10,
			},
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "portfolio",
				Timeout:  10,
			},
		},
		Blog: BlogConfig{
			LocalPostsDir: "src/data/blog-posts",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
		},
		Cleanup: CleanupConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mode != ModeProduction && c.Mode != ModeDevelopment {
		return fmt.Errorf("invalid mode: %s (must be production or development)", c.Mode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Admin.Email == "" {
		return fmt.Errorf("admin email is required")
	}

	if c.Admin.SessionTTLSeconds < 1 {
		return fmt.Errorf("invalid session ttl: %d", c.Admin.SessionTTLSeconds)
	}

	switch c.Storage.Type {
	case "memory":
	case "rest":
		if c.Storage.REST.URL == "" {
			return fmt.Errorf("rest url is required when using rest storage")
		}
		if c.Storage.REST.ServiceRoleKey == "" {
			return fmt.Errorf("rest service role key is required when using rest storage")
		}
	case "mongodb":
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("mongodb uri is required when using mongodb storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, rest, or mongodb)", c.Storage.Type)
	}

	if c.Identity.JWTSecret == "" && c.Identity.BaseURL == "" {
		return fmt.Errorf("identity base_url or jwt_secret is required")
	}

	return nil
}

// IsProduction reports whether the process runs in production mode.
// The "dev" session sentinel and the local blog fallback are disabled
// in production.
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
