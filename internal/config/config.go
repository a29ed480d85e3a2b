package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	UI        UIConfig        `koanf:"ui"`
	APIs      []APIConfig     `koanf:"apis"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Cache     CacheConfig     `koanf:"cache"`
	Redis     RedisConfig     `koanf:"redis"`
	OpenAPI   OpenAPIConfig   `koanf:"openapi"`
	Relay     RelayConfig     `koanf:"relay"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// TargetBaseURL is the backend that relayed calls and the merged
	// document's "Try it out" requests go to, e.g. https://b.example.com.
	TargetBaseURL string `koanf:"target_base_url"`
	// TrustForwardedHost takes the external host from X-Forwarded-Host when
	// rewriting specs. Enable only behind a proxy that sets the header.
	TrustForwardedHost bool `koanf:"trust_forwarded_host"`
}

type UIConfig struct {
	Title     string `koanf:"title"`
	AssetBase string `koanf:"asset_base"`
}

// APIConfig registers one upstream API whose spec the gateway rewrites.
type APIConfig struct {
	Name        string `koanf:"name" validate:"required,excludesall=/?#"`
	Group       string `koanf:"group"`
	SpecURL     string `koanf:"spec_url" validate:"required,http_url"`
	Description string `koanf:"description"`
}

type UpstreamConfig struct {
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	Timeout        time.Duration `koanf:"timeout"`
}

type CacheConfig struct {
	Backend    string        `koanf:"backend"`
	TTL        time.Duration `koanf:"ttl"`
	SQLitePath string        `koanf:"sqlite_path"`
}

type RedisConfig struct {
	URL    string `koanf:"url"`
	Prefix string `koanf:"prefix"`
}

type OpenAPIConfig struct {
	// ExternalURL is merged into the gateway's own document when set.
	ExternalURL  string `koanf:"external_url"`
	TagPrefix    string `koanf:"tag_prefix"`
	PathPrefix   string `koanf:"path_prefix"`
	SchemaPrefix string `koanf:"schema_prefix"`
	PreferLocal  bool   `koanf:"prefer_local"`
	Title        string `koanf:"title"`
	Version      string `koanf:"version"`
	Description  string `koanf:"description"`
}

type RelayConfig struct {
	Enabled               bool          `koanf:"enabled"`
	Prefix                string        `koanf:"prefix"`
	Excluded              []string      `koanf:"excluded"`
	ServiceToken          string        `koanf:"service_token"`
	AuthToken             string        `koanf:"auth_token"`
	DialTimeout           time.Duration `koanf:"dial_timeout"`
	ResponseHeaderTimeout time.Duration `koanf:"response_header_timeout"`
	MaxIdleConns          int           `koanf:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `koanf:"max_idle_conns_per_host"`
}

type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		UI: UIConfig{
			Title:     "API Docs",
			AssetBase: "https://cdn.jsdelivr.net/npm/swagger-ui-dist@5",
		},
		Upstream: UpstreamConfig{
			ConnectTimeout: 5 * time.Second,
			Timeout:        30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			TTL:        5 * time.Minute,
			SQLitePath: "/data/docsgate.db",
		},
		Redis: RedisConfig{
			Prefix: "docsgate:",
		},
		OpenAPI: OpenAPIConfig{
			TagPrefix:    "[B] ",
			SchemaPrefix: "B_",
			PreferLocal:  true,
		},
		Relay: RelayConfig{
			Prefix: "/api",
			Excluded: []string{
				"/v3/api-docs/**",
				"/swagger-ui/**",
				"/ext/openapi-b.json",
				"/api/v1/custom/**",
			},
			DialTimeout:           10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Tracing: TracingConfig{
			SamplingRate: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from YAML file + environment variables.
// Loading order: defaults → YAML file → env vars (later overrides earlier).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Defaults()

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	} else {
		_ = k.Load(file.Provider("docsgate.yaml"), yaml.Parser())
	}

	// DOCSGATE_SERVER__TARGET_BASE_URL → server.target_base_url
	// Double underscore (__) separates nesting levels.
	err := k.Load(env.Provider("DOCSGATE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "DOCSGATE_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var structValidator = validator.New()

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.APIs))
	for i, api := range cfg.APIs {
		if err := structValidator.Struct(api); err != nil {
			return fmt.Errorf("config: apis[%d]: %w", i, err)
		}
		key := strings.ToLower(api.Name)
		if seen[key] {
			return fmt.Errorf("config: apis[%d]: duplicate name %q", i, api.Name)
		}
		seen[key] = true
	}

	switch cfg.Cache.Backend {
	case CacheNone, CacheMemory, CacheSQLite:
	case CacheRedis:
		if cfg.Redis.URL == "" {
			return fmt.Errorf("config: redis.url is required for cache.backend=redis (set DOCSGATE_REDIS__URL)")
		}
	default:
		return fmt.Errorf("config: unknown cache.backend %q", cfg.Cache.Backend)
	}

	if cfg.RateLimit.Enabled {
		if cfg.Redis.URL == "" {
			return fmt.Errorf("config: redis.url is required when rate_limit.enabled (set DOCSGATE_REDIS__URL)")
		}
		if cfg.RateLimit.RequestsPerMinute < 1 {
			return fmt.Errorf("config: rate_limit.requests_per_minute must be positive, got %d", cfg.RateLimit.RequestsPerMinute)
		}
	}
	if cfg.Relay.Enabled {
		if cfg.Server.TargetBaseURL == "" {
			return fmt.Errorf("config: server.target_base_url is required when relay.enabled (set DOCSGATE_SERVER__TARGET_BASE_URL)")
		}
		if !strings.HasPrefix(cfg.Relay.Prefix, "/") || cfg.Relay.Prefix == "/" {
			return fmt.Errorf("config: relay.prefix must start with / and name a path segment")
		}
	}
	return nil
}

// RedisRequired reports whether any enabled component needs Redis.
func (c *Config) RedisRequired() bool {
	return c.Cache.Backend == CacheRedis || c.RateLimit.Enabled
}
