package bootstrap

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds one upstream OAuth provider's credentials and endpoints.
// Endpoints may stay empty for providers with built-in defaults (github).
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BcryptCost int

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	StateTTL        time.Duration

	PageSize int

	Providers map[string]ProviderConfig

	LoginRateLimitIPThreshold int
	LoginRateLimitWindow      time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// ProviderNames returns the configured provider allow-list, sorted for
// deterministic logging and validation messages.
func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Messaging struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"messaging"`
	Providers map[string]struct {
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		RedirectURI  string   `yaml:"redirect_uri"`
		AuthorizeURL string   `yaml:"authorize_url"`
		TokenURL     string   `yaml:"token_url"`
		UserInfoURL  string   `yaml:"userinfo_url"`
		Scopes       []string `yaml:"scopes"`
	} `yaml:"providers"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "pp-api",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		KafkaTopic:                "pp-api.notifications",
		JWTKeyID:                  "pp-api-key-1",
		AllowEphemeralJWT:         true,
		BcryptCost:                12,
		AccessTokenTTL:            24 * time.Hour,
		RefreshTokenTTL:           30 * 24 * time.Hour,
		StateTTL:                  10 * time.Minute,
		PageSize:                  15,
		Providers:                 map[string]ProviderConfig{},
		LoginRateLimitIPThreshold: 30,
		LoginRateLimitWindow:      time.Minute,
		MaxDBConns:                20,
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
		OutboxClaimTTL:            30 * time.Second,
		OutboxMaxRetries:          5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Messaging.PageSize > 0 {
			cfg.PageSize = f.Messaging.PageSize
		}
		for name, provider := range f.Providers {
			cfg.Providers[strings.ToLower(strings.TrimSpace(name))] = ProviderConfig{
				ClientID:     provider.ClientID,
				ClientSecret: provider.ClientSecret,
				RedirectURI:  provider.RedirectURI,
				AuthorizeURL: provider.AuthorizeURL,
				TokenURL:     provider.TokenURL,
				UserInfoURL:  provider.UserInfoURL,
				Scopes:       provider.Scopes,
			}
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)

	// Github credentials can come from env alone so a bare container boots.
	if githubID := os.Getenv("GITHUB_CLIENT_ID"); githubID != "" {
		provider := cfg.Providers["github"]
		provider.ClientID = githubID
		provider.ClientSecret = envOrDefault("GITHUB_CLIENT_SECRET", provider.ClientSecret)
		provider.RedirectURI = envOrDefault("GITHUB_REDIRECT_URI", provider.RedirectURI)
		cfg.Providers["github"] = provider
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.PageSize = envInt("PAGE_SIZE", cfg.PageSize)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.LoginRateLimitIPThreshold = envInt("LOGIN_RATE_LIMIT_IP_THRESHOLD", cfg.LoginRateLimitIPThreshold)

	cfg.AccessTokenTTL = time.Duration(envInt("TOKEN_EXPIRY_HOURS", int(cfg.AccessTokenTTL.Hours()))) * time.Hour
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_EXPIRY_DAYS", int(cfg.RefreshTokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.StateTTL = time.Duration(envInt("LOGIN_STATE_TTL_SECONDS", int(cfg.StateTTL.Seconds()))) * time.Second
	cfg.LoginRateLimitWindow = time.Duration(envInt("LOGIN_RATE_LIMIT_WINDOW_SECONDS", int(cfg.LoginRateLimitWindow.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if (cfg.JWTPrivateKeyPEM == "" || cfg.JWTPublicKeyPEM == "") && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if len(cfg.Providers) == 0 {
		return Config{}, fmt.Errorf("no login providers configured")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
