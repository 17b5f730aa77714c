package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort = 2333
	defaultEnv  = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "teamspace"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379

	defaultTypingTTLSeconds  = 3
	defaultOutboundQueueSize = 64
	defaultMaxMessageLength  = 4096
)

// Load reads the YAML config file and normalizes it. A missing file yields
// the defaults so a dev instance starts with zero configuration.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	raw := rawAppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return normalize(&raw), nil
}

func normalize(raw *rawAppConfig) *AppConfig {
	cfg := &AppConfig{
		Port:           raw.Port,
		Database:       raw.Database,
		Redis:          raw.Redis,
		Env:            firstNonEmpty(raw.Env, raw.NodeEnv, defaultEnv),
		AllowedOrigins: raw.AllowedOrigins,
		JWTSecret:      firstNonEmpty(raw.JWTSecret, raw.JWTSecretLegacy),
		Hub:            raw.Hub,
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = raw.CORSAllowedOrigins
	}

	cfg.DSN = firstNonEmpty(raw.DSN, raw.DatabaseURL, raw.Database.DSN)
	if cfg.DSN == "" {
		cfg.DSN = buildDSN(&cfg.Database)
	}

	cfg.RedisURL = firstNonEmpty(raw.RedisURL, raw.Redis.URL)
	if cfg.RedisURL == "" {
		cfg.RedisURL = buildRedisURL(&cfg.Redis)
	}

	if cfg.Hub.TypingTTLSeconds <= 0 {
		cfg.Hub.TypingTTLSeconds = defaultTypingTTLSeconds
	}
	if cfg.Hub.OutboundQueueSize <= 0 {
		cfg.Hub.OutboundQueueSize = defaultOutboundQueueSize
	}
	if cfg.Hub.MaxMessageLength <= 0 {
		cfg.Hub.MaxMessageLength = defaultMaxMessageLength
	}

	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
