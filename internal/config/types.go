package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Hub            HubRuntimeConfig      `yaml:"hub"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HubRuntimeConfig tunes the real-time hub.
type HubRuntimeConfig struct {
	// TypingTTLSeconds is the typing indicator expiry.
	TypingTTLSeconds int `yaml:"typing_ttl_seconds"`
	// OutboundQueueSize bounds each connection's outbound event queue.
	OutboundQueueSize int `yaml:"outbound_queue_size"`
	// MaxMessageLength bounds message content in characters.
	MaxMessageLength int `yaml:"max_message_length"`
}

// TypingTTL returns the typing indicator expiry as a duration.
func (h HubRuntimeConfig) TypingTTL() time.Duration {
	return time.Duration(h.TypingTTLSeconds) * time.Second
}

type rawAppConfig struct {
	Port               int                   `yaml:"port"`
	DSN                string                `yaml:"dsn"`
	DatabaseURL        string                `yaml:"database_url"`
	RedisURL           string                `yaml:"redis_url"`
	Database           DatabaseRuntimeConfig `yaml:"database"`
	Redis              RedisRuntimeConfig    `yaml:"redis"`
	Env                string                `yaml:"env"`
	NodeEnv            string                `yaml:"node_env"`
	AllowedOrigins     []string              `yaml:"allowed_origins"`
	CORSAllowedOrigins []string              `yaml:"cors_allowed_origins"`
	JWTSecret          string                `yaml:"jwt_secret"`
	JWTSecretLegacy    string                `yaml:"jwtsecret"`
	Hub                HubRuntimeConfig      `yaml:"hub"`
}
