package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	HTTP    HTTPConfig    `toml:"http"`
	GRPC    GRPCConfig    `toml:"grpc"`
	Auth    AuthConfig    `toml:"auth"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Backend string      `toml:"backend"` // memory | sqlite | neo4j
	Path    string      `toml:"path"`    // SQLite database file path
	Neo4j   Neo4jConfig `toml:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// HTTPConfig contains the GraphQL/metrics HTTP listener settings.
type HTTPConfig struct {
	Address string `toml:"address"`
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `toml:"address"` // e.g. ":50051"
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret  string   `toml:"jwt_secret"`
	TokenTTL   Duration `toml:"token_ttl"`
	BcryptCost int      `toml:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text | json
	File   string `toml:"file"`   // optional, rotated
}

// Duration decodes Go duration strings ("24h") from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendMemory,
			Path:    "todo.db",
			Neo4j: Neo4jConfig{
				URI:  "bolt://localhost:7687",
				User: "neo4j",
			},
		},
		HTTP: HTTPConfig{Address: ":4000"},
		GRPC: GRPCConfig{Address: ":50051"},
		Auth: AuthConfig{
			TokenTTL:   Duration{24 * time.Hour},
			BcryptCost: 10,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by TODO_CONFIG and environment variables, in increasing precedence.
// JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to a development JWT secret.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := defaults()
	if path := getEnv("TODO_CONFIG", ""); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Path = getEnv("DB_PATH", cfg.Storage.Path)
	cfg.Storage.Neo4j.URI = getEnv("NEO4J_URI", cfg.Storage.Neo4j.URI)
	cfg.Storage.Neo4j.User = getEnv("NEO4J_USER", cfg.Storage.Neo4j.User)
	cfg.Storage.Neo4j.Password = getEnv("NEO4J_PASSWORD", cfg.Storage.Neo4j.Password)
	cfg.Storage.Neo4j.Database = getEnv("NEO4J_DATABASE", cfg.Storage.Neo4j.Database)
	cfg.HTTP.Address = getEnv("HTTP_ADDRESS", cfg.HTTP.Address)
	cfg.GRPC.Address = getEnv("GRPC_ADDRESS", cfg.GRPC.Address)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	ttl, err := getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL.Duration)
	if err != nil {
		return err
	}
	cfg.Auth.TokenTTL.Duration = ttl

	cost, err := getEnvInt("BCRYPT_COST", cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	cfg.Auth.BcryptCost = cost
	return nil
}

func (c *Config) validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendNeo4j:
	default:
		return fmt.Errorf("unknown storage backend %q (want memory, sqlite or neo4j)", c.Storage.Backend)
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL.Duration)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Storage: %s, HTTP: %s, gRPC: %s, TokenTTL: %s, Auth: *** (masked) ***}",
		c.Storage.Backend, c.HTTP.Address, c.GRPC.Address, c.Auth.TokenTTL.Duration)
}
