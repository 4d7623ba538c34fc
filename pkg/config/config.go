package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Election   ElectionConfig   `mapstructure:"election"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per minute per client, 0 disables
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type         string        `mapstructure:"type"` // postgres, sqlite
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Path         string        `mapstructure:"path"`    // For SQLite
	SSLMode      string        `mapstructure:"sslmode"` // For PostgreSQL
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// EncryptionConfig selects the ballot encryption scheme and the key that seals private keys at rest
type EncryptionConfig struct {
	Scheme    string `mapstructure:"scheme"` // naclbox, ecies
	MasterKey string `mapstructure:"master_key"`
	VaultSalt string `mapstructure:"vault_salt"`
}

// RedisConfig holds Redis configuration for the key lock and the result cache
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
	ResultTTL   time.Duration `mapstructure:"result_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// ElectionConfig tunes the engine
type ElectionConfig struct {
	OnsiteGracePeriod time.Duration `mapstructure:"onsite_grace_period"`
	TallyWorkers      int           `mapstructure:"tally_workers"`
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error; defaults and ELECTION_* variables apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ELECTION")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				fmt.Printf("Warning: Config file not found at %s, using defaults\n", configPath)
			} else {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit", 100)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./election.db")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "election")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_lifetime", "5m")

	v.SetDefault("encryption.scheme", "naclbox")
	v.SetDefault("encryption.master_key", "")
	v.SetDefault("encryption.vault_salt", "election-engine-vault")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.lock_ttl", "2m")
	v.SetDefault("redis.result_ttl", "10m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("election.onsite_grace_period", "168h")
	v.SetDefault("election.tally_workers", 10)
}

// overrideWithEnvVars maps the conventional unprefixed variables onto config keys
func overrideWithEnvVars(v *viper.Viper) {
	envMappings := map[string]string{
		"DB_PASSWORD":      "database.password",
		"DB_USER":          "database.user",
		"VAULT_MASTER_KEY": "encryption.master_key",
		"BALLOT_SCHEME":    "encryption.scheme",
		"REDIS_URL":        "redis.addr",
		"REDIS_PASSWORD":   "redis.password",
		"LOG_LEVEL":        "logging.level",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Encryption.Scheme) {
	case "naclbox", "ecies":
	default:
		return fmt.Errorf("unsupported encryption scheme: %s", config.Encryption.Scheme)
	}

	if config.Encryption.MasterKey == "" {
		return fmt.Errorf("encryption master key is required")
	}

	if len(config.Encryption.MasterKey) < 32 {
		return fmt.Errorf("encryption master key must be at least 32 characters")
	}

	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch config.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode: %s", config.Server.Mode)
	}

	switch config.Database.Type {
	case "postgres":
		if config.Database.Host == "" || config.Database.User == "" {
			return fmt.Errorf("postgres requires host and user")
		}
	case "sqlite":
		if config.Database.Path == "" {
			return fmt.Errorf("sqlite requires path")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis enabled but no address configured")
	}

	if config.Election.TallyWorkers <= 0 {
		config.Election.TallyWorkers = 10
	}

	return nil
}

// PostgresDSN returns the lib/pq connection string
func (d *DatabaseConfig) PostgresDSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, sslMode)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// SanitizeForLogging returns a copy of the config with sensitive data redacted
func (c *Config) SanitizeForLogging() *Config {
	sanitized := *c

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = "[REDACTED]"
	}

	if sanitized.Encryption.MasterKey != "" {
		sanitized.Encryption.MasterKey = "[REDACTED]"
	}

	if sanitized.Redis.Password != "" {
		sanitized.Redis.Password = "[REDACTED]"
	}

	return &sanitized
}
