package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config maps the whole application configuration. Values come from
// configs/config.yaml with environment-variable overrides (dots replaced
// by underscores, e.g. SERVER_PORT).
type Config struct {
	Server struct {
		Port         int           `mapstructure:"port"`
		BaseURL      string        `mapstructure:"base_url"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Database struct {
		Driver     string `mapstructure:"driver"` // "postgres" or "sqlite"
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		Name       string `mapstructure:"name"`
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"database"`

	Redis struct {
		Enabled  bool          `mapstructure:"enabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
		// Capacity of the in-process cache used when Redis is disabled.
		LocalCapacity int `mapstructure:"local_capacity"`
	} `mapstructure:"redis"`

	Links struct {
		CodeLength     int `mapstructure:"code_length"`
		DefaultTTLDays int `mapstructure:"default_ttl_days"`
	} `mapstructure:"links"`

	Reaper struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"reaper"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Load reads configuration from file, environment and defaults.
func Load() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "127.0.0.1")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "shortlink")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "shortlink")
	viper.SetDefault("database.sqlite_path", "shortlink.db")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", time.Hour)
	viper.SetDefault("redis.local_capacity", 1024)
	viper.SetDefault("links.code_length", 8)
	viper.SetDefault("links.default_ttl_days", 30)
	viper.SetDefault("reaper.interval", 30*time.Minute)
	viper.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the gorm postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.Database.Host, c.Database.User, c.Database.Password, c.Database.Name, c.Database.Port)
}

// MigrateURL builds the URL form of the DSN used by golang-migrate.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}
