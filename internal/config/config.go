package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MigrationsPath string
	MaxConnections int
	MaxIdleConns   int
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	ExpiresIn time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	AuthPerMinute     float64
	AuthBurst         int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("HOMELAB")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.migrationspath", "migrations")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("jwt.issuer", "homelab-manager")
	viper.SetDefault("jwt.expiresin", "24h")
	viper.SetDefault("ratelimit.requestspersecond", 10)
	viper.SetDefault("ratelimit.burst", 20)
	viper.SetDefault("ratelimit.authperminute", 5)
	viper.SetDefault("ratelimit.authburst", 5)

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (DATABASE_URL)")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required (JWT_SECRET)")
	}

	return &cfg, nil
}
