package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Session  SessionConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port      int
	StaticDir string
}

// DatabaseConfig selects the backing store. The default driver is the
// single-file sqlite database at Path; the remaining fields only apply
// when Driver is "postgres".
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins string
}

type SessionConfig struct {
	TokenDigits int
}

// SeedConfig is the observer account created on first run against an
// empty database.
type SeedConfig struct {
	Username string
	Password string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenDigits, err := getIntEnv("SESSION_TOKEN_DIGITS", 8)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TOKEN_DIGITS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      serverPort,
			StaticDir: getEnv("STATIC_DIR", "./web"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "./data/traffic.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "traffic"),
			Password: getEnv("DB_PASSWORD", "traffic_dev_password"),
			Name:     getEnv("DB_NAME", "traffic"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Session: SessionConfig{
			TokenDigits: tokenDigits,
		},
		Seed: SeedConfig{
			Username: getEnv("SEED_USERNAME", "observer"),
			Password: getEnv("SEED_PASSWORD", "roadwatch"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
