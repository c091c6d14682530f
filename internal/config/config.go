// Package config loads runtime settings from the environment (optionally seeded
// from a .env file) and holds the domain constants shared across packages.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration for the server and the admin CLI.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	KafkaBrokers []string
	KafkaTopic   string

	BcryptCost int

	// AllowedOrigins lists the Origin values accepted on websocket upgrades.
	// Empty accepts any origin.
	AllowedOrigins []string
}

const defaultJWTSecret = "change-me-in-production"

// Load reads the .env file if present and builds a Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: no .env file loaded, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", "user"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBName:         getEnv("DB_NAME", "cryptondb"),
		DBPort:         getEnv("DB_PORT", "5432"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "crypton.rooms"),
		AllowedOrigins: splitList(os.Getenv("WS_ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", DefaultBcryptCost); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("WARNING: using default JWT secret. This is insecure for production.")
	}

	return cfg, nil
}

// PostgresDSN formats the gorm/pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
