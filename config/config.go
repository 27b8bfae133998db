package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server. Values come from the
// environment (optionally seeded from a .env file).
type Config struct {
	Port          string
	GinMode       string
	RedisURI      string
	RedisPassword string
	RedisDB       int
	// StoreBackend is "redis" or "memory".
	StoreBackend string

	JWTSecret string
	TokenTTL  time.Duration

	PlacesKey       string
	SearchRadiusM   uint
	TopK            int
	MaxVariance     float64
	ExternalTimeout time.Duration
	TxMaxRetries    int
	GenerationLease time.Duration
}

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func GetEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func GetEnvFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func GetEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// Load reads the configuration from the environment and applies defaults.
// JWT_SECRET is mandatory; PLACES_KEY may be empty only when the caller wires
// its own candidate source.
func Load() (Config, error) {
	cfg := Config{
		Port:          GetEnv("PORT", "8080"),
		GinMode:       GetEnv("GIN_MODE", "release"),
		RedisURI:      GetEnv("REDIS_URI", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		StoreBackend:  GetEnv("STORE_BACKEND", "redis"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PlacesKey:     os.Getenv("PLACES_KEY"),
	}

	var err error
	if cfg.RedisDB, err = GetEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = GetEnvDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	radius, err := GetEnvInt("SEARCH_RADIUS_M", 5000)
	if err != nil {
		return Config{}, err
	}
	if radius <= 0 {
		return Config{}, fmt.Errorf("SEARCH_RADIUS_M must be positive")
	}
	cfg.SearchRadiusM = uint(radius)
	if cfg.TopK, err = GetEnvInt("TOP_K", 3); err != nil {
		return Config{}, err
	}
	if cfg.TopK <= 0 {
		return Config{}, fmt.Errorf("TOP_K must be positive")
	}
	if cfg.MaxVariance, err = GetEnvFloat("MAX_VARIANCE", 3600*3600); err != nil {
		return Config{}, err
	}
	if cfg.MaxVariance <= 0 {
		return Config{}, fmt.Errorf("MAX_VARIANCE must be positive")
	}
	if cfg.ExternalTimeout, err = GetEnvDuration("EXTERNAL_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TxMaxRetries, err = GetEnvInt("TX_MAX_RETRIES", 16); err != nil {
		return Config{}, err
	}
	if cfg.GenerationLease, err = GetEnvDuration("GENERATION_LEASE", 2*time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.StoreBackend != "redis" && cfg.StoreBackend != "memory" {
		return Config{}, fmt.Errorf("STORE_BACKEND must be redis or memory, got %q", cfg.StoreBackend)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET required")
	}

	return cfg, nil
}
