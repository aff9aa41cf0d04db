package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from the environment. A .env file
// is honored in development; real deployments set variables directly.
type Config struct {
	Addr        string
	Env         string // "development" | "production"
	DatabaseDSN string // empty -> in-memory store
	JWTSecret   string
	AdminToken  string
	SeatTTL     time.Duration
}

func Load() Config {
	_ = godotenv.Load() // missing .env is fine

	return Config{
		Addr:        getEnv("ADDR", ":8080"),
		Env:         getEnv("APP_ENV", "development"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		AdminToken:  getEnv("ADMIN_TOKEN", "dev-admin-token"),
		SeatTTL:     getDuration("SEAT_TOKEN_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
