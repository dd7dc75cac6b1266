package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Attempt engine
	DefaultTimeLimitMinutes int
	AbandonGraceMinutes     int
	SweepIntervalMinutes    int

	// Achievement service
	AchievementServiceURL string
	WorkerCount           int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		DefaultTimeLimitMinutes: getEnvAsIntOrDefault("DEFAULT_TIME_LIMIT_MINUTES", 60),
		AbandonGraceMinutes:     getEnvAsIntOrDefault("ABANDON_GRACE_MINUTES", 30),
		SweepIntervalMinutes:    getEnvAsIntOrDefault("SWEEP_INTERVAL_MINUTES", 10),

		AchievementServiceURL: getEnvOrDefault("ACHIEVEMENT_SERVICE_URL", ""),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 5),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
