package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the tutoring daemon
type Config struct {
	// Server
	Port  int
	Debug bool

	// Persistence
	DatabaseURL string // Postgres for server deployments; empty disables
	SQLitePath  string // local analytics store

	// RabbitMQ (outbound coaching events); empty disables
	RabbitMQURL string

	// Engine
	TickInterval   time.Duration // periodic decision cycle
	Epsilon        float64       // RL exploration rate
	LearningAlpha  float64       // Q-learning step size
	DiscountGamma  float64       // Q-learning discount
	MaxConcurrent  int           // dispatcher active-message cap
	StrategiesPath string        // optional YAML catalogue tuning file
	SkillsPath     string        // optional YAML skill catalogue, empty uses the built-in SAT set

	// API
	RequestsPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvInt("PORT", 8080),
		Debug:             getEnvBool("DEBUG", false),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SQLitePath:        getEnv("SQLITE_PATH", "prepcoach.db"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		TickInterval:      time.Duration(getEnvInt("TICK_INTERVAL_MS", 2000)) * time.Millisecond,
		Epsilon:           getEnvFloat("RL_EPSILON", 0.1),
		LearningAlpha:     getEnvFloat("RL_ALPHA", 0.1),
		DiscountGamma:     getEnvFloat("RL_GAMMA", 0.9),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT_MESSAGES", 2),
		StrategiesPath:    getEnv("STRATEGIES_PATH", ""),
		SkillsPath:        getEnv("SKILLS_PATH", ""),
		RequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 120),
	}

	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		return nil, fmt.Errorf("RL_EPSILON must be in [0,1], got %v", cfg.Epsilon)
	}
	if cfg.TickInterval < time.Second || cfg.TickInterval > 5*time.Second {
		return nil, fmt.Errorf("TICK_INTERVAL_MS must be between 1000 and 5000")
	}
	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_MESSAGES must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
