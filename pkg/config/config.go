package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	APIToken          string
	DatabaseHost      string
	DatabasePort      string
	DatabaseUser      string
	DatabasePass      string
	DatabaseName      string
	StorageDir        string
	SATGatewayURL     string
	RunnerInterval    time.Duration
	PlannerInterval   time.Duration
	RunnerBatchSize   int
	MinSyncInterval   time.Duration
	SATConnectTimeout time.Duration
	SATRequestTimeout time.Duration
	SATRetries        int
	RunContinuous     bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	runnerInterval := 60 * time.Second
	if v := os.Getenv("RUNNER_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			runnerInterval = parsed
		}
	}

	plannerInterval := 6 * time.Hour
	if v := os.Getenv("PLANNER_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			plannerInterval = parsed
		}
	}

	minSyncInterval := 1 * time.Hour
	if v := os.Getenv("MIN_SYNC_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			minSyncInterval = parsed
		}
	}

	batchSize := 5
	if v := os.Getenv("RUNNER_BATCH_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			batchSize = parsed
		}
	}

	retries := 2
	if v := os.Getenv("SAT_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			retries = parsed
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		APIToken:          getEnv("API_TOKEN", ""),
		DatabaseHost:      getEnv("DB_HOST", "localhost"),
		DatabasePort:      getEnv("DB_PORT", "5432"),
		DatabaseUser:      getEnv("DB_USER", "postgres"),
		DatabasePass:      getEnv("DB_PASSWORD", "postgres"),
		DatabaseName:      getEnv("DB_NAME", "cfdivault"),
		StorageDir:        getEnv("STORAGE_DIR", "./storage"),
		SATGatewayURL:     getEnv("SAT_GATEWAY_URL", "http://localhost:9090"),
		RunnerInterval:    runnerInterval,
		PlannerInterval:   plannerInterval,
		RunnerBatchSize:   batchSize,
		MinSyncInterval:   minSyncInterval,
		SATConnectTimeout: 20 * time.Second,
		SATRequestTimeout: 60 * time.Second,
		SATRetries:        retries,
		RunContinuous:     getEnv("RUN_CONTINUOUS", "true") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
