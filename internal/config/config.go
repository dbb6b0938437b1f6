package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN                   string
	Environment             string
	MigrationsPath          string
	GenerationWindowDays    int
	GenerationWorkers       int
	GenerationIntervalHours int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    os.Getenv("ENV"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	var err error
	if cfg.GenerationWindowDays, err = intEnv("GENERATION_WINDOW_DAYS", 28); err != nil {
		return nil, err
	}
	if cfg.GenerationWorkers, err = intEnv("GENERATION_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.GenerationIntervalHours, err = intEnv("GENERATION_INTERVAL_HOURS", 24); err != nil {
		return nil, err
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 1 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}
