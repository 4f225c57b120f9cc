package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Analyzer AnalyzerConfig
	Pipeline PipelineConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for minio/localstack
}

type AnalyzerConfig struct {
	BaseURL     string
	APIKey      string
	MaxAttempts int
}

type PipelineConfig struct {
	MaxPages       int
	MaxCrawlDepth  int
	PageWorkers    int
	AssetWorkers   int
	TargetScore    float64
	WorkerPoolSize int
	SweepSchedule  string
	SweepMinAge    time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "siteporter"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Bucket:   getEnv("ASSET_BUCKET", "siteporter-assets"),
			Region:   getEnv("AWS_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Analyzer: AnalyzerConfig{
			BaseURL:     getEnv("ANALYZER_URL", "http://localhost:9100"),
			APIKey:      getEnv("ANALYZER_API_KEY", ""),
			MaxAttempts: getEnvAsInt("ANALYZER_MAX_ATTEMPTS", 3),
		},
		Pipeline: PipelineConfig{
			MaxPages:       getEnvAsInt("MAX_PAGES", 50),
			MaxCrawlDepth:  getEnvAsInt("MAX_CRAWL_DEPTH", 3),
			PageWorkers:    getEnvAsInt("PAGE_WORKERS", 3),
			AssetWorkers:   getEnvAsInt("ASSET_WORKERS", 8),
			TargetScore:    getEnvAsFloat("TARGET_SCORE", 0.90),
			WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 2),
			SweepSchedule:  getEnv("SWEEP_SCHEDULE", "*/10 * * * *"),
			SweepMinAge:    time.Duration(getEnvAsInt("SWEEP_MIN_AGE_MINUTES", 10)) * time.Minute,
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Pipeline.TargetScore <= 0 || c.Pipeline.TargetScore > 1 {
		return fmt.Errorf("TARGET_SCORE must be in (0, 1]")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}
