package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Server
	ServerPort  string `yaml:"server_port"`
	FrontendDir string `yaml:"frontend_dir"`

	// Data files
	DataDir     string `yaml:"data_dir"`
	OrdersFile  string `yaml:"orders_file"`
	DevicesFile string `yaml:"devices_file"`
	MetricsFile string `yaml:"metrics_file"`
	ExcelFile   string `yaml:"excel_file"` // Source sheet used to rebuild a broken orders file

	// Database (file store is used when empty)
	DatabaseURL string `yaml:"database_url"`

	// Logging
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`

	// Background re-optimization of stored orders (0 disables)
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Upload archive
	ArchiveDir      string `yaml:"archive_dir"`
	ArchiveS3Bucket string `yaml:"archive_s3_bucket"`
	AWSRegion       string `yaml:"aws_region"`

	// Spreadsheet reader
	UniofficeLicenseKey string `yaml:"unioffice_license_key"`
}

// Load loads configuration from environment variables, then applies the YAML
// file named by CONFIG_FILE if it is set
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", ".")

	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "5000"),
		FrontendDir:         getEnv("FRONTEND_DIR", filepath.Join(dataDir, "frontend")),
		DataDir:             dataDir,
		OrdersFile:          getEnv("ORDERS_FILE", filepath.Join(dataDir, "parsed_orders.json")),
		DevicesFile:         getEnv("DEVICES_FILE", filepath.Join(dataDir, "device_list.json")),
		MetricsFile:         getEnv("METRICS_FILE", filepath.Join(dataDir, "metrics.json")),
		ExcelFile:           getEnv("EXCEL_FILE", filepath.Join(dataDir, "内文印刷明细总表.xlsx")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		ArchiveDir:          getEnv("ARCHIVE_DIR", filepath.Join(dataDir, "uploads")),
		ArchiveS3Bucket:     getEnv("ARCHIVE_S3_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		UniofficeLicenseKey: getEnv("UNIOFFICE_LICENSE_KEY", ""),
	}

	interval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays the non-empty values of a YAML config file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overlay(&c.ServerPort, file.ServerPort)
	overlay(&c.FrontendDir, file.FrontendDir)
	overlay(&c.DataDir, file.DataDir)
	overlay(&c.OrdersFile, file.OrdersFile)
	overlay(&c.DevicesFile, file.DevicesFile)
	overlay(&c.MetricsFile, file.MetricsFile)
	overlay(&c.ExcelFile, file.ExcelFile)
	overlay(&c.DatabaseURL, file.DatabaseURL)
	overlay(&c.LogLevel, file.LogLevel)
	overlay(&c.Environment, file.Environment)
	overlay(&c.ArchiveDir, file.ArchiveDir)
	overlay(&c.ArchiveS3Bucket, file.ArchiveS3Bucket)
	overlay(&c.AWSRegion, file.AWSRegion)
	overlay(&c.UniofficeLicenseKey, file.UniofficeLicenseKey)
	if file.RefreshInterval > 0 {
		c.RefreshInterval = file.RefreshInterval
	}

	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
