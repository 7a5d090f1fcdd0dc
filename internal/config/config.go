package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all service settings. Every field can be set from the
// environment; an optional TOML file supplies defaults underneath.
type Config struct {
	DBPath            string        // PROMPTHUB_DB_PATH (default "prompthub.db")
	HTTPAddr          string        // PROMPTHUB_HTTP_ADDR (default ":8080")
	NATSURL           string        // PROMPTHUB_NATS_URL (optional, empty = no bus mirror)
	HeartbeatInterval time.Duration // PROMPTHUB_HEARTBEAT_INTERVAL (default 30s)

	// Snapshot export settings
	ExportInterval   time.Duration // PROMPTHUB_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // PROMPTHUB_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // PROMPTHUB_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // PROMPTHUB_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // PROMPTHUB_EXPORT_S3_KEY (default "prompthub/prompts.jsonl")
}

// fileConfig is the subset of settings readable from the optional TOML file.
// Environment variables always win over file values.
type fileConfig struct {
	DBPath            string `toml:"db_path"`
	HTTPAddr          string `toml:"http_addr"`
	NATSURL           string `toml:"nats_url"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	ExportInterval    string `toml:"export_interval"`
	ExportS3Bucket    string `toml:"export_s3_bucket"`
	ExportS3Endpoint  string `toml:"export_s3_endpoint"`
	ExportS3Region    string `toml:"export_s3_region"`
	ExportS3Key       string `toml:"export_s3_key"`
}

// Load reads configuration from PROMPTHUB_CONFIG (or ./prompthub.toml when
// present) and then from the environment.
func Load() (*Config, error) {
	var fc fileConfig
	path := os.Getenv("PROMPTHUB_CONFIG")
	if path == "" {
		if _, err := os.Stat("prompthub.toml"); err == nil {
			path = "prompthub.toml"
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	c := &Config{
		DBPath:           firstOf(os.Getenv("PROMPTHUB_DB_PATH"), fc.DBPath, "prompthub.db"),
		HTTPAddr:         firstOf(os.Getenv("PROMPTHUB_HTTP_ADDR"), fc.HTTPAddr, ":8080"),
		NATSURL:          firstOf(os.Getenv("PROMPTHUB_NATS_URL"), fc.NATSURL, ""),
		ExportS3Bucket:   firstOf(os.Getenv("PROMPTHUB_EXPORT_S3_BUCKET"), fc.ExportS3Bucket, ""),
		ExportS3Endpoint: firstOf(os.Getenv("PROMPTHUB_EXPORT_S3_ENDPOINT"), fc.ExportS3Endpoint, ""),
		ExportS3Region:   firstOf(os.Getenv("PROMPTHUB_EXPORT_S3_REGION"), fc.ExportS3Region, "us-east-1"),
		ExportS3Key:      firstOf(os.Getenv("PROMPTHUB_EXPORT_S3_KEY"), fc.ExportS3Key, "prompthub/prompts.jsonl"),
	}

	var err error
	c.HeartbeatInterval, err = durationOf("PROMPTHUB_HEARTBEAT_INTERVAL", fc.HeartbeatInterval, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if c.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("PROMPTHUB_HEARTBEAT_INTERVAL must be positive")
	}

	c.ExportInterval, err = durationOf("PROMPTHUB_EXPORT_INTERVAL", fc.ExportInterval, 0)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func durationOf(envKey, fileValue string, fallback time.Duration) (time.Duration, error) {
	raw := firstOf(os.Getenv(envKey), fileValue)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", envKey, err)
	}
	return d, nil
}
