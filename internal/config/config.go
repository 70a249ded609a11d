// Package config loads service configuration from environment variables.
//
// Every knob has a default so the server starts with nothing but storage
// credentials configured. Invalid values fail at startup, not mid-request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backend names accepted in IMGPRESS_STORAGE.
const (
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"
)

// Config holds all environment-driven settings for the server.
type Config struct {
	// Compression knobs.
	TargetBytes  int
	MinQuality   int
	StartQuality int
	QualityStep  int
	MaxDimension int

	// Upload handling.
	MaxUploadBytes int64
	Namespace      string

	// Storage collaborator selection.
	Storage       string
	CloudinaryURL string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3PublicURL   string

	// CORS. Empty means localhost origins only; "*" allows any origin.
	AllowedOrigins []string
}

// Load reads configuration from the environment, applying defaults and
// validating storage settings.
func Load() (*Config, error) {
	cfg := &Config{
		Namespace:     envString("IMGPRESS_NAMESPACE", "uploads"),
		Storage:       envString("IMGPRESS_STORAGE", StorageCloudinary),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		S3Bucket:      os.Getenv("IMGPRESS_S3_BUCKET"),
		S3Region:      os.Getenv("IMGPRESS_S3_REGION"),
		S3Endpoint:    os.Getenv("IMGPRESS_S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("IMGPRESS_S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("IMGPRESS_S3_SECRET_KEY"),
		S3PublicURL:   os.Getenv("IMGPRESS_S3_PUBLIC_URL"),
	}

	var err error
	if cfg.TargetBytes, err = envInt("IMGPRESS_TARGET_BYTES", 100*1024); err != nil {
		return nil, err
	}
	if cfg.MinQuality, err = envInt("IMGPRESS_MIN_QUALITY", 20); err != nil {
		return nil, err
	}
	if cfg.StartQuality, err = envInt("IMGPRESS_START_QUALITY", 90); err != nil {
		return nil, err
	}
	if cfg.QualityStep, err = envInt("IMGPRESS_QUALITY_STEP", 8); err != nil {
		return nil, err
	}
	if cfg.MaxDimension, err = envInt("IMGPRESS_MAX_DIMENSION", 0); err != nil {
		return nil, err
	}

	maxUpload, err := envInt("IMGPRESS_MAX_UPLOAD_BYTES", 25<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if origins := os.Getenv("IMGPRESS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TargetBytes <= 0 {
		return fmt.Errorf("IMGPRESS_TARGET_BYTES must be positive, got %d", c.TargetBytes)
	}
	if c.QualityStep <= 0 {
		return fmt.Errorf("IMGPRESS_QUALITY_STEP must be positive, got %d", c.QualityStep)
	}
	if c.MinQuality < 1 || c.MinQuality > 100 {
		return fmt.Errorf("IMGPRESS_MIN_QUALITY must be in [1, 100], got %d", c.MinQuality)
	}
	if c.StartQuality < 1 || c.StartQuality > 100 {
		return fmt.Errorf("IMGPRESS_START_QUALITY must be in [1, 100], got %d", c.StartQuality)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("IMGPRESS_MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}

	switch c.Storage {
	case StorageCloudinary:
		if c.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required when IMGPRESS_STORAGE=%s", StorageCloudinary)
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("IMGPRESS_S3_BUCKET is required when IMGPRESS_STORAGE=%s", StorageS3)
		}
		// Object URLs are built from the public base or the regional
		// endpoint; without either the returned URLs would be malformed.
		if c.S3Region == "" && c.S3PublicURL == "" {
			return fmt.Errorf("IMGPRESS_S3_REGION or IMGPRESS_S3_PUBLIC_URL is required when IMGPRESS_STORAGE=%s", StorageS3)
		}
	default:
		return fmt.Errorf("unsupported IMGPRESS_STORAGE value: %q (want %s or %s)", c.Storage, StorageCloudinary, StorageS3)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}
