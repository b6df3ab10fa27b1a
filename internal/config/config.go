package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FashnConfig configures the FASHN VTON microservice provider.
type FashnConfig struct {
	ServiceURL string
}

// PixazoConfig configures the Pixazo gateway provider.
type PixazoConfig struct {
	APIKey  string
	BaseURL string
}

// HuggingFaceConfig configures the text-to-image fallback provider.
type HuggingFaceConfig struct {
	Token string
	Model string
}

// GeminiConfig configures the Gemini image generation provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// StorageConfig selects and configures the blob storage gateway.
type StorageConfig struct {
	Provider   string // "local" or "gcs"
	BaseURL    string // public base URL for locally served uploads
	UploadsDir string
	GCSBucket  string
}

// DBConfig holds the optional Postgres catalog connection. When Host is
// empty the server falls back to the in-memory catalog.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// TuningDefaults are the provider tuning knobs applied when a request does
// not set them. They can be overridden from a YAML file (TRYON_DEFAULTS_FILE).
type TuningDefaults struct {
	Category         string `yaml:"category"`
	Mode             string `yaml:"mode"`
	GarmentPhotoType string `yaml:"garment_photo_type"`
	ModerationLevel  string `yaml:"moderation_level"`
	NumSamples       int    `yaml:"num_samples"`
	SegmentationFree bool   `yaml:"segmentation_free"`
	OutputFormat     string `yaml:"output_format"`
}

// Config holds all configuration for the try-on core, read once at startup.
type Config struct {
	Provider        string // preferred provider name, case-insensitive
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int

	Fashn       FashnConfig
	Pixazo      PixazoConfig
	HuggingFace HuggingFaceConfig
	Gemini      GeminiConfig

	Storage StorageConfig
	DB      DBConfig

	JanitorSchedule string
	TempMaxAge      time.Duration

	Defaults TuningDefaults
}

// Load reads the configuration from environment variables, applying
// defaults for anything unset. It never fails on missing provider
// credentials: an absent key simply makes that provider unavailable.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:        getEnv("AI_PROVIDER", "mock"),
		RequestTimeout:  getDuration("TRYON_REQUEST_TIMEOUT", 120*time.Second),
		PollInterval:    getDuration("TRYON_POLL_INTERVAL", 2*time.Second),
		MaxPollAttempts: getInt("TRYON_MAX_POLL_ATTEMPTS", 30),
		Fashn: FashnConfig{
			ServiceURL: getEnv("FASHN_SERVICE_URL", "http://localhost:8000/vton"),
		},
		Pixazo: PixazoConfig{
			APIKey:  os.Getenv("PIXAZO_API_KEY"),
			BaseURL: getEnv("PIXAZO_BASE_URL", "https://gateway.pixazo.ai/fashn-virtual-try-on/v1"),
		},
		HuggingFace: HuggingFaceConfig{
			Token: os.Getenv("HF_API_TOKEN"),
			Model: getEnv("HF_API_MODEL", "runwayml/stable-diffusion-v1-5"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		},
		Storage: StorageConfig{
			Provider:   getEnv("STORAGE_PROVIDER", "local"),
			BaseURL:    getEnv("BASE_URL", "http://localhost:8888"),
			UploadsDir: getEnv("UPLOADS_DIR", "uploads"),
			GCSBucket:  os.Getenv("GCS_BUCKET"),
		},
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     getInt("DB_PORT", 5432),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JanitorSchedule: getEnv("TRYON_JANITOR_SCHEDULE", "@every 1h"),
		TempMaxAge:      getDuration("TRYON_TEMP_MAX_AGE", 24*time.Hour),
		Defaults: TuningDefaults{
			Category:         "auto",
			Mode:             "balanced",
			GarmentPhotoType: "auto",
			ModerationLevel:  "permissive",
			NumSamples:       1,
			SegmentationFree: true,
			OutputFormat:     "png",
		},
	}

	if cfg.Storage.Provider == "gcs" && cfg.Storage.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_PROVIDER=gcs")
	}
	if cfg.MaxPollAttempts < 1 {
		return nil, fmt.Errorf("TRYON_MAX_POLL_ATTEMPTS must be at least 1")
	}

	if path := os.Getenv("TRYON_DEFAULTS_FILE"); path != "" {
		if err := loadDefaultsFile(path, &cfg.Defaults); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// DSN returns the Postgres connection string for the catalog database.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func loadDefaultsFile(path string, defaults *TuningDefaults) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, defaults); err != nil {
		return fmt.Errorf("failed to parse defaults file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
