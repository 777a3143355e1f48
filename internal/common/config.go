package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	OCR      OCRConfig
	Vision   VisionConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "pgx" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string
	Pdftotext     string
	Pdftoppm      string
	Lang          string
	TessdataDir   string
	DPI           int
	Preprocess    bool
	TSVConfidence bool
}

// VisionConfig holds vision-model backend configuration
type VisionConfig struct {
	Provider          string // "gemini" | "openai"
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	Temperature       float32
	Timeout           time.Duration
	DefaultConfidence float64
}

// StorageConfig holds source-document storage configuration
type StorageConfig struct {
	LocalRoot string
	S3Bucket  string
	S3Region  string
}

// PipelineConfig holds processing configuration
type PipelineConfig struct {
	TextEngine     string // "pattern" | "vision"
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	TmpDir         string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "pgx"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Lang:          getEnv("TESSERACT_LANG", "spa"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			Preprocess:    getEnvAsBool("OCR_PREPROCESS", true),
			TSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", false),
		},
		Vision: VisionConfig{
			Provider:          strings.ToLower(getEnv("VISION_PROVIDER", "gemini")),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:       getEnvAsFloat32("VISION_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("VISION_TIMEOUT", 45*time.Second),
			DefaultConfidence: getEnvAsFloat64("VISION_DEFAULT_CONFIDENCE", 0.85),
		},
		Storage: StorageConfig{
			LocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./storage"),
			S3Bucket:  getEnv("S3_BUCKET", ""),
			S3Region:  getEnv("AWS_REGION", ""),
		},
		Pipeline: PipelineConfig{
			TextEngine:     strings.ToLower(getEnv("TEXT_ENGINE", "pattern")),
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:      getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
			TmpDir:         getEnv("PIPELINE_TMP_DIR", os.TempDir()),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be pgx or sqlite", ErrInvalidInput)
	}
	switch c.Pipeline.TextEngine {
	case "pattern":
	case "vision":
		switch c.Vision.Provider {
		case "gemini":
			if c.Vision.GeminiAPIKey == "" {
				return NewAppError(CodeConfig, "GEMINI_API_KEY is required for the vision engine", ErrInvalidInput)
			}
		case "openai":
			if c.Vision.OpenAIAPIKey == "" {
				return NewAppError(CodeConfig, "OPENAI_API_KEY is required for the vision engine", ErrInvalidInput)
			}
		default:
			return NewAppError(CodeConfig, "VISION_PROVIDER must be gemini or openai", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "TEXT_ENGINE must be pattern or vision", ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError(CodeConfig, "PIPELINE_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
