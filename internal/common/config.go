package common

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	OCR    OCRConfig
	Files  FilesConfig
	Log    LogConfig
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string // empty disables the gRPC health endpoint
	ServiceName     string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// OCRConfig holds recognition and rasterization configuration
type OCRConfig struct {
	TesseractCmd   string // empty selects the linked gosseract engine
	TessdataPrefix string
	PdftoppmCmd    string
	DPI            int
	MaxPages       int // 0 = no limit
	RequestTimeout time.Duration
	MaxConcurrent  int
}

// FilesConfig holds temp-storage configuration
type FilesConfig struct {
	TempDir     string
	MaxFileSize int64
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level slog.Level
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:        getEnv("GRPC_ADDR", ""),
			ServiceName:     getEnv("SERVICE_NAME", "ocr-service"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			TesseractCmd:   getEnv("TESSERACT_CMD", ""),
			TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
			PdftoppmCmd:    getEnv("PDFTOPPM_CMD", "pdftoppm"),
			DPI:            getEnvAsInt("PDF_DPI", 200),
			MaxPages:       getEnvAsInt("OCR_MAX_PAGES", 0),
			RequestTimeout: getEnvAsDuration("OCR_REQUEST_TIMEOUT", 2*time.Minute),
			MaxConcurrent:  getEnvAsInt("OCR_MAX_CONCURRENT", runtime.NumCPU()),
		},
		Files: FilesConfig{
			TempDir:     getEnv("TEMP_DIR", "/tmp/ocr-uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
		},
		Log: LogConfig{
			Level: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// WARNING and CRITICAL are accepted as aliases
	switch strings.ToUpper(value) {
	case "WARNING":
		return slog.LevelWarn
	case "CRITICAL":
		return slog.LevelError
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value)); err != nil {
		return defaultValue
	}
	return lvl
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Files.TempDir == "" {
		return NewAppError("CONFIG_ERROR", "TEMP_DIR is required", ErrInvalidInput)
	}
	if c.Files.MaxFileSize <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_FILE_SIZE must be positive", ErrInvalidInput)
	}
	if c.OCR.DPI < 50 || c.OCR.DPI > 1200 {
		return NewAppError("CONFIG_ERROR", "PDF_DPI must be between 50 and 1200", ErrInvalidInput)
	}
	if c.OCR.MaxPages < 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_PAGES must not be negative", ErrInvalidInput)
	}
	if c.OCR.MaxConcurrent < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_CONCURRENT must be at least 1", ErrInvalidInput)
	}
	return nil
}
