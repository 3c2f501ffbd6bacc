// Package app wires configuration into the OCR pipeline for the binaries.
package app

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"github.com/joseph-ayodele/ocr-service/internal/ocr/libtess"
	"github.com/joseph-ayodele/ocr-service/internal/pipeline"
	"github.com/joseph-ayodele/ocr-service/internal/tempfile"
)

// LoadConfig reads .env (if present) and the environment, then validates.
func LoadConfig() (*common.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, common.NewAppError("CONFIG_ERROR", "failed to read .env", err)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the JSON logger used by every binary.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// NewEngine links libtesseract unless a tesseract binary is configured.
func NewEngine(cfg common.OCRConfig, logger *slog.Logger) ocr.Engine {
	if cfg.TesseractCmd != "" {
		return ocr.NewTesseractCLI(cfg.TesseractCmd, cfg.TessdataPrefix, logger)
	}
	return libtess.Engine{TessdataPrefix: cfg.TessdataPrefix}
}

// Components is everything a binary needs to run documents through OCR.
type Components struct {
	Store    *tempfile.Store
	Pipeline *pipeline.Pipeline
	Engine   ocr.Engine
}

func Build(cfg *common.Config, logger *slog.Logger) *Components {
	store := tempfile.NewStore(cfg.Files.TempDir, cfg.Files.MaxFileSize, logger)
	engine := NewEngine(cfg.OCR, logger)
	rasterizer := ocr.NewRasterizer(ocr.RasterizerConfig{
		Pdftoppm: cfg.OCR.PdftoppmCmd,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, logger)
	p := pipeline.New(logger, rasterizer, ocr.NewRecognizer(engine, logger), store, pipeline.Config{
		RequestTimeout: cfg.OCR.RequestTimeout,
		MaxConcurrent:  cfg.OCR.MaxConcurrent,
	})
	logger.Info("ocr pipeline ready",
		"engine", engine.Name(),
		"temp_dir", store.Dir(),
		"max_file_size", cfg.Files.MaxFileSize,
		"dpi", cfg.OCR.DPI,
		"max_pages", cfg.OCR.MaxPages,
		"request_timeout", cfg.OCR.RequestTimeout.String(),
		"max_concurrent", cfg.OCR.MaxConcurrent,
	)
	return &Components{Store: store, Pipeline: p, Engine: engine}
}
