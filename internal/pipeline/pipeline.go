package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"golang.org/x/sync/semaphore"
)

// Rasterizer splits a document on disk into pages. cleanup is never nil.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) (pages []ocr.Page, cleanup func() error, err error)
}

// Recognizer reads the text of one preprocessed page.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, selector string) (ocr.Recognition, error)
}

// FileDeleter removes the input document once it is no longer needed.
type FileDeleter interface {
	Delete(path string) error
}

type Config struct {
	RequestTimeout time.Duration // 0 = no deadline
	MaxConcurrent  int           // documents processed at once; default runtime.NumCPU()
}

// DocumentResult is the aggregated outcome for one document.
type DocumentResult struct {
	Text       string
	Confidence float64
	Pages      int
	Language   string
	Duration   time.Duration
}

// Pipeline coordinates rasterize, preprocess and recognize for one document
// and owns deletion of that document.
type Pipeline struct {
	Logger     *slog.Logger
	Rasterizer Rasterizer
	Recognizer Recognizer
	Files      FileDeleter

	preprocess func(image.Image) (*image.Gray, error)
	timeout    time.Duration
	sem        *semaphore.Weighted
}

func New(logger *slog.Logger, rasterizer Rasterizer, recognizer Recognizer, files FileDeleter, cfg Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU()
	}
	return &Pipeline{
		Logger:     logger,
		Rasterizer: rasterizer,
		Recognizer: recognizer,
		Files:      files,
		preprocess: ocr.Preprocess,
		timeout:    cfg.RequestTimeout,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// ProcessDocument extracts the text of the document at path. The document
// is deleted before returning, on success and on every failure. Pages are
// processed in order and the first failing page aborts the document; no
// partial result is returned.
func (p *Pipeline) ProcessDocument(ctx context.Context, path, selector string) (DocumentResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.Logger).With("path", path)
	defer p.deleteDocument(path, logger)

	if _, err := ocr.DocumentTypeOf(path); err != nil {
		logger.Warn("pipeline.rejected", "err", err)
		return DocumentResult{}, err
	}

	ctx, cancel := common.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return DocumentResult{}, classify(ctx, err, "waiting for a worker")
	}
	defer p.sem.Release(1)

	pages, cleanup, err := p.Rasterizer.Rasterize(ctx, path)
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(); err != nil {
			logger.Error("pipeline.cleanup.failed", "err", err)
		}
	}()
	if err != nil {
		logger.Error("pipeline.rasterize.failed", "err", err)
		return DocumentResult{}, classify(ctx, err, "rasterize")
	}

	texts := make([]string, 0, len(pages))
	confs := make([]float64, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return DocumentResult{}, classify(ctx, err, fmt.Sprintf("page %d", page.Index+1))
		}
		gray, err := p.preprocess(page.Image)
		if err != nil {
			logger.Error("pipeline.preprocess.failed", "page", page.Index+1, "err", err)
			return DocumentResult{}, classify(ctx, err, fmt.Sprintf("preprocess page %d", page.Index+1))
		}
		rec, err := p.Recognizer.Recognize(ctx, gray, selector)
		if err != nil {
			logger.Error("pipeline.recognize.failed", "page", page.Index+1, "err", err)
			return DocumentResult{}, classify(ctx, err, fmt.Sprintf("recognize page %d", page.Index+1))
		}
		texts = append(texts, rec.Text)
		confs = append(confs, rec.Confidence)
	}

	lang, _ := ocr.LanguageCode(selector)
	res := DocumentResult{
		Text:       strings.TrimSpace(strings.Join(texts, "\n")),
		Confidence: ocr.MeanOf(confs),
		Pages:      len(pages),
		Language:   lang,
		Duration:   time.Since(start),
	}
	logger.Info("pipeline.ok",
		"pages", res.Pages,
		"lang", res.Language,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) deleteDocument(path string, logger *slog.Logger) {
	if p.Files == nil {
		return
	}
	if err := p.Files.Delete(path); err != nil {
		logger.Error("pipeline.delete.failed", "err", err)
	}
}

// classify keeps errors that already carry a kind and maps the rest:
// deadline -> timeout, anything else -> internal.
func classify(ctx context.Context, err error, step string) error {
	if common.KindOf(err) != common.KindValidation &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return common.NewTimeoutError("OCR processing timed out during "+step, err)
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return common.WrapError(err, step)
	}
	if errors.Is(err, common.ErrProcessing) {
		return common.NewAppError("PROCESSING_ERROR", step, err)
	}
	return common.NewAppError("OCR_FAILED", step, err)
}
