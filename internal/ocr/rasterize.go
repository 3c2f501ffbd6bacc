package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joseph-ayodele/ocr-service/constants"
	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type RasterizerConfig struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI for PDFs, default 200
	MaxPages int    // 0 = no limit
}

// Rasterizer turns a document on disk into page images.
type Rasterizer struct {
	cfg    RasterizerConfig
	runner Runner
	logger *slog.Logger

	pageCount func(path string) (int, error)
}

func NewRasterizer(cfg RasterizerConfig, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Rasterizer{cfg: cfg, runner: execRunner{}, logger: logger, pageCount: pdfPageCount}
}

// DocumentTypeOf classifies a path by extension: constants.PDF or
// constants.IMAGE. Anything else is a validation error.
func DocumentTypeOf(path string) (string, error) {
	ext := filepath.Ext(path)
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return "", common.NewValidationError(
			fmt.Sprintf("Invalid file type. Supported types: %s.", strings.Join(constants.AllowedExtensionList(), ", ")),
			fmt.Errorf("%w: %q", common.ErrUnsupportedDocumentType, ext),
		)
	}
	return format, nil
}

// Rasterize returns the pages of the document in order. cleanup is never
// nil and must be called on every path; it removes scratch files the
// rasterizer created (never the input document).
func (r *Rasterizer) Rasterize(ctx context.Context, path string) (pages []Page, cleanup func() error, err error) {
	cleanup = func() error { return nil }
	logger := common.LoggerFromContext(ctx, r.logger)

	format, err := DocumentTypeOf(path)
	if err != nil {
		return nil, cleanup, err
	}

	switch format {
	case constants.IMAGE:
		img, err := DecodeImage(path)
		if err != nil {
			return nil, cleanup, err
		}
		return []Page{{Index: 0, Image: img}}, cleanup, nil
	default:
		return r.rasterizePDF(ctx, path, logger)
	}
}

func (r *Rasterizer) rasterizePDF(ctx context.Context, path string, logger *slog.Logger) ([]Page, func() error, error) {
	noop := func() error { return nil }

	n, err := r.pageCount(path)
	if err != nil {
		return nil, noop, common.NewValidationError("The uploaded PDF could not be read.", fmt.Errorf("%w: %v", common.ErrCorruptDocument, err))
	}
	if r.cfg.MaxPages > 0 && n > r.cfg.MaxPages {
		return nil, noop, common.NewValidationError(
			fmt.Sprintf("The PDF has %d pages. Max pages: %d.", n, r.cfg.MaxPages),
			common.ErrTooManyPages,
		)
	}

	tmpDir, err := os.MkdirTemp("", "ocr-pdf-*")
	if err != nil {
		return nil, noop, fmt.Errorf("scratch dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(tmpDir) }

	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, logger, "-r", strconv.Itoa(r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cleanup, ctx.Err()
		}
		return nil, cleanup, common.NewEngineError("pdf rasterization failed", fmt.Errorf("%w: %v: %s", common.ErrRasterization, err, truncate(string(errb), 512)))
	}

	files, err := renderedPages(prefix)
	if err != nil {
		return nil, cleanup, err
	}
	if len(files) == 0 {
		return nil, cleanup, common.NewEngineError("pdf rasterization failed", fmt.Errorf("%w: pdftoppm produced no images", common.ErrRasterization))
	}

	pages := make([]Page, 0, len(files))
	for i, f := range files {
		img, err := DecodeImage(f)
		if err != nil {
			return nil, cleanup, common.NewEngineError("rendered page could not be decoded", fmt.Errorf("%w: page %d: %v", common.ErrRasterization, i+1, err))
		}
		pages = append(pages, Page{Index: i, Image: img})
	}
	logger.Debug("pdf rasterized", "path", path, "pages", len(pages), "dpi", r.cfg.DPI)
	return pages, cleanup, nil
}

// renderedPages lists prefix-N.png files ordered by N. pdftoppm zero pads
// N depending on page count, so the numeric suffix is parsed.
func renderedPages(prefix string) ([]string, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	num := func(p string) int {
		s := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), filepath.Base(prefix)+"-"), ".png")
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1
		}
		return n
	}
	sort.SliceStable(matches, func(i, j int) bool { return num(matches[i]) < num(matches[j]) })
	return matches, nil
}

var disablePdfcpuConfig sync.Once

func pdfPageCount(path string) (n int, err error) {
	disablePdfcpuConfig.Do(api.DisableConfigDir)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while reading pdf: %v", rec)
		}
	}()
	return api.PageCountFile(path)
}
