package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/ocr-service/constants"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// Batch runs the OCR pipeline over files on the local filesystem and
// writes one <file>.txt per document under OutDir, mirroring the source tree.
type Batch struct {
	Processor  DocumentProcessor
	Staging    Staging
	OutDir     string
	Language   string
	SkipHidden bool
	Logger     *slog.Logger
}

func NewBatch(processor DocumentProcessor, staging Staging, outDir, language string, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		Processor:  processor,
		Staging:    staging,
		OutDir:     outDir,
		Language:   language,
		SkipHidden: true,
		Logger:     logger,
	}
}

// ProcessPath extracts one document. root is used to place the output
// relative to the scanned tree.
func (b *Batch) ProcessPath(ctx context.Context, root, path string) Result {
	start := time.Now()
	out := Result{SourcePath: path}
	fail := func(err error) Result {
		out.Status = StatusOf(err)
		out.Err = common.PublicMessage(err)
		if out.Status == constants.ExtractStatusFailed {
			out.Err = err.Error()
		}
		out.Duration = time.Since(start)
		b.Logger.Error("batch.file.failed", "path", path, "status", out.Status, "err", err)
		return out
	}

	staged, err := b.Staging.SaveFile(path)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := b.Staging.Delete(staged); err != nil {
			b.Logger.Error("batch.cleanup.failed", "path", staged, "err", err)
		}
	}()

	res, err := b.Processor.ProcessDocument(ctx, staged, b.Language)
	if err != nil {
		return fail(err)
	}

	target, err := b.outputPath(root, path)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fail(fmt.Errorf("create output dir: %w", err))
	}
	if err := os.WriteFile(target, []byte(res.Text+"\n"), 0o644); err != nil {
		return fail(fmt.Errorf("write output: %w", err))
	}

	out.OutputPath = target
	out.Status = StatusOf(nil)
	out.Pages = res.Pages
	out.Confidence = res.Confidence
	out.Duration = time.Since(start)
	b.Logger.Info("batch.file.ok", "path", path, "pages", res.Pages, "confidence", res.Confidence, "output", target)
	return out
}

func (b *Batch) outputPath(root, path string) (string, error) {
	rel := filepath.Base(path)
	if root != "" {
		r, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("relative path: %w", err)
		}
		if !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return filepath.Join(b.OutDir, rel+".txt"), nil
}

// ProcessDirectory walks root, skips hidden entries if requested, and
// processes every file with an allowed extension. A failing file is
// recorded and the walk continues.
func (b *Batch) ProcessDirectory(ctx context.Context, root string) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Status: StatusOf(walkErr), Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && b.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		// keep generated outputs out of the walk when OutDir sits under root
		if b.OutDir != "" && strings.HasPrefix(path, filepath.Clean(b.OutDir)+string(filepath.Separator)) {
			return nil
		}
		stats.Matched++

		r := b.ProcessPath(ctx, root, path)
		results = append(results, r)
		if r.Err != "" {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
