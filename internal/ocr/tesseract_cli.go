package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// TesseractCLI runs the tesseract binary. One invocation writes both the
// plain text and the TSV word table for the same input.
type TesseractCLI struct {
	Cmd         string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string

	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(cmd, tessdataDir string, logger *slog.Logger) *TesseractCLI {
	if cmd == "" {
		cmd = "tesseract"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractCLI{Cmd: cmd, TessdataDir: tessdataDir, runner: execRunner{}, logger: logger}
}

func (*TesseractCLI) Name() string { return "tesseract" }

func (t *TesseractCLI) Recognize(ctx context.Context, png []byte, lang string) (EngineOutput, error) {
	tmpDir, err := os.MkdirTemp("", "ocr-tess-*")
	if err != nil {
		return EngineOutput{}, fmt.Errorf("scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.logger.Error("failed to remove tesseract scratch dir", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, png, 0o600); err != nil {
		return EngineOutput{}, fmt.Errorf("write page: %w", err)
	}

	// tesseract <in> <base> -l <lang> --psm 4 --oem 3 [--tessdata-dir d] txt tsv
	base := filepath.Join(tmpDir, "out")
	args := []string{in, base, "-l", lang, "--psm", strconv.Itoa(PageSegMode), "--oem", strconv.Itoa(EngineMode)}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	args = append(args, "txt", "tsv")

	_, errb, err := t.runner.Run(ctx, t.Cmd, t.logger, args...)
	if err != nil {
		if ctx.Err() != nil {
			return EngineOutput{}, ctx.Err()
		}
		return EngineOutput{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	text, err := os.ReadFile(base + ".txt")
	if err != nil {
		return EngineOutput{}, fmt.Errorf("read text output: %w", err)
	}
	tsv, err := os.ReadFile(base + ".tsv")
	if err != nil {
		return EngineOutput{}, fmt.Errorf("read tsv output: %w", err)
	}
	return EngineOutput{Text: string(text), TokenConfidences: ParseTSVConfidences(tsv)}, nil
}
