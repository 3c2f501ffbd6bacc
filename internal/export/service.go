package export

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ocr-service/internal/ingest"
)

// SummarySheet is the worksheet the batch summary is written to.
const SummarySheet = "Summary"

var summaryHeaders = []string{
	"File",
	"Status",
	"Pages",
	"Confidence",
	"Duration (ms)",
	"Output",
	"Error",
}

// Service produces XLSX workbooks for batch runs.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// SummaryXLSX returns a workbook (as bytes) with one row per document and a
// totals row at the bottom.
func (s *Service) SummaryXLSX(results []ingest.Result, stats ingest.DirStats) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "err", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}

	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SummarySheet, cell, h)
	}

	row := 2
	for _, r := range results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SummarySheet, cell, v)
		}
		write(1, r.SourcePath)
		write(2, string(r.Status))
		write(3, r.Pages)
		write(4, r.Confidence)
		write(5, r.Duration.Milliseconds())
		write(6, r.OutputPath)
		write(7, truncate(r.Err, 240))
		row++
	}

	totals := fmt.Sprintf("scanned=%d matched=%d succeeded=%d failed=%d", stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed)
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	_ = f.SetCellValue(SummarySheet, cell, totals)

	_ = f.SetColWidth(SummarySheet, "A", "A", 60) // file
	_ = f.SetColWidth(SummarySheet, "B", "B", 10) // status
	_ = f.SetColWidth(SummarySheet, "C", "E", 14) // numbers
	_ = f.SetColWidth(SummarySheet, "F", "F", 60) // output
	_ = f.SetColWidth(SummarySheet, "G", "G", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// truncate limits s to n characters, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
