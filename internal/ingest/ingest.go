package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/ocr-service/constants"
	"github.com/joseph-ayodele/ocr-service/internal/pipeline"
)

// Result is the per-document outcome of a batch run.
type Result struct {
	SourcePath string
	OutputPath string
	Status     constants.ExtractStatus
	Pages      int
	Confidence float64
	Duration   time.Duration
	Err        string
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// DocumentProcessor runs OCR on a staged copy and deletes it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path, selector string) (pipeline.DocumentResult, error)
}

// Staging copies source documents into scratch space so the processor's
// delete-on-exit never touches the originals.
type Staging interface {
	SaveFile(src string) (string, error)
	Delete(path string) error
}
