package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"github.com/joseph-ayodele/ocr-service/internal/pipeline"
)

// multipartOverhead is allowed on top of the file size limit for headers
// and other form fields.
const multipartOverhead = 1 << 20

// DocumentProcessor runs OCR on a saved document and deletes it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path, selector string) (pipeline.DocumentResult, error)
}

// Uploads stores request bodies on disk for the processor.
type Uploads interface {
	Save(r io.Reader, filename string) (string, error)
	Delete(path string) error
}

type ExtractResponse struct {
	Success          bool    `json:"success"`
	RawText          string  `json:"raw_text"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Handler struct {
	processor   DocumentProcessor
	uploads     Uploads
	maxFileSize int64
	serviceName string
	logger      *slog.Logger
}

func NewHandler(processor DocumentProcessor, uploads Uploads, maxFileSize int64, serviceName string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		processor:   processor,
		uploads:     uploads,
		maxFileSize: maxFileSize,
		serviceName: serviceName,
		logger:      logger,
	}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.serviceName})
}

// Extract handles POST /extract: multipart field "file", optional
// "language" in the query string or form.
func (h *Handler) Extract(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	logger := common.LoggerFromContext(ctx, h.logger)

	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)
	}
	fh, err := c.FormFile("file")
	defer func() {
		if c.Request.MultipartForm != nil {
			if err := c.Request.MultipartForm.RemoveAll(); err != nil {
				logger.Error("failed to remove multipart temp files", "error", err)
			}
		}
	}()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, common.NewValidationError(
				fmt.Sprintf("File size exceeds limit. Max size: %s.", common.HumanBytes(h.maxFileSize)),
				common.ErrFileTooLarge,
			))
			return
		}
		h.respondError(c, common.NewValidationError("A file must be uploaded in the \"file\" field.", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)))
		return
	}

	language := c.Query("language")
	if language == "" {
		language = c.PostForm("language")
	}
	if language == "" {
		language = ocr.DefaultSelector
	}

	v := common.NewValidator().
		Field("file", fh.Filename, common.Required, common.SupportedExtension).
		Field("language", language, common.OneOf(ocr.Selectors()...))
	if h.maxFileSize > 0 {
		v.Field("file size", fh.Size, common.MaxBytes(h.maxFileSize))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		h.respondError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	path, err := h.uploads.Save(f, fh.Filename)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer func() {
		if err := h.uploads.Delete(path); err != nil {
			logger.Error("failed to delete upload", "path", path, "error", err)
		}
	}()

	logger.Info("extract.start", "filename", fh.Filename, "bytes", fh.Size, "language", language)
	res, err := h.processor.ProcessDocument(ctx, path, language)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{
		Success:          true,
		RawText:          res.Text,
		Confidence:       math.Round(res.Confidence*100) / 100,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	logger := common.LoggerFromContext(c.Request.Context(), h.logger)
	kind := common.KindOf(err)
	status := common.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("extract.failed", "kind", kind.String(), "error", err)
	} else {
		logger.Warn("extract.rejected", "kind", kind.String(), "error", err)
	}
	c.JSON(status, ErrorResponse{Success: false, Message: common.PublicMessage(err)})
}
