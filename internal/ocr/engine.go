package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// Engine configuration shared by every engine implementation.
const (
	// PageSegMode 4: assume a single column of text of variable sizes.
	PageSegMode = 4
	// EngineMode 3: default, LSTM when available.
	EngineMode = 3
)

// EngineOutput is what one recognition pass over one image yields. Text and
// TokenConfidences must come from the same pass.
type EngineOutput struct {
	Text string
	// TokenConfidences are word level scores in 0..100; -1 marks non-text.
	TokenConfidences []float64
}

// Engine recognizes text in a PNG-encoded image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte, lang string) (EngineOutput, error)
}

// Recognition is the per-page result. Text has surrounding whitespace and
// the engine's page terminator removed.
type Recognition struct {
	Text       string
	Confidence float64
}

// Recognizer adapts an Engine to the pipeline: language resolution,
// encoding and confidence aggregation.
type Recognizer struct {
	engine Engine
	logger *slog.Logger
}

func NewRecognizer(engine Engine, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{engine: engine, logger: logger}
}

// Recognize runs the engine once on img with the language mapped from selector.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, selector string) (Recognition, error) {
	logger := common.LoggerFromContext(ctx, r.logger)
	lang := ResolveLanguage(selector, logger)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Recognition{}, fmt.Errorf("%w: encode page: %v", common.ErrProcessing, err)
	}

	out, err := r.engine.Recognize(ctx, buf.Bytes(), lang)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Recognition{}, common.NewTimeoutError("recognition deadline exceeded", err)
		}
		if errors.Is(err, context.Canceled) {
			return Recognition{}, err
		}
		return Recognition{}, common.NewEngineError(fmt.Sprintf("%s recognition failed", r.engine.Name()), fmt.Errorf("%w: %v", common.ErrRecognition, err))
	}

	text := strings.TrimSpace(out.Text)
	conf := MeanConfidence(out.TokenConfidences)
	logger.Debug("page recognized", "engine", r.engine.Name(), "lang", lang, "chars", len(text), "tokens", len(out.TokenConfidences), "confidence", conf)
	return Recognition{Text: text, Confidence: conf}, nil
}
