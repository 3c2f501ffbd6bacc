// Package libtess runs tesseract in-process through gosseract. It needs
// libtesseract at build time, so it lives outside package ocr.
package libtess

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Engine implements ocr.Engine on libtesseract.
type Engine struct {
	// TessdataPrefix overrides where language data is loaded from.
	TessdataPrefix string
}

func (Engine) Name() string { return "gosseract" }

type result struct {
	out ocr.EngineOutput
	err error
}

// Recognize uses a fresh client per call so text and word confidences are
// read from the same loaded image. The C call cannot be interrupted; on
// cancellation we return early and the goroutine releases its client when
// tesseract finishes.
func (e Engine) Recognize(ctx context.Context, png []byte, lang string) (ocr.EngineOutput, error) {
	done := make(chan result, 1)
	go func() {
		out, err := e.recognize(png, lang)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return ocr.EngineOutput{}, ctx.Err()
	case res := <-done:
		return res.out, res.err
	}
}

func (e Engine) recognize(png []byte, lang string) (ocr.EngineOutput, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return ocr.EngineOutput{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return ocr.EngineOutput{}, fmt.Errorf("set languages: %w", err)
	}
	// gosseract has no OEM setter; libtesseract's default is already
	// ocr.EngineMode (3).
	if err := client.SetPageSegMode(gosseract.PageSegMode(ocr.PageSegMode)); err != nil {
		return ocr.EngineOutput{}, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return ocr.EngineOutput{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ocr.EngineOutput{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.EngineOutput{}, fmt.Errorf("word boxes: %w", err)
	}
	confs := make([]float64, 0, len(boxes))
	for _, b := range boxes {
		confs = append(confs, b.Confidence)
	}
	return ocr.EngineOutput{Text: text, TokenConfidences: confs}, nil
}
