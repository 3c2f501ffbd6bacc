package ocr

import (
	"strconv"
	"strings"
)

// MeanConfidence averages the token confidences strictly above zero and
// scales the engine's 0..100 range to 0..1. Tesseract reports -1 for
// non-text regions; those and zero scores are excluded. With no positive
// score the result is 0.
func MeanConfidence(tokens []float64) float64 {
	var sum float64
	var n int
	for _, c := range tokens {
		if c > 0 {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n) / 100.0
	if mean > 1 {
		mean = 1
	}
	return mean
}

// MeanOf is the arithmetic mean of page confidences, 0 for no pages.
func MeanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ParseTSVConfidences extracts the conf column from tesseract TSV output.
// Rows whose conf does not parse are skipped.
func ParseTSVConfidences(tsv []byte) []float64 {
	lines := strings.Split(string(tsv), "\n")
	confCol := 10
	var out []float64
	for i, ln := range lines {
		ln = strings.TrimRight(ln, "\r")
		if ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if i == 0 && len(cols) > 0 && cols[0] == "level" {
			for j, name := range cols {
				if name == "conf" {
					confCol = j
				}
			}
			continue
		}
		if len(cols) <= confCol {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[confCol]), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
