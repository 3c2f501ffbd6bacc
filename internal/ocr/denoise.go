package ocr

import (
	"fmt"
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	denoiseBandRows = 32
	// weights below this are treated as zero
	weightThreshold = 0.001
)

// denoiseNLMeans applies non-local means to a gray image. For each pixel,
// candidates in a searchWin x searchWin window are weighted by the mean
// squared difference of their templateWin x templateWin neighbourhoods:
// w = exp(-d / h^2). Borders are reflected (101). Row bands run in
// parallel; each band owns its output rows, so the result does not depend
// on scheduling.
func denoiseNLMeans(src *image.Gray, h float64, templateWin, searchWin int) (*image.Gray, error) {
	if templateWin%2 == 0 || searchWin%2 == 0 {
		return nil, fmt.Errorf("window sizes must be odd (template=%d search=%d)", templateWin, searchWin)
	}
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || ht == 0 {
		return nil, fmt.Errorf("empty image")
	}

	tr, sr := templateWin/2, searchWin/2
	p := newPadded(src, tr+sr)
	lut := weightTable(h)
	dst := image.NewGray(image.Rect(0, 0, w, ht))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y0 := 0; y0 < ht; y0 += denoiseBandRows {
		y0 := y0
		y1 := min(y0+denoiseBandRows, ht)
		g.Go(func() error {
			denoiseBand(p, dst, lut, y0, y1, tr, sr, templateWin*templateWin)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}

// weightTable maps a mean squared template distance (0..255^2) to its weight.
func weightTable(h float64) []float64 {
	lut := make([]float64, 255*255+1)
	h2 := h * h
	for d := range lut {
		wt := math.Exp(-float64(d) / h2)
		if wt < weightThreshold {
			break
		}
		lut[d] = wt
	}
	return lut
}

func denoiseBand(p *padded, dst *image.Gray, lut []float64, y0, y1, tr, sr, area int) {
	w := dst.Rect.Dx()
	rows := y1 - y0
	// integral of the squared difference over the band plus template margin
	iw, ih := w+2*tr+1, rows+2*tr+1
	integral := make([]int64, iw*ih)
	weights := make([]float64, rows*w)
	sums := make([]float64, rows*w)
	side := 2*tr + 1

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for r := 1; r < ih; r++ {
				y := y0 - tr + r - 1
				var acc int64
				base := r * iw
				prev := (r - 1) * iw
				for c := 1; c < iw; c++ {
					x := c - 1 - tr
					d := int64(p.at(x, y)) - int64(p.at(x+dx, y+dy))
					acc += d * d
					integral[base+c] = integral[prev+c] + acc
				}
			}

			for ry := 0; ry < rows; ry++ {
				top := ry * iw
				bot := (ry + side) * iw
				for x := 0; x < w; x++ {
					ssd := integral[bot+x+side] - integral[bot+x] - integral[top+x+side] + integral[top+x]
					wt := lut[ssd/int64(area)]
					if wt == 0 {
						continue
					}
					i := ry*w + x
					weights[i] += wt
					sums[i] += wt * float64(p.at(x+dx, y0+ry+dy))
				}
			}
		}
	}

	for ry := 0; ry < rows; ry++ {
		out := dst.Pix[(y0+ry)*dst.Stride:]
		for x := 0; x < w; x++ {
			i := ry*w + x
			// the zero offset always contributes weight 1
			v := sums[i]/weights[i] + 0.5
			if v > 255 {
				v = 255
			}
			out[x] = uint8(v)
		}
	}
}

// padded is a gray image with a reflect-101 border.
type padded struct {
	pix    []uint8
	stride int
	border int
}

func newPadded(src *image.Gray, border int) *padded {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	pw, ph := w+2*border, h+2*border
	p := &padded{pix: make([]uint8, pw*ph), stride: pw, border: border}
	for y := 0; y < ph; y++ {
		sy := reflect101(y-border, h)
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+sy):]
		for x := 0; x < pw; x++ {
			p.pix[y*pw+x] = row[reflect101(x-border, w)]
		}
	}
	return p
}

func (p *padded) at(x, y int) uint8 {
	return p.pix[(y+p.border)*p.stride+x+p.border]
}

// reflect101 maps i into [0, n) mirroring around the edge pixels
// (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
