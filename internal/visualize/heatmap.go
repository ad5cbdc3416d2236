package visualize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const (
	cellWidth  = 32
	cellHeight = 24
	cellGap    = 1
	heatMargin = 8
)

// Diverging ramp endpoints, low expression cool, high expression warm.
var (
	coolColor = color.NRGBA{R: 59, G: 76, B: 192, A: 255}
	warmColor = color.NRGBA{R: 180, G: 4, B: 38, A: 255}
)

// renderHeatmap draws the genes-by-cohorts mean-expression matrix as a
// colored grid, one row per gene in the given order, one column per
// cohort. Cell color is the matrix-wide normalized mean.
func renderHeatmap(genes, cohorts []string, means map[string]map[string]float64) ([]byte, error) {
	lo, hi := matrixRange(genes, cohorts, means)

	w := 2*heatMargin + len(cohorts)*(cellWidth+cellGap)
	h := 2*heatMargin + len(genes)*(cellHeight+cellGap)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	for row, gene := range genes {
		for col, cohort := range cohorts {
			v := 0.5
			if hi > lo {
				v = (means[gene][cohort] - lo) / (hi - lo)
			}
			x0 := heatMargin + col*(cellWidth+cellGap)
			y0 := heatMargin + row*(cellHeight+cellGap)
			fill(img, image.Rect(x0, y0, x0+cellWidth, y0+cellHeight), lerpColor(coolColor, warmColor, v))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func matrixRange(genes, cohorts []string, means map[string]map[string]float64) (lo, hi float64) {
	first := true
	for _, gene := range genes {
		for _, cohort := range cohorts {
			v := means[gene][cohort]
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + t*(float64(y)-float64(x))) }
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}
