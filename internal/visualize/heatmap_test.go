package visualize

import (
	"bytes"
	"image/png"
	"testing"
)

func TestRenderHeatmap(t *testing.T) {
	genes := []string{"IL8", "TMEM173"}
	cohorts := []string{"BRCA", "GBM", "LUAD"}
	means := map[string]map[string]float64{
		"IL8":     {"BRCA": 1.0, "GBM": 5.0, "LUAD": 3.0},
		"TMEM173": {"BRCA": 0.5, "GBM": 0.5, "LUAD": 2.5},
	}
	data, err := renderHeatmap(genes, cohorts, means)
	if err != nil {
		t.Fatalf("renderHeatmap: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	wantW := 2*heatMargin + len(cohorts)*(cellWidth+cellGap)
	wantH := 2*heatMargin + len(genes)*(cellHeight+cellGap)
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("bounds = %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestRenderHeatmapFlatMatrix(t *testing.T) {
	means := map[string]map[string]float64{"IL8": {"BRCA": 2.0, "GBM": 2.0}}
	if _, err := renderHeatmap([]string{"IL8"}, []string{"BRCA", "GBM"}, means); err != nil {
		t.Fatalf("flat matrix should render with the midpoint color: %v", err)
	}
}

func TestMatrixRange(t *testing.T) {
	means := map[string]map[string]float64{
		"IL8": {"BRCA": -1.5, "GBM": 4.0},
		"ATM": {"BRCA": 0.0, "GBM": 2.0},
	}
	lo, hi := matrixRange([]string{"IL8", "ATM"}, []string{"BRCA", "GBM"}, means)
	if lo != -1.5 || hi != 4.0 {
		t.Fatalf("range = [%v, %v], want [-1.5, 4.0]", lo, hi)
	}
}
