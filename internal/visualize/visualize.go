// Package visualize implements the final pipeline stage: summary
// statistics over the document store plus PNG charts of panel-gene
// expression and cohort sizes.
package visualize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/docstore"
	"tcgapipe/internal/metrics"
)

const (
	plotPrefix    = "tcga/plots/"
	histogramBins = 30
	chartWidth    = 1024
	chartHeight   = 576
)

// Stats summarizes the document store.
type Stats struct {
	TotalDocuments int64
	WithClinical   int64
	CohortCounts   map[string]int64
}

// Stage renders expression charts into OutDir and mirrors them into the
// object store under tcga/plots/.
type Stage struct {
	Docs   docstore.Store
	Blobs  blob.Store
	OutDir string
	Genes  []string
	Log    *zap.Logger
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "visualize" }

// CollectStats gathers document counts from the store.
func CollectStats(ctx context.Context, docs docstore.Store) (Stats, error) {
	total, err := docs.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	withClinical, err := docs.CountWithClinical(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count clinical: %w", err)
	}
	cohorts, err := docs.CohortCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("cohort counts: %w", err)
	}
	return Stats{TotalDocuments: total, WithClinical: withClinical, CohortCounts: cohorts}, nil
}

// Run renders one histogram per panel gene plus a cohort-size bar chart.
// It errors when the store is empty since there is nothing to plot.
func (s *Stage) Run(ctx context.Context) (int64, error) {
	stats, err := CollectStats(ctx, s.Docs)
	if err != nil {
		return 0, err
	}
	if stats.TotalDocuments == 0 {
		return 0, fmt.Errorf("document store is empty, run the transform stage first")
	}
	s.Log.Info("document store summary",
		zap.Int64("documents", stats.TotalDocuments),
		zap.Int64("with_clinical", stats.WithClinical),
		zap.Int("cohorts", len(stats.CohortCounts)))

	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("create plot dir: %w", err)
	}

	cohorts := make([]string, 0, len(stats.CohortCounts))
	for c := range stats.CohortCounts {
		cohorts = append(cohorts, c)
	}
	sort.Strings(cohorts)

	var rendered int64
	plotted := make([]string, 0, len(s.Genes))
	meansByGene := make(map[string]map[string]float64)
	for _, gene := range s.Genes {
		values, err := s.Docs.GeneValues(ctx, gene, "")
		if err != nil {
			return rendered, fmt.Errorf("gene values %s: %w", gene, err)
		}
		if len(values) == 0 {
			s.Log.Warn("no expression values for gene", zap.String("gene", gene))
			continue
		}
		name := fmt.Sprintf("expression_%s.png", strings.ToLower(gene))
		png, err := renderHistogram(gene, values)
		if err != nil {
			return rendered, fmt.Errorf("render %s: %w", name, err)
		}
		if err := s.savePlot(ctx, name, png); err != nil {
			return rendered, err
		}
		rendered++

		means, err := s.cohortMeans(ctx, gene, cohorts)
		if err != nil {
			return rendered, err
		}
		plotted = append(plotted, gene)
		meansByGene[gene] = means
		name = fmt.Sprintf("cohort_means_%s.png", strings.ToLower(gene))
		png, err = renderCohortMeans(gene, cohorts, means)
		if err != nil {
			return rendered, fmt.Errorf("render %s: %w", name, err)
		}
		if err := s.savePlot(ctx, name, png); err != nil {
			return rendered, err
		}
		rendered++
	}

	if len(plotted) > 0 {
		png, err := renderHeatmap(plotted, cohorts, meansByGene)
		if err != nil {
			return rendered, fmt.Errorf("render pathway heatmap: %w", err)
		}
		if err := s.savePlot(ctx, "pathway_heatmap.png", png); err != nil {
			return rendered, err
		}
		rendered++
	}

	if len(stats.CohortCounts) > 0 {
		png, err := renderCohortCounts(stats.CohortCounts)
		if err != nil {
			return rendered, fmt.Errorf("render cohort chart: %w", err)
		}
		if err := s.savePlot(ctx, "cohort_counts.png", png); err != nil {
			return rendered, err
		}
		rendered++
	}

	metrics.PlotsRendered.Add(float64(rendered))
	s.Log.Info("visualize stage complete", zap.Int64("plots", rendered), zap.String("dir", s.OutDir))
	return rendered, nil
}

// savePlot writes the chart to disk and mirrors it to the object store.
func (s *Stage) savePlot(ctx context.Context, name string, png []byte) error {
	path := filepath.Join(s.OutDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if s.Blobs != nil {
		key := plotPrefix + name
		if _, err := s.Blobs.Put(ctx, key, bytes.NewReader(png), blob.PutOptions{ContentType: "image/png"}); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}

// Histogram bins values into n equal-width buckets over [min, max].
// All-equal inputs collapse into a single bucket.
func Histogram(values []float64, n int) (edges []float64, counts []int) {
	if len(values) == 0 || n <= 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []float64{lo, hi}, []int{len(values)}
	}
	width := (hi - lo) / float64(n)
	counts = make([]int, n)
	edges = make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = lo + float64(i)*width
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	return edges, counts
}

// yRange pins the value axis to [0, 1.1*max]. go-chart refuses to render
// a zero-width data range, which otherwise happens whenever every bar
// holds the same value.
func yRange(bars []chart.Value) *chart.ContinuousRange {
	var max float64
	for _, b := range bars {
		if b.Value > max {
			max = b.Value
		}
	}
	if max <= 0 {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: max * 1.1}
}

func renderHistogram(gene string, values []float64) ([]byte, error) {
	edges, counts := Histogram(values, histogramBins)
	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{Value: float64(c)}
		// label a handful of bin edges to keep the axis readable
		if i%5 == 0 {
			bars[i].Label = fmt.Sprintf("%.1f", edges[i])
		}
	}
	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s expression (n=%d)", gene, len(values)),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: chartWidth / (len(bars) + 4),
		Bars:     bars,
		YAxis:    chart.YAxis{Range: yRange(bars)},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cohortMeans computes the gene's mean expression per cohort. Cohorts
// without values for the gene map to zero.
func (s *Stage) cohortMeans(ctx context.Context, gene string, cohorts []string) (map[string]float64, error) {
	means := make(map[string]float64, len(cohorts))
	for _, cohort := range cohorts {
		values, err := s.Docs.GeneValues(ctx, gene, cohort)
		if err != nil {
			return nil, fmt.Errorf("gene values %s/%s: %w", gene, cohort, err)
		}
		means[cohort] = Mean(values)
	}
	return means, nil
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func renderCohortMeans(gene string, cohorts []string, means map[string]float64) ([]byte, error) {
	bars := make([]chart.Value, 0, len(cohorts))
	for _, c := range cohorts {
		bars = append(bars, chart.Value{Value: means[c], Label: c})
	}
	graph := chart.BarChart{
		Title:    fmt.Sprintf("Mean %s expression by cohort", gene),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: chartWidth / (len(bars) + 4),
		Bars:     bars,
		YAxis:    chart.YAxis{Range: yRange(bars)},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderCohortCounts(counts map[string]int64) ([]byte, error) {
	cohorts := make([]string, 0, len(counts))
	for c := range counts {
		cohorts = append(cohorts, c)
	}
	sort.Strings(cohorts)
	bars := make([]chart.Value, 0, len(cohorts))
	for _, c := range cohorts {
		bars = append(bars, chart.Value{Value: float64(counts[c]), Label: c})
	}
	graph := chart.BarChart{
		Title:    "Patients per cohort",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: chartWidth / (len(bars) + 4),
		Bars:     bars,
		YAxis:    chart.YAxis{Range: yRange(bars)},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
