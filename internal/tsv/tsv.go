// Package tsv reads the two tab-separated layouts the pipeline consumes:
// Xena expression matrices (genes as rows, sample barcodes as columns) and
// row-oriented clinical tables. Both may arrive gzip-compressed.
package tsv

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"tcgapipe/pkg/domain"
)

// Sample is one matrix column transposed into a per-sample gene map.
type Sample struct {
	ID    string
	Genes map[string]float64
}

// MaybeGunzip sniffs the gzip magic bytes and transparently decompresses.
func MaybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		if err == io.EOF {
			return br, nil
		}
		return nil, fmt.Errorf("peek: %w", err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// parseValue converts a matrix cell to float64. Missing markers and NaN
// collapse to 0 so documents stay numeric.
func parseValue(cell string) float64 {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return 0
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ReadPanelSamples parses a genes-by-samples expression matrix, keeps only
// cGAS-STING panel rows (folding CXCL8 onto IL8 when IL8 itself is absent),
// and transposes the result into per-sample records. Sample order follows
// the header.
func ReadPanelSamples(r io.Reader) ([]Sample, error) {
	raw, err := MaybeGunzip(r)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(raw)
	// Pan-cancer matrices have tens of thousands of columns per line.
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("empty matrix")
	}
	header := strings.Split(sc.Text(), "\t")
	if len(header) < 2 {
		return nil, fmt.Errorf("matrix header has no sample columns")
	}
	sampleIDs := header[1:]

	genes := make(map[string][]float64, len(domain.PanelGenes))
	sawIL8 := false
	var cxcl8 []float64
	line := 1
	for sc.Scan() {
		line++
		row := sc.Text()
		tab := strings.IndexByte(row, '\t')
		if tab < 0 {
			continue
		}
		symbol := row[:tab]
		if !domain.IsPanelGene(symbol) {
			continue
		}
		cells := strings.Split(row[tab+1:], "\t")
		if len(cells) != len(sampleIDs) {
			return nil, fmt.Errorf("line %d: %d values for %d samples", line, len(cells), len(sampleIDs))
		}
		values := make([]float64, len(cells))
		for i, c := range cells {
			values[i] = parseValue(c)
		}
		if symbol == "CXCL8" {
			cxcl8 = values
			continue
		}
		if symbol == "IL8" {
			sawIL8 = true
		}
		genes[symbol] = values
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	if !sawIL8 && cxcl8 != nil {
		genes["IL8"] = cxcl8
	}
	if len(genes) == 0 {
		return nil, nil
	}

	samples := make([]Sample, len(sampleIDs))
	for i, id := range sampleIDs {
		m := make(map[string]float64, len(genes))
		for g, values := range genes {
			m[g] = values[i]
		}
		samples[i] = Sample{ID: strings.TrimSpace(id), Genes: m}
	}
	return samples, nil
}

// ReadTable parses a row-oriented TSV into its header and one map per row.
// Short rows are padded with empty values; long rows are truncated.
func ReadTable(r io.Reader) ([]string, []map[string]string, error) {
	raw, err := MaybeGunzip(r)
	if err != nil {
		return nil, nil, err
	}
	sc := bufio.NewScanner(raw)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, nil, fmt.Errorf("read header: %w", err)
		}
		return nil, nil, fmt.Errorf("empty table")
	}
	header := strings.Split(sc.Text(), "\t")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	var rows []map[string]string
	for sc.Scan() {
		cells := strings.Split(sc.Text(), "\t")
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	return header, rows, nil
}
