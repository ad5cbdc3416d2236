// Package clinical implements the third pipeline stage: join survival
// and staging fields from the clinical TSV onto stored patient documents.
package clinical

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/docstore"
	"tcgapipe/internal/metrics"
	"tcgapipe/internal/tsv"
	"tcgapipe/pkg/domain"
)

// Stage joins clinical rows onto patient documents by patient barcode.
type Stage struct {
	Blobs blob.Store
	Docs  docstore.Store
	// Key is the object key of the clinical TSV. LocalPaths are tried in
	// order when the object store does not have it.
	Key        string
	LocalPaths []string
	Log        *zap.Logger
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "join" }

// Run reads the clinical table, builds a patient-to-clinical map and
// applies it to every matching document. A missing clinical table is a
// warning, not an error: expression documents are useful on their own.
func (s *Stage) Run(ctx context.Context) (int64, error) {
	rc, src, err := s.open(ctx)
	if err != nil {
		s.Log.Warn("clinical table unavailable, skipping join", zap.Error(err))
		return 0, nil
	}
	defer func() { _ = rc.Close() }()
	s.Log.Info("reading clinical table", zap.String("source", src))

	byPatient, err := ReadClinicalTable(rc)
	if err != nil {
		return 0, fmt.Errorf("parse clinical table: %w", err)
	}
	if len(byPatient) == 0 {
		s.Log.Warn("clinical table has no usable rows")
		return 0, nil
	}

	updated, err := s.Docs.UpdateClinical(ctx, byPatient)
	if err != nil {
		return 0, fmt.Errorf("update clinical: %w", err)
	}
	metrics.ClinicalUpdates.Add(float64(updated))
	s.Log.Info("join stage complete",
		zap.Int("patients_in_table", len(byPatient)), zap.Int("documents_updated", updated))
	return int64(updated), nil
}

// open prefers the object store copy and falls back to local paths.
func (s *Stage) open(ctx context.Context) (io.ReadCloser, string, error) {
	if s.Key != "" {
		if _, rc, err := s.Blobs.Get(ctx, s.Key); err == nil {
			return rc, "object:" + s.Key, nil
		}
	}
	for _, p := range s.LocalPaths {
		if f, err := os.Open(p); err == nil {
			return f, "file:" + p, nil
		}
	}
	return nil, "", fmt.Errorf("clinical table not found (key %q, paths %v)", s.Key, s.LocalPaths)
}

// ReadClinicalTable parses a clinical TSV into a patient-to-clinical map.
// Rows without a recognizable barcode or without any clinical values are
// dropped. When a patient appears more than once the last row wins.
func ReadClinicalTable(r io.Reader) (map[string]domain.Clinical, error) {
	header, rows, err := tsv.ReadTable(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Clinical)
	for _, row := range rows {
		patientID := domain.BarcodeFromRow(header, row)
		if patientID == "" {
			continue
		}
		c := domain.ClinicalFromRow(header, row)
		if c.IsZero() {
			continue
		}
		out[patientID] = c
	}
	return out, nil
}
