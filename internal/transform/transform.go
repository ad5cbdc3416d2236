// Package transform implements the second pipeline stage: parse raw
// expression matrices from the object store into per-patient documents
// and upsert them into the document store.
package transform

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/docstore"
	"tcgapipe/internal/metrics"
	"tcgapipe/internal/tsv"
	"tcgapipe/pkg/domain"
)

// rawPrefix is where the download stage stores matrices.
const rawPrefix = "tcga/"

// Stage turns stored matrices into patient documents.
type Stage struct {
	Blobs blob.Store
	Docs  docstore.Store
	Log   *zap.Logger
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "transform" }

// CohortFromKey extracts the cohort code from a raw object key of the
// form tcga/<cohort>/raw/<file>. Keys that do not follow the layout or
// carry an unrecognized code map to UnknownCohort.
func CohortFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) >= 4 && parts[0] == "tcga" && parts[2] == "raw" && domain.IsKnownCohort(parts[1]) {
		return parts[1]
	}
	return domain.UnknownCohort
}

func isMatrixKey(key string) bool {
	if !strings.Contains(key, "/raw/") {
		return false
	}
	return strings.HasSuffix(key, ".gz") || strings.HasSuffix(key, ".tsv")
}

// Run lists raw matrix objects, parses each into panel-gene samples and
// upserts one document per sample. Parse failures on a single object are
// logged and skipped so one corrupt matrix cannot sink the whole stage.
func (s *Stage) Run(ctx context.Context) (int64, error) {
	infos, err := s.Blobs.List(ctx, rawPrefix)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", rawPrefix, err)
	}

	var total int64
	var matrices int
	for _, info := range infos {
		if !isMatrixKey(info.Key) {
			continue
		}
		matrices++
		n, err := s.transformObject(ctx, info.Key)
		if err != nil {
			s.Log.Error("matrix transform failed", zap.String("key", info.Key), zap.Error(err))
			continue
		}
		total += n
	}
	if matrices == 0 {
		return 0, fmt.Errorf("no raw matrices under %s, run the download stage first", rawPrefix)
	}
	s.Log.Info("transform stage complete",
		zap.Int("matrices", matrices), zap.Int64("documents", total))
	return total, nil
}

func (s *Stage) transformObject(ctx context.Context, key string) (int64, error) {
	_, rc, err := s.Blobs.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("get: %w", err)
	}
	defer func() { _ = rc.Close() }()

	samples, err := tsv.ReadPanelSamples(rc)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if len(samples) == 0 {
		s.Log.Warn("matrix has no panel samples", zap.String("key", key))
		return 0, nil
	}

	cohort := CohortFromKey(key)
	docs := make([]domain.PatientDocument, 0, len(samples))
	for _, sample := range samples {
		docs = append(docs, domain.NewPatientDocument(cohort, sample.ID, sample.Genes))
	}
	n, err := s.Docs.BulkUpsert(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	metrics.DocumentsUpserted.Add(float64(n))
	s.Log.Info("matrix transformed",
		zap.String("key", key), zap.String("cohort", cohort), zap.Int("documents", n))
	return int64(n), nil
}
