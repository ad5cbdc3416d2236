// Package docstore selects and constructs the patient-document store
// backend. MongoDB is the production backend; Postgres (JSONB) and an
// in-memory map are provided for alternate deployments and tests.
package docstore

import (
	"context"
	"fmt"

	"tcgapipe/internal/config"
	infraMem "tcgapipe/internal/infra/docstore/memory"
	infraMongo "tcgapipe/internal/infra/docstore/mongo"
	infraPG "tcgapipe/internal/infra/docstore/postgres"
	"tcgapipe/pkg/domain"
)

// Store is the document-store surface the pipeline stages and the patient
// lookup use.
type Store interface {
	// BulkUpsert writes documents keyed by their ID, replacing existing
	// ones, and returns the number of documents written.
	BulkUpsert(ctx context.Context, docs []domain.PatientDocument) (int, error)
	// UpdateClinical sets the clinical record on every document whose
	// patient_id appears in the map, returning the number updated.
	UpdateClinical(ctx context.Context, byPatient map[string]domain.Clinical) (int, error)
	// FindByPatientID looks a document up by exact patient_id, falling back
	// to an ID-suffix match ("<COHORT>:<id>"). Returns
	// domain.ErrPatientNotFound when nothing matches.
	FindByPatientID(ctx context.Context, patientID string) (domain.PatientDocument, error)
	// Count returns the total number of documents.
	Count(ctx context.Context) (int64, error)
	// CountWithClinical returns how many documents carry clinical data.
	CountWithClinical(ctx context.Context) (int64, error)
	// CohortCounts returns document counts grouped by cancer cohort.
	CohortCounts(ctx context.Context) (map[string]int64, error)
	// GeneValues returns every stored expression value for one gene,
	// optionally restricted to a cohort ("" for all).
	GeneValues(ctx context.Context, gene, cohort string) ([]float64, error)
	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// Compile-time contract assertions for every backend.
var (
	_ Store = (*infraMongo.Store)(nil)
	_ Store = (*infraPG.Store)(nil)
	_ Store = (*infraMem.Store)(nil)
)

// Open constructs the store selected by cfg.DocDriver: mongo (default),
// postgres, or memory.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.DocDriver {
	case "mongo", "":
		return infraMongo.New(ctx, infraMongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case "postgres":
		return infraPG.New(ctx, cfg.Mongo.PostgresDSN)
	case "memory":
		return infraMem.New(), nil
	default:
		return nil, fmt.Errorf("unknown document driver %q", cfg.DocDriver)
	}
}
