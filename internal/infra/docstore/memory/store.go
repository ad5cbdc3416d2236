// Package memory implements an in-memory patient-document store for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tcgapipe/pkg/domain"
)

// Store keeps documents in a map keyed by document ID.
type Store struct {
	mu   sync.RWMutex
	docs map[string]domain.PatientDocument
}

// New returns an empty store.
func New() *Store { return &Store{docs: make(map[string]domain.PatientDocument)} }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// BulkUpsert replaces documents by ID.
func (s *Store) BulkUpsert(_ context.Context, docs []domain.PatientDocument) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return len(docs), nil
}

// UpdateClinical sets the clinical record on matching documents.
func (s *Store) UpdateClinical(_ context.Context, byPatient map[string]domain.Clinical) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for id, doc := range s.docs {
		clinical, ok := byPatient[doc.PatientID]
		if !ok {
			continue
		}
		doc.Clinical = clinical
		s.docs[id] = doc
		updated++
	}
	return updated, nil
}

// FindByPatientID matches patient_id first, ID suffix second.
func (s *Store) FindByPatientID(_ context.Context, patientID string) (domain.PatientDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Deterministic choice when multiple samples share the patient.
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s.docs[id].PatientID == patientID {
			return s.docs[id], nil
		}
	}
	for _, id := range ids {
		if strings.HasSuffix(id, ":"+patientID) {
			return s.docs[id], nil
		}
	}
	return domain.PatientDocument{}, fmt.Errorf("find patient %s: %w", patientID, domain.ErrPatientNotFound)
}

// Count returns the number of documents.
func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// CountWithClinical counts documents with populated clinical data.
func (s *Store) CountWithClinical(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, doc := range s.docs {
		if !doc.Clinical.IsZero() {
			n++
		}
	}
	return n, nil
}

// CohortCounts groups by cancer cohort.
func (s *Store) CohortCounts(context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, doc := range s.docs {
		counts[doc.CancerCohort]++
	}
	return counts, nil
}

// GeneValues collects one gene's values, optionally per cohort.
func (s *Store) GeneValues(_ context.Context, gene, cohort string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var values []float64
	for _, id := range ids {
		doc := s.docs[id]
		if cohort != "" && doc.CancerCohort != cohort {
			continue
		}
		if v, ok := doc.Genes[gene]; ok {
			values = append(values, v)
		}
	}
	return values, nil
}
