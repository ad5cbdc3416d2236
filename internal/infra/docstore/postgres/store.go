// Package postgres implements the patient-document store on Postgres,
// holding each document as a JSONB value alongside indexed lookup columns.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	sqldocs "tcgapipe/docs/schema/sql"
	"tcgapipe/pkg/domain"
)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/tcga?sslmode=disable"
)

// Store persists patient documents in a single JSONB table.
type Store struct {
	db *sql.DB
}

// New opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), pings it, and ensures the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range sqldocs.Statements(sqldocs.Postgres) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close(context.Context) error { return s.db.Close() }

// BulkUpsert writes documents inside one transaction.
func (s *Store) BulkUpsert(ctx context.Context, docs []domain.PatientDocument) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO patient_documents (id, patient_id, cancer_cohort, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET patient_id = $2, cancer_cohort = $3, doc = $4`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	count := 0
	for _, doc := range docs {
		payload, err := json.Marshal(doc)
		if err != nil {
			return count, fmt.Errorf("encode %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.PatientID, doc.CancerCohort, payload); err != nil {
			return count, fmt.Errorf("upsert %s: %w", doc.ID, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

// UpdateClinical splices the clinical record into every matching document.
func (s *Store) UpdateClinical(ctx context.Context, byPatient map[string]domain.Clinical) (int, error) {
	if len(byPatient) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `UPDATE patient_documents
		SET doc = jsonb_set(doc, '{clinical}', $1::jsonb)
		WHERE patient_id = $2`)
	if err != nil {
		return 0, fmt.Errorf("prepare clinical update: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	total := 0
	for patientID, clinical := range byPatient {
		payload, err := json.Marshal(clinical)
		if err != nil {
			return total, fmt.Errorf("encode clinical %s: %w", patientID, err)
		}
		res, err := stmt.ExecContext(ctx, payload, patientID)
		if err != nil {
			return total, fmt.Errorf("update clinical %s: %w", patientID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return total, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// FindByPatientID looks up by patient_id, then by id suffix.
func (s *Store) FindByPatientID(ctx context.Context, patientID string) (domain.PatientDocument, error) {
	doc, err := s.scanOne(ctx, `SELECT doc FROM patient_documents WHERE patient_id = $1 LIMIT 1`, patientID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.PatientDocument{}, err
	}
	doc, err = s.scanOne(ctx, `SELECT doc FROM patient_documents WHERE id LIKE '%:' || $1 LIMIT 1`, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PatientDocument{}, fmt.Errorf("find patient %s: %w", patientID, domain.ErrPatientNotFound)
	}
	return doc, err
}

func (s *Store) scanOne(ctx context.Context, query, arg string) (domain.PatientDocument, error) {
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PatientDocument{}, err
		}
		return domain.PatientDocument{}, fmt.Errorf("query patient: %w", err)
	}
	var doc domain.PatientDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.PatientDocument{}, fmt.Errorf("decode patient: %w", err)
	}
	return doc, nil
}

// Count returns the table size.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM patient_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// CountWithClinical counts documents whose clinical record is non-empty.
func (s *Store) CountWithClinical(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM patient_documents WHERE doc->'clinical' IS NOT NULL AND doc->'clinical' <> '{}'::jsonb`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clinical documents: %w", err)
	}
	return n, nil
}

// CohortCounts groups document counts by cancer cohort.
func (s *Store) CohortCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cancer_cohort, count(*) FROM patient_documents GROUP BY cancer_cohort`)
	if err != nil {
		return nil, fmt.Errorf("cohort counts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	counts := make(map[string]int64)
	for rows.Next() {
		var cohort string
		var n int64
		if err := rows.Scan(&cohort, &n); err != nil {
			return nil, fmt.Errorf("scan cohort row: %w", err)
		}
		counts[cohort] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cohort rows: %w", err)
	}
	return counts, nil
}

// GeneValues selects one gene's values from the JSONB documents.
func (s *Store) GeneValues(ctx context.Context, gene, cohort string) ([]float64, error) {
	query := `SELECT (doc->'genes'->>$1)::float8 FROM patient_documents WHERE doc->'genes' ? $1`
	args := []any{gene}
	if cohort != "" {
		query += ` AND cancer_cohort = $2`
		args = append(args, cohort)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("gene values %s: %w", gene, err)
	}
	defer func() { _ = rows.Close() }()
	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan gene value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gene rows: %w", err)
	}
	return values, nil
}
