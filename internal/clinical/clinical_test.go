package clinical

import (
	"context"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	memblob "tcgapipe/internal/infra/blob/memory"
	memdoc "tcgapipe/internal/infra/docstore/memory"
	"tcgapipe/pkg/domain"
)

const clinicalTSV = "bcr_patient_barcode\tgender\tvital_status\tOS.time\n" +
	"TCGA-AB-1234-01\tFEMALE\tAlive\t1200\n" +
	"TCGA-CD-5678\tMALE\tDead\t300\n" +
	"\tMALE\tDead\t1\n"

func TestReadClinicalTable(t *testing.T) {
	got, err := ReadClinicalTable(strings.NewReader(clinicalTSV))
	if err != nil {
		t.Fatalf("ReadClinicalTable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("patients = %d, want 2", len(got))
	}
	c, ok := got["TCGA-AB-1234"]
	if !ok {
		t.Fatal("barcode should be trimmed to the patient id")
	}
	if c.Gender != "FEMALE" || c.OSTime != "1200" {
		t.Fatalf("unexpected clinical row: %+v", c)
	}
}

func TestRunJoinsClinical(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()
	if _, err := blobs.Put(ctx, "data/clinical.tsv", strings.NewReader(clinicalTSV), blob.PutOptions{}); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	docs := memdoc.New()
	seed := []domain.PatientDocument{
		domain.NewPatientDocument("BRCA", "TCGA-AB-1234-01", map[string]float64{"IL8": 1}),
		domain.NewPatientDocument("GBM", "TCGA-ZZ-0000-01", map[string]float64{"IL8": 2}),
	}
	if _, err := docs.BulkUpsert(ctx, seed); err != nil {
		t.Fatalf("seed docs: %v", err)
	}

	stage := &Stage{Blobs: blobs, Docs: docs, Key: "data/clinical.tsv", Log: zap.NewNop()}
	n, err := stage.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("updated = %d, want 1", n)
	}
	doc, err := docs.FindByPatientID(ctx, "TCGA-AB-1234")
	if err != nil {
		t.Fatalf("FindByPatientID: %v", err)
	}
	if doc.Clinical.VitalStatus != "Alive" {
		t.Fatalf("clinical not joined: %+v", doc.Clinical)
	}
	other, err := docs.FindByPatientID(ctx, "TCGA-ZZ-0000")
	if err != nil {
		t.Fatalf("FindByPatientID: %v", err)
	}
	if !other.Clinical.IsZero() {
		t.Fatalf("unmatched patient should stay without clinical: %+v", other.Clinical)
	}
}

func TestRunLocalFallback(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/clinical.tsv"
	if err := os.WriteFile(path, []byte(clinicalTSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	docs := memdoc.New()
	if _, err := docs.BulkUpsert(context.Background(), []domain.PatientDocument{
		domain.NewPatientDocument("LUAD", "TCGA-CD-5678-01", map[string]float64{"IL8": 3}),
	}); err != nil {
		t.Fatalf("seed docs: %v", err)
	}

	stage := &Stage{
		Blobs:      memblob.New(),
		Docs:       docs,
		Key:        "data/missing.tsv",
		LocalPaths: []string{dir + "/nope.tsv", path},
		Log:        zap.NewNop(),
	}
	n, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("updated = %d, want 1 via local fallback", n)
	}
}

func TestRunMissingTableIsNotFatal(t *testing.T) {
	stage := &Stage{Blobs: memblob.New(), Docs: memdoc.New(), Key: "data/missing.tsv", Log: zap.NewNop()}
	n, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("updated = %d, want 0", n)
	}
}
