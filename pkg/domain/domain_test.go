package domain

import "testing"

func TestPatientID(t *testing.T) {
	cases := []struct {
		barcode string
		want    string
	}{
		{"TCGA-AR-A1AK-01", "TCGA-AR-A1AK"},
		{"TCGA-AR-A1AK-01A-11R-A12P-07", "TCGA-AR-A1AK"},
		{"TCGA-AR-A1AK", "TCGA-AR-A1AK"},
		{"GTEX-1117F-0226", "GTEX-1117F-0226"},
		{"not-a-barcode", "not-a-barcode"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := PatientID(tc.barcode); got != tc.want {
			t.Fatalf("PatientID(%q) = %q, want %q", tc.barcode, got, tc.want)
		}
	}
}

func TestCanonicalGene(t *testing.T) {
	if got := CanonicalGene("CXCL8"); got != "IL8" {
		t.Fatalf("CXCL8 should fold to IL8, got %q", got)
	}
	if got := CanonicalGene("TMEM173"); got != "TMEM173" {
		t.Fatalf("TMEM173 should map to itself, got %q", got)
	}
}

func TestIsPanelGene(t *testing.T) {
	for _, g := range PanelGenes {
		if !IsPanelGene(g) {
			t.Fatalf("panel gene %s not recognized", g)
		}
	}
	if !IsPanelGene("CXCL8") {
		t.Fatalf("CXCL8 synonym should be recognized")
	}
	if IsPanelGene("BRCA1") {
		t.Fatalf("BRCA1 is not in the panel")
	}
}

func TestNewPatientDocument(t *testing.T) {
	doc := NewPatientDocument("BRCA", "TCGA-AR-A1AK-01", map[string]float64{"IL6": 2.5})
	if doc.ID != "BRCA:TCGA-AR-A1AK" {
		t.Fatalf("unexpected document id %q", doc.ID)
	}
	if doc.PatientID != "TCGA-AR-A1AK" || doc.SampleID != "TCGA-AR-A1AK-01" {
		t.Fatalf("unexpected ids: %+v", doc)
	}
	if doc.CancerCohort != "BRCA" {
		t.Fatalf("unexpected cohort %q", doc.CancerCohort)
	}
	if !doc.Clinical.IsZero() {
		t.Fatalf("fresh document should have empty clinical record")
	}
}

func TestNewPatientDocumentUnknownCohort(t *testing.T) {
	doc := NewPatientDocument("", "sample-1", nil)
	if doc.CancerCohort != UnknownCohort {
		t.Fatalf("expected %s cohort, got %q", UnknownCohort, doc.CancerCohort)
	}
	if doc.ID != UnknownCohort+":sample-1" {
		t.Fatalf("unexpected id %q", doc.ID)
	}
}

func TestIsKnownCohort(t *testing.T) {
	if !IsKnownCohort("BRCA") || !IsKnownCohort("UCS") {
		t.Fatalf("expected known cohorts")
	}
	if IsKnownCohort("AR") || IsKnownCohort("") {
		t.Fatalf("TSS codes and empty strings are not cohorts")
	}
}
