package report

import (
	"encoding/json"
	"strings"
	"testing"

	"tcgapipe/pkg/domain"
)

func sampleDoc() domain.PatientDocument {
	doc := domain.NewPatientDocument("BRCA", "TCGA-AB-1234-01", map[string]float64{
		"IL8":     2.5,
		"TMEM173": 7.25,
		"ATM":     0.5,
	})
	doc.Clinical = domain.Clinical{Gender: "FEMALE", VitalStatus: "Alive", OSTime: "1200"}
	return doc
}

func TestFormatSortsGenesDescending(t *testing.T) {
	out := Format(sampleDoc())
	top := strings.Index(out, "TMEM173")
	mid := strings.Index(out, "IL8")
	low := strings.Index(out, "ATM")
	if top < 0 || mid < 0 || low < 0 {
		t.Fatalf("genes missing from report:\n%s", out)
	}
	if !(top < mid && mid < low) {
		t.Fatalf("genes not sorted by expression:\n%s", out)
	}
}

func TestFormatIncludesClinical(t *testing.T) {
	out := Format(sampleDoc())
	for _, want := range []string{"Patient TCGA-AB-1234", "Cohort:  BRCA", "Gender", "FEMALE", "OS time"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Race") {
		t.Errorf("empty clinical fields should be omitted:\n%s", out)
	}
}

func TestFormatWithoutClinical(t *testing.T) {
	doc := domain.NewPatientDocument("GBM", "TCGA-CD-5678-01", map[string]float64{"IL8": 1})
	out := Format(doc)
	if strings.Contains(out, "Clinical") {
		t.Fatalf("clinical section should be absent:\n%s", out)
	}
}

func TestFormatJSONRoundTrips(t *testing.T) {
	out, err := FormatJSON(sampleDoc())
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["patient_id"] != "TCGA-AB-1234" {
		t.Fatalf("patient_id = %v", decoded["patient_id"])
	}
}
