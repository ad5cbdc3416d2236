package domain

import "testing"

func TestClinicalFromRow(t *testing.T) {
	header := []string{"bcr_patient_barcode", "OS", "OS.time", "ajcc_pathologic_tumor_stage", "gender", "vital_status"}
	row := map[string]string{
		"bcr_patient_barcode":         "TCGA-AR-A1AK",
		"OS":                          "1",
		"OS.time":                     "1432",
		"ajcc_pathologic_tumor_stage": "Stage IIA",
		"gender":                      "FEMALE",
		"vital_status":                "Dead",
	}
	c := ClinicalFromRow(header, row)
	if c.OS != "1" || c.OSTime != "1432" {
		t.Fatalf("survival fields not mapped: %+v", c)
	}
	if c.ClinicalStage != "Stage IIA" {
		t.Fatalf("stage not mapped from ajcc column: %+v", c)
	}
	if c.Gender != "FEMALE" || c.VitalStatus != "Dead" {
		t.Fatalf("demographics not mapped: %+v", c)
	}
	if c.DSS != "" || c.Race != "" {
		t.Fatalf("absent columns should stay empty: %+v", c)
	}
}

func TestClinicalFromRowFirstSourceWins(t *testing.T) {
	// Both a preferred and a fallback stage column present: the preferred
	// one is consulted even when empty, and the fallback ignored.
	header := []string{"ajcc_pathologic_tumor_stage", "clinical_stage"}
	c := ClinicalFromRow(header, map[string]string{
		"ajcc_pathologic_tumor_stage": "NA",
		"clinical_stage":              "Stage I",
	})
	if c.ClinicalStage != "" {
		t.Fatalf("expected empty stage when preferred column is NA, got %q", c.ClinicalStage)
	}
}

func TestClinicalFromRowDropsMissingMarkers(t *testing.T) {
	header := []string{"gender", "race", "tumor_status"}
	c := ClinicalFromRow(header, map[string]string{
		"gender":       "nan",
		"race":         "  ",
		"tumor_status": "NULL",
	})
	if !c.IsZero() {
		t.Fatalf("missing-value markers should be dropped: %+v", c)
	}
}

func TestBarcodeFromRow(t *testing.T) {
	header := []string{"extra", "bcr_patient_barcode"}
	row := map[string]string{"extra": "x", "bcr_patient_barcode": "TCGA-AB-1234-01A"}
	if got := BarcodeFromRow(header, row); got != "TCGA-AB-1234" {
		t.Fatalf("barcode column not used: %q", got)
	}
}

func TestBarcodeFromRowFallsBackToFirstColumn(t *testing.T) {
	header := []string{"sample_code", "value"}
	row := map[string]string{"sample_code": "TCGA-CD-5678-01", "value": "7"}
	if got := BarcodeFromRow(header, row); got != "TCGA-CD-5678" {
		t.Fatalf("first-column fallback failed: %q", got)
	}
	if got := BarcodeFromRow(header, map[string]string{"sample_code": "nan"}); got != "" {
		t.Fatalf("expected empty barcode for missing value, got %q", got)
	}
}
