package domain

import "strings"

// clinicalColumns maps each canonical clinical field to the source column
// names seen across TCGA clinical supplements, in preference order. The
// first populated source column wins.
var clinicalColumns = []struct {
	assign  func(*Clinical, string)
	sources []string
}{
	{func(c *Clinical, v string) { c.DSS = v }, []string{"DSS", "disease_specific_survival", "dss"}},
	{func(c *Clinical, v string) { c.DSSTime = v }, []string{"DSS.time", "disease_specific_survival_time", "dss_time"}},
	{func(c *Clinical, v string) { c.OS = v }, []string{"OS", "overall_survival", "os"}},
	{func(c *Clinical, v string) { c.OSTime = v }, []string{"OS.time", "overall_survival_time", "os_time"}},
	{func(c *Clinical, v string) { c.ClinicalStage = v }, []string{
		"ajcc_pathologic_tumor_stage", "clinical_stage", "stage", "pathologic_stage",
		"clinical_stage_grouping", "ajcc_pathologic_stage",
	}},
	{func(c *Clinical, v string) { c.AgeAtDiagnosis = v }, []string{"age_at_initial_pathologic_diagnosis", "age_at_diagnosis", "age"}},
	{func(c *Clinical, v string) { c.Gender = v }, []string{"gender", "sex"}},
	{func(c *Clinical, v string) { c.Race = v }, []string{"race", "ethnicity"}},
	{func(c *Clinical, v string) { c.VitalStatus = v }, []string{"vital_status", "status"}},
	{func(c *Clinical, v string) { c.TumorStatus = v }, []string{"tumor_status"}},
	{func(c *Clinical, v string) { c.HistologicalType = v }, []string{"histological_type", "histology"}},
	{func(c *Clinical, v string) { c.HistologicalGrade = v }, []string{"histological_grade", "grade"}},
}

// barcodeColumns are the column names, in preference order, that may carry
// the patient barcode in a clinical table.
var barcodeColumns = []string{
	"bcr_patient_barcode", "sample", "submitter_id", "Patient_ID", "patient_id", "barcode",
}

// missingValue reports whether a raw cell should be treated as absent.
func missingValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

// ClinicalFromRow builds a canonical Clinical record from one table row
// given its header. Unmapped columns are ignored.
func ClinicalFromRow(header []string, row map[string]string) Clinical {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var c Clinical
	for _, col := range clinicalColumns {
		for _, src := range col.sources {
			if !present[src] {
				continue
			}
			if v := row[src]; !missingValue(v) {
				col.assign(&c, strings.TrimSpace(v))
			}
			break
		}
	}
	return c
}

// BarcodeFromRow extracts the patient ID from a clinical row, trying the
// known barcode columns before falling back to the first column.
func BarcodeFromRow(header []string, row map[string]string) string {
	for _, col := range barcodeColumns {
		for _, h := range header {
			if h == col {
				if v := row[h]; !missingValue(v) {
					return PatientID(strings.TrimSpace(v))
				}
			}
		}
	}
	if len(header) > 0 {
		if v := row[header[0]]; !missingValue(v) {
			return PatientID(strings.TrimSpace(v))
		}
	}
	return ""
}
