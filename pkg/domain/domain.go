// Package domain defines the core entities of the TCGA expression pipeline:
// cohorts, the cGAS-STING gene panel, sample barcodes and the patient
// document shape shared by every stage and storage backend.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPatientNotFound is returned by document store lookups that match no
// document.
var ErrPatientNotFound = errors.New("patient not found")

// PanelGenes is the cGAS-STING pathway panel retained by the transform
// stage. CXCL8 is folded into IL8 (HGNC renamed the gene; TCGA matrices may
// carry either symbol).
var PanelGenes = []string{
	"C6orf150", "CCL5", "CXCL10", "TMEM173", "CXCL9", "CXCL11",
	"NFKB1", "IKBKE", "IRF3", "TREX1", "ATM", "IL6", "IL8",
}

// Cohorts lists every TCGA cohort code the pipeline knows how to fetch.
var Cohorts = []string{
	"BRCA", "LUAD", "COAD", "GBM", "LAML", "ACC",
	"CHOL", "BLCA", "CESC", "UCEC", "ESCA", "HNSC",
	"KICH", "KIRC", "KIRP", "DLBC", "LIHC", "LGG",
	"LUNG", "LUSC", "SKCM", "MESO", "UVM", "OV", "PAAD",
	"PCPG", "PRAD", "READ", "SARC", "STAD", "TGCT", "THYM", "THCA", "UCS",
}

// UnknownCohort labels samples whose cohort cannot be determined.
const UnknownCohort = "UNKNOWN"

// CanonicalGene maps gene synonyms onto the panel symbol. Unknown genes map
// to themselves.
func CanonicalGene(symbol string) string {
	if symbol == "CXCL8" {
		return "IL8"
	}
	return symbol
}

// IsPanelGene reports whether symbol (or a synonym of it) belongs to the
// cGAS-STING panel.
func IsPanelGene(symbol string) bool {
	canon := CanonicalGene(symbol)
	for _, g := range PanelGenes {
		if g == canon {
			return true
		}
	}
	return false
}

// IsKnownCohort reports whether code is one of the configured TCGA cohorts.
func IsKnownCohort(code string) bool {
	for _, c := range Cohorts {
		if c == code {
			return true
		}
	}
	return false
}

// PatientID trims a TCGA sample barcode (TCGA-XX-YYYY-...) down to the
// patient portion (TCGA-XX-YYYY). Barcodes that do not follow the TCGA
// layout are returned unchanged.
func PatientID(barcode string) string {
	parts := strings.Split(barcode, "-")
	if len(parts) >= 3 && parts[0] == "TCGA" {
		return strings.Join(parts[:3], "-")
	}
	return barcode
}

// DocumentID builds the document store primary key for a cohort/patient
// pair, matching the layout used for clinical matching.
func DocumentID(cohort, patientID string) string {
	return fmt.Sprintf("%s:%s", cohort, patientID)
}

// Clinical is the canonical clinical record attached to a patient document
// after the join stage. Field names mirror the TCGA survival supplement.
type Clinical struct {
	DSS               string `bson:"DSS,omitempty" json:"DSS,omitempty"`
	DSSTime           string `bson:"DSS_time,omitempty" json:"DSS_time,omitempty"`
	OS                string `bson:"OS,omitempty" json:"OS,omitempty"`
	OSTime            string `bson:"OS_time,omitempty" json:"OS_time,omitempty"`
	ClinicalStage     string `bson:"clinical_stage,omitempty" json:"clinical_stage,omitempty"`
	AgeAtDiagnosis    string `bson:"age_at_diagnosis,omitempty" json:"age_at_diagnosis,omitempty"`
	Gender            string `bson:"gender,omitempty" json:"gender,omitempty"`
	Race              string `bson:"race,omitempty" json:"race,omitempty"`
	VitalStatus       string `bson:"vital_status,omitempty" json:"vital_status,omitempty"`
	TumorStatus       string `bson:"tumor_status,omitempty" json:"tumor_status,omitempty"`
	HistologicalType  string `bson:"histological_type,omitempty" json:"histological_type,omitempty"`
	HistologicalGrade string `bson:"histological_grade,omitempty" json:"histological_grade,omitempty"`
}

// IsZero reports whether no clinical field is populated.
func (c Clinical) IsZero() bool { return c == Clinical{} }

// PatientDocument is one sample's expression record plus any joined
// clinical data. ID is "<COHORT>:<TCGA-XX-YYYY>".
type PatientDocument struct {
	ID           string             `bson:"_id" json:"_id"`
	PatientID    string             `bson:"patient_id" json:"patient_id"`
	SampleID     string             `bson:"sample_id" json:"sample_id"`
	CancerCohort string             `bson:"cancer_cohort" json:"cancer_cohort"`
	Genes        map[string]float64 `bson:"genes" json:"genes"`
	Clinical     Clinical           `bson:"clinical,omitempty" json:"clinical,omitempty"`
}

// NewPatientDocument assembles a document for one sample barcode within a
// cohort. NaN filtering of gene values is the caller's concern.
func NewPatientDocument(cohort, sampleID string, genes map[string]float64) PatientDocument {
	pid := PatientID(sampleID)
	if cohort == "" {
		cohort = UnknownCohort
	}
	return PatientDocument{
		ID:           DocumentID(cohort, pid),
		PatientID:    pid,
		SampleID:     sampleID,
		CancerCohort: cohort,
		Genes:        genes,
	}
}
