// Package report renders a patient document as a human-readable summary
// or as JSON for export.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"tcgapipe/pkg/domain"
)

// Format renders a plain-text report: identity, clinical fields when
// present, then panel genes sorted by expression, highest first.
func Format(doc domain.PatientDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient %s\n", doc.PatientID)
	fmt.Fprintf(&b, "  Sample:  %s\n", doc.SampleID)
	fmt.Fprintf(&b, "  Cohort:  %s\n", doc.CancerCohort)

	if !doc.Clinical.IsZero() {
		b.WriteString("\nClinical\n")
		for _, f := range clinicalFields(doc.Clinical) {
			fmt.Fprintf(&b, "  %-18s %s\n", f.label+":", f.value)
		}
	}

	b.WriteString("\nExpression (log2 norm_count)\n")
	for _, g := range sortGenes(doc.Genes) {
		fmt.Fprintf(&b, "  %-10s %8.4f\n", g.name, g.value)
	}
	return b.String()
}

// FormatJSON renders the document as indented JSON.
func FormatJSON(doc domain.PatientDocument) (string, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode patient document: %w", err)
	}
	return string(out), nil
}

type geneValue struct {
	name  string
	value float64
}

// sortGenes orders by descending expression, gene name as tiebreak.
func sortGenes(genes map[string]float64) []geneValue {
	out := make([]geneValue, 0, len(genes))
	for name, v := range genes {
		out = append(out, geneValue{name, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].name < out[j].name
	})
	return out
}

type field struct {
	label string
	value string
}

func clinicalFields(c domain.Clinical) []field {
	candidates := []field{
		{"Gender", c.Gender},
		{"Race", c.Race},
		{"Age at diagnosis", c.AgeAtDiagnosis},
		{"Vital status", c.VitalStatus},
		{"Tumor status", c.TumorStatus},
		{"Clinical stage", c.ClinicalStage},
		{"Histology", c.HistologicalType},
		{"Grade", c.HistologicalGrade},
		{"OS", c.OS},
		{"OS time", c.OSTime},
		{"DSS", c.DSS},
		{"DSS time", c.DSSTime},
	}
	out := make([]field, 0, len(candidates))
	for _, f := range candidates {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}
