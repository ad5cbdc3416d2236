// Package sqldocs exposes the pipeline's SQL schemas directly from the
// docs tree so the storage drivers and the documentation cannot drift.
package sqldocs

import (
	_ "embed"
	"strings"
)

// Postgres contains the patient_documents DDL used by the postgres
// document store driver.
//
//go:embed postgres.sql
var Postgres string

// SQLite contains the run-ledger DDL used by the sqlite ledger.
//
//go:embed sqlite.sql
var SQLite string

// Statements splits a bundle into individual executable statements,
// dropping comments and blank fragments. Drivers that cannot execute
// multi-statement strings run these one at a time.
func Statements(bundle string) []string {
	var clean []string
	for _, line := range strings.Split(bundle, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		clean = append(clean, line)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(clean, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
