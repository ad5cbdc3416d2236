package pipeline

import (
	"testing"

	"tcgapipe/testutil"
)

// Stages reach storage through the blob and docstore factories; concrete
// drivers stay behind them.
func TestRunnerDoesNotImportDrivers(t *testing.T) {
	for _, dir := range []string{".", "../download", "../transform", "../clinical", "../visualize"} {
		testutil.AssertNoDirectImports(t, dir, testutil.DriverImport,
			"pipeline stages must not import concrete storage drivers")
	}
}
