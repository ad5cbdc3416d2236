package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/config"
	memblob "tcgapipe/internal/infra/blob/memory"
	memdoc "tcgapipe/internal/infra/docstore/memory"
)

func testApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("TCGAPIPE_BLOB_DRIVER", "memory")
	t.Setenv("TCGAPIPE_DOC_DRIVER", "memory")
	t.Setenv("TCGAPIPE_LEDGER_PATH", t.TempDir()+"/pipeline.db")
	return &app{}
}

func TestPatientRequiresArgument(t *testing.T) {
	a := testApp(t)
	called := false
	a.lookup = func(context.Context, string) error { called = true; return nil }

	root := a.rootCommand()
	root.SetArgs([]string{"patient"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected usage error for missing patient id")
	}
	if called {
		t.Fatal("lookup must not run without an argument")
	}
}

func TestPatientForwardsArgumentVerbatim(t *testing.T) {
	a := testApp(t)
	var got []string
	a.lookup = func(_ context.Context, id string) error {
		got = append(got, id)
		return nil
	}

	root := a.rootCommand()
	root.SetArgs([]string{"patient", "TCGA-BH-A0B1"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(got) != 1 || got[0] != "TCGA-BH-A0B1" {
		t.Fatalf("lookup calls = %v, want exactly one with the raw id", got)
	}
}

func TestBuildStagesOrder(t *testing.T) {
	a := testApp(t)
	a.cfg = config.FromEnv()
	a.log = zap.NewNop()
	a.noScrape = true

	var blobs blob.Store = memblob.New()
	stages, cleanup := a.buildStages(allStages, blobs, memdoc.New())
	defer cleanup()

	want := []string{"download", "transform", "join", "visualize"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %d, want %d", len(stages), len(want))
	}
	for i, s := range stages {
		if s.Name() != want[i] {
			t.Fatalf("stage %d = %q, want %q", i, s.Name(), want[i])
		}
	}
}

func TestBuildStagesSingle(t *testing.T) {
	a := testApp(t)
	a.cfg = config.FromEnv()
	a.log = zap.NewNop()

	stages, cleanup := a.buildStages(stageTransform, memblob.New(), memdoc.New())
	defer cleanup()
	if len(stages) != 1 || stages[0].Name() != "transform" {
		t.Fatalf("unexpected stages for transform selection: %d", len(stages))
	}
}
