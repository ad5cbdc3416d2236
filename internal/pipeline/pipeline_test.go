package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"tcgapipe/internal/ledger"
)

func named(name string, items int64, err error, calls *[]string) Stage {
	return Func{StageName: name, Fn: func(context.Context) (int64, error) {
		*calls = append(*calls, name)
		return items, err
	}}
}

func TestRunnerOrder(t *testing.T) {
	var calls []string
	r := &Runner{
		Stages: []Stage{
			named("download", 1, nil, &calls),
			named("transform", 2, nil, &calls),
			named("join", 3, nil, &calls),
			named("visualize", 4, nil, &calls),
		},
		Log:    zap.NewNop(),
		Banner: &bytes.Buffer{},
	}
	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"download", "transform", "join", "visualize"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if results[3].Items != 4 {
		t.Fatalf("last result items = %d, want 4", results[3].Items)
	}
}

func TestRunnerFailFast(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := &Runner{
		Stages: []Stage{
			named("download", 0, boom, &calls),
			named("transform", 0, nil, &calls),
		},
		Log:    zap.NewNop(),
		Banner: &bytes.Buffer{},
	}
	_, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want download only", calls)
	}
}

func TestRunnerKeepGoing(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := &Runner{
		Stages: []Stage{
			named("download", 0, boom, &calls),
			named("transform", 5, nil, &calls),
		},
		KeepGoing: true,
		Log:       zap.NewNop(),
		Banner:    &bytes.Buffer{},
	}
	_, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("err = %v, want nil when the last stage succeeds", err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want both stages", calls)
	}
}

func TestRunnerKeepGoingLastFails(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := &Runner{
		Stages: []Stage{
			named("download", 1, nil, &calls),
			named("visualize", 0, boom, &calls),
		},
		KeepGoing: true,
		Log:       zap.NewNop(),
		Banner:    &bytes.Buffer{},
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom from the last stage", err)
	}
}

func TestRunnerBanner(t *testing.T) {
	var calls []string
	var out bytes.Buffer
	r := &Runner{
		Stages: []Stage{named("download", 1, nil, &calls)},
		Log:    zap.NewNop(),
		Banner: &out,
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "[1/1] download") {
		t.Fatalf("banner output = %q", out.String())
	}
}

func TestRunnerLedger(t *testing.T) {
	led, err := ledger.Open(t.TempDir() + "/pipeline.db")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = led.Close() })

	var calls []string
	boom := errors.New("boom")
	r := &Runner{
		Stages: []Stage{
			named("download", 7, nil, &calls),
			named("transform", 0, boom, &calls),
		},
		Ledger: led,
		Log:    zap.NewNop(),
		Banner: &bytes.Buffer{},
	}
	_, _ = r.Run(context.Background())

	runs, err := led.Runs(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Runs: %v (%d)", err, len(runs))
	}
	if runs[0].Status != "failed" {
		t.Fatalf("run status = %q, want failed", runs[0].Status)
	}
	stages, err := led.Stages(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(stages) != 2 || stages[0].Stage != "download" || stages[0].Items != 7 || stages[1].Status != "failed" {
		t.Fatalf("unexpected stage records: %+v", stages)
	}
}
