// Package pipeline runs the ordered ETL stages and records their
// outcomes in the run ledger.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"tcgapipe/internal/ledger"
	"tcgapipe/internal/metrics"
)

// Stage is one step of the pipeline. Run returns the number of items the
// stage produced (objects stored, documents written, plots rendered).
type Stage interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Func adapts a plain function into a Stage.
type Func struct {
	StageName string
	Fn        func(ctx context.Context) (int64, error)
}

func (f Func) Name() string                           { return f.StageName }
func (f Func) Run(ctx context.Context) (int64, error) { return f.Fn(ctx) }

// Result is the outcome of one executed stage.
type Result struct {
	Stage    string
	Items    int64
	Duration time.Duration
	Err      error
}

// Runner executes stages in the order given. By default it stops at the
// first failing stage; with KeepGoing it runs every stage and reports the
// error of the last stage that was run, mirroring a shell script without
// fail-fast where the exit status is the last command's.
type Runner struct {
	Stages    []Stage
	KeepGoing bool
	Ledger    *ledger.Ledger // optional
	Log       *zap.Logger
	Banner    io.Writer // defaults to os.Stdout
}

// Run executes the configured stages and returns every result produced.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	banner := r.Banner
	if banner == nil {
		banner = os.Stdout
	}

	runID := ""
	if r.Ledger != nil {
		id, err := r.Ledger.BeginRun(ctx)
		if err != nil {
			r.Log.Warn("run ledger unavailable", zap.Error(err))
		} else {
			runID = id
		}
	}

	var results []Result
	var lastErr error
	for i, stage := range r.Stages {
		fmt.Fprintf(banner, "==== [%d/%d] %s ====\n", i+1, len(r.Stages), stage.Name())
		r.Log.Info("stage starting", zap.String("stage", stage.Name()))

		start := time.Now()
		items, err := stage.Run(ctx)
		elapsed := time.Since(start)
		metrics.ObserveStage(stage.Name(), elapsed)

		res := Result{Stage: stage.Name(), Items: items, Duration: elapsed, Err: err}
		results = append(results, res)
		r.recordStage(ctx, runID, i, res)

		if err != nil {
			r.Log.Error("stage failed",
				zap.String("stage", stage.Name()), zap.Duration("took", elapsed), zap.Error(err))
			lastErr = fmt.Errorf("stage %s: %w", stage.Name(), err)
			if !r.KeepGoing {
				break
			}
			continue
		}
		lastErr = nil
		r.Log.Info("stage complete",
			zap.String("stage", stage.Name()), zap.Int64("items", items), zap.Duration("took", elapsed))
	}

	if runID != "" {
		status := "ok"
		if lastErr != nil {
			status = "failed"
		}
		if err := r.Ledger.FinishRun(ctx, runID, status); err != nil {
			r.Log.Warn("could not finish ledger run", zap.Error(err))
		}
	}
	return results, lastErr
}

func (r *Runner) recordStage(ctx context.Context, runID string, seq int, res Result) {
	if r.Ledger == nil || runID == "" {
		return
	}
	rec := ledger.StageRecord{
		RunID:    runID,
		Stage:    res.Stage,
		Seq:      seq,
		Duration: res.Duration,
		Status:   "ok",
		Items:    res.Items,
	}
	if res.Err != nil {
		rec.Status = "failed"
		rec.Error = res.Err.Error()
	}
	if err := r.Ledger.RecordStage(ctx, rec); err != nil {
		r.Log.Warn("could not record stage", zap.String("stage", res.Stage), zap.Error(err))
	}
}
