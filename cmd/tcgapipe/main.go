// Command tcgapipe drives the TCGA cGAS-STING expression pipeline:
// download raw matrices from the Xena hub, transform them into patient
// documents, join clinical survival data and render summary charts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/clinical"
	"tcgapipe/internal/config"
	"tcgapipe/internal/docstore"
	"tcgapipe/internal/download"
	"tcgapipe/internal/ledger"
	"tcgapipe/internal/metrics"
	"tcgapipe/internal/pipeline"
	"tcgapipe/internal/report"
	"tcgapipe/internal/transform"
	"tcgapipe/internal/visualize"
	"tcgapipe/internal/xena"
	"tcgapipe/pkg/domain"
)

type app struct {
	cfg config.Config
	log *zap.Logger

	// lookup is replaceable in tests; defaults to lookupPatient.
	lookup func(ctx context.Context, id string) error

	verbose       bool
	metricsListen string
	keepGoing     bool
	noScrape      bool
	jsonPath      string
	historyLimit  int
}

func main() {
	a := &app{}
	root := a.rootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tcgapipe",
		Short:         "TCGA cGAS-STING gene expression pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := buildLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			a.log = log
			a.cfg = config.FromEnv()
			if a.metricsListen != "" {
				metrics.Serve(a.metricsListen, func(err error) {
					log.Warn("metrics listener stopped", zap.Error(err))
				})
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (e.g. :9090)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run all pipeline stages in order",
		RunE:  func(cmd *cobra.Command, args []string) error { return a.runPipeline(cmd.Context(), allStages) },
	}
	run.Flags().BoolVar(&a.keepGoing, "keep-going", false, "run every stage even after a failure; exit status follows the last stage")
	run.Flags().BoolVar(&a.noScrape, "no-scrape", false, "skip the browser scraper and use mirror URLs only")

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download raw expression matrices into the object store",
		RunE:  func(cmd *cobra.Command, args []string) error { return a.runPipeline(cmd.Context(), stageDownload) },
	}
	downloadCmd.Flags().BoolVar(&a.noScrape, "no-scrape", false, "skip the browser scraper and use mirror URLs only")

	patient := &cobra.Command{
		Use:   "patient <patient-id>",
		Short: "Look up one patient document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.lookup == nil {
				a.lookup = a.lookupPatient
			}
			return a.lookup(cmd.Context(), args[0])
		},
	}
	patient.Flags().StringVar(&a.jsonPath, "json", "", "export as JSON; --json prints to stdout, --json=FILE writes a file")
	patient.Flags().Lookup("json").NoOptDefVal = "-"

	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showHistory(cmd.Context())
		},
	}
	history.Flags().IntVar(&a.historyLimit, "limit", 10, "number of runs to show")

	root.AddCommand(
		run,
		downloadCmd,
		a.stageCommand("transform", "Parse stored matrices into patient documents", stageTransform),
		a.stageCommand("join", "Join clinical survival data onto patient documents", stageJoin),
		a.stageCommand("visualize", "Render summary statistics and charts", stageVisualize),
		patient,
		history,
	)
	return root
}

func (a *app) stageCommand(name, short string, sel stageSelection) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE:  func(cmd *cobra.Command, args []string) error { return a.runPipeline(cmd.Context(), sel) },
	}
}

type stageSelection int

const (
	allStages stageSelection = iota
	stageDownload
	stageTransform
	stageJoin
	stageVisualize
)

// runPipeline wires the storage backends, builds the selected stages and
// hands them to the runner.
func (a *app) runPipeline(ctx context.Context, sel stageSelection) error {
	blobs, err := blob.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	docs, err := docstore.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = docs.Close(ctx) }()

	stages, cleanup := a.buildStages(sel, blobs, docs)
	defer cleanup()

	led, err := ledger.Open(a.cfg.LedgerPath)
	if err != nil {
		a.log.Warn("run ledger unavailable", zap.Error(err))
		led = nil
	} else {
		defer func() { _ = led.Close() }()
	}

	runner := &pipeline.Runner{
		Stages:    stages,
		KeepGoing: a.keepGoing,
		Ledger:    led,
		Log:       a.log,
	}
	_, err = runner.Run(ctx)
	return err
}

// buildStages assembles the selected stages in pipeline order. The
// returned cleanup stops the browser scraper if one was started.
func (a *app) buildStages(sel stageSelection, blobs blob.Store, docs docstore.Store) ([]pipeline.Stage, func()) {
	var stages []pipeline.Stage
	cleanup := func() {}
	if sel == allStages || sel == stageDownload {
		discoverer, stop := a.discoverer()
		cleanup = stop
		stages = append(stages, &download.Stage{
			Blobs:      blobs,
			Discoverer: discoverer,
			Cohorts:    a.cfg.Cohorts,
			Log:        a.log,
		})
	}
	if sel == allStages || sel == stageTransform {
		stages = append(stages, &transform.Stage{Blobs: blobs, Docs: docs, Log: a.log})
	}
	if sel == allStages || sel == stageJoin {
		stages = append(stages, &clinical.Stage{
			Blobs: blobs,
			Docs:  docs,
			Key:   a.cfg.ClinicalKey,
			LocalPaths: []string{
				"data/TCGA_clinical_survival_data.tsv",
				"TCGA_clinical_survival_data.tsv",
			},
			Log: a.log,
		})
	}
	if sel == allStages || sel == stageVisualize {
		stages = append(stages, &visualize.Stage{
			Docs:   docs,
			Blobs:  blobs,
			OutDir: a.cfg.PlotsDir,
			Genes:  domain.PanelGenes,
			Log:    a.log,
		})
	}
	return stages, cleanup
}

// discoverer builds the browser scraper unless scraping is disabled or the
// browser cannot start. A nil discoverer makes the download stage fall
// back to the hub mirror URLs.
func (a *app) discoverer() (xena.Discoverer, func()) {
	if a.noScrape {
		return nil, func() {}
	}
	scraper, err := xena.NewScraper(a.log)
	if err != nil {
		a.log.Warn("browser scraper unavailable, falling back to mirrors", zap.Error(err))
		return nil, func() {}
	}
	return scraper, scraper.Close
}

func (a *app) lookupPatient(ctx context.Context, rawID string) error {
	docs, err := docstore.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = docs.Close(ctx) }()

	doc, err := docs.FindByPatientID(ctx, rawID)
	if errors.Is(err, domain.ErrPatientNotFound) {
		return fmt.Errorf("patient %q not found", rawID)
	}
	if err != nil {
		return fmt.Errorf("look up patient %q: %w", rawID, err)
	}

	if a.jsonPath != "" {
		out, err := report.FormatJSON(doc)
		if err != nil {
			return err
		}
		if a.jsonPath == "-" {
			fmt.Println(out)
			return nil
		}
		if err := os.WriteFile(a.jsonPath, []byte(out+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", a.jsonPath, err)
		}
		return nil
	}
	fmt.Print(report.Format(doc))
	return nil
}

func (a *app) showHistory(ctx context.Context) error {
	led, err := ledger.Open(a.cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	runs, err := led.Runs(ctx, a.historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-7s  started %s\n",
			run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))
		stages, err := led.Stages(ctx, run.ID)
		if err != nil {
			return err
		}
		for _, st := range stages {
			line := fmt.Sprintf("    %-10s %-7s %6d items  %s", st.Stage, st.Status, st.Items, st.Duration)
			if st.Error != "" {
				line += "  " + st.Error
			}
			fmt.Println(line)
		}
	}
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
