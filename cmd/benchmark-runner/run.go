package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crud-benchmark/internal/config"
	"crud-benchmark/internal/database"
	"crud-benchmark/internal/generator"
	"crud-benchmark/internal/results"
	"crud-benchmark/internal/runner"
	"crud-benchmark/internal/vocab"
)

type runFlags struct {
	kinds    []string
	queries  []string
	runs     int
	output   string
	teardown bool
}

func runCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark in-process against the configured backend and write sample and median files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := global.logger()
			if err != nil {
				return err
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if flags.runs > 0 {
				cfg.Benchmark.Runs = flags.runs
			}
			if flags.output != "" {
				cfg.Benchmark.OutputDir = flags.output
			}
			return runBenchmark(cmd.Context(), cfg, flags, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&flags.kinds, "kind", []string{"insert", "delete", "update", "query"}, "operation kinds to benchmark")
	cmd.Flags().StringSliceVar(&flags.queries, "query", nil, "named queries for the query kind (all of them when empty)")
	cmd.Flags().IntVar(&flags.runs, "runs", 0, "repetitions per kind (overrides benchmark.runs)")
	cmd.Flags().StringVar(&flags.output, "output-dir", "", "directory for result files (overrides benchmark.output_dir)")
	cmd.Flags().BoolVar(&flags.teardown, "teardown", false, "drop the benchmark tables when done")
	return cmd
}

// job is one labelled sequence of runs; query kinds expand to one job per
// named query.
type job struct {
	label string
	kind  runner.Kind
	spans []int
	query runner.QueryFunc
}

func buildJobs(b config.Benchmark, kinds, queryNames []string, queries map[string]runner.QueryFunc) ([]job, error) {
	if len(queryNames) == 0 {
		queryNames = runner.QueryNames(queries)
	}
	var jobs []job
	for _, name := range kinds {
		kind, err := runner.ParseKind(name)
		if err != nil {
			return nil, err
		}
		spans, err := b.SpansFor(name)
		if err != nil {
			return nil, err
		}
		if kind != runner.KindQuery {
			jobs = append(jobs, job{label: name, kind: kind, spans: spans})
			continue
		}
		for _, q := range queryNames {
			fn, ok := queries[q]
			if !ok {
				return nil, fmt.Errorf("unknown query %q (have %s)", q, strings.Join(runner.QueryNames(queries), ", "))
			}
			jobs = append(jobs, job{label: "query_" + q, kind: kind, spans: spans, query: fn})
		}
	}
	return jobs, nil
}

func newGenerator(b config.Benchmark, set vocab.Set) *generator.Generator {
	seed := b.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var policy generator.TimestampPolicy = generator.DefaultWindow
	if b.Timestamps == config.TimestampsJitter {
		policy = generator.NewJitter()
	}
	return generator.NewSeeded(set, seed, generator.WithTimestamps(policy))
}

func runBenchmark(ctx context.Context, cfg *config.Config, flags *runFlags, logger *log.Logger, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.New().String()
	entry := logger.WithFields(log.Fields{"run_id": runID, "driver": cfg.Backend.Driver})

	db, err := database.Open(ctx, cfg.Backend, database.Options{ChunkSize: cfg.Benchmark.ChunkSize})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Backend.Driver, err)
	}
	defer db.Close()

	set := vocab.Default()
	if err := db.Setup(ctx, set); err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	if flags.teardown {
		defer func() {
			if err := db.Teardown(context.Background()); err != nil {
				entry.WithError(err).Error("failed to teardown database")
			}
		}()
	}

	jobs, err := buildJobs(cfg.Benchmark, flags.kinds, flags.queries, runner.Queries(db, set))
	if err != nil {
		return err
	}

	r := runner.New(db, newGenerator(cfg.Benchmark, set), runner.WithLogger(entry))
	dir := filepath.Join(cfg.Benchmark.OutputDir, runID)

	for _, j := range jobs {
		jobLog := entry.WithField("job", j.label)
		var pooled []results.Sample
		for i := 1; i <= cfg.Benchmark.Runs; i++ {
			jobLog.WithField("iteration", i).Info("starting run")
			samples, err := r.Run(ctx, j.kind, j.spans, j.query)
			if err != nil {
				return fmt.Errorf("%s run %d: %w", j.label, i, err)
			}
			pooled = append(pooled, samples...)
		}

		if err := results.WriteJSON(filepath.Join(dir, j.label+"_raw.json"), pooled); err != nil {
			return err
		}
		if err := results.WriteJSON(filepath.Join(dir, j.label+"_med.json"), results.Reduce(pooled)); err != nil {
			return err
		}
		results.FormatText(out, fmt.Sprintf("%s on %s (%d runs)", j.label, cfg.Backend.Driver, cfg.Benchmark.Runs), results.Summarize(pooled))
	}

	entry.WithField("dir", dir).Info("results written")
	return nil
}
