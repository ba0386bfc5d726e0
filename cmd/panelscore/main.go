package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"panelscore/adapters/memory"
	"panelscore/adapters/postgres"
	"panelscore/adapters/raters"
	"panelscore/domain/eval"
	"panelscore/internal"
	"panelscore/internal/analysis"
	"panelscore/internal/collect"
	"panelscore/internal/config"
	"panelscore/internal/errors"
	"panelscore/internal/parse"
	"panelscore/internal/report"
	"panelscore/models"
	"panelscore/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:   "panelscore",
		Short: "Multi-rater evaluation pipeline: collect, parse, and score rubric panels",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newCollectCmd(),
		newParseCmd(),
		newAnalyzeCmd(),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect the full batch, then analyze and write reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.collect(cmd.Context()); err != nil {
				return err
			}
			return env.analyzeAndReport(cmd.Context())
		},
	}
	return cmd
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Submit rater calls for every panel, skipping completed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			defer env.Close()
			return env.collect(cmd.Context())
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Re-parse stored responses and print conformance",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			results, err := env.parseStored(cmd.Context())
			if err != nil {
				return err
			}

			valid := 0
			for _, r := range results {
				if r.Success {
					valid++
					continue
				}
				fmt.Printf("%s: FAILED\n", r.RunID)
				for _, e := range r.Errors {
					fmt.Printf("  error: %s\n", e)
				}
			}
			for _, r := range results {
				for _, w := range r.Warnings {
					fmt.Printf("%s: warning: %s\n", r.RunID, w)
				}
			}
			if len(results) == 0 {
				fmt.Println("no stored responses")
				return nil
			}
			fmt.Printf("%d/%d responses parsed (%.0f%% conformance)\n",
				valid, len(results), float64(valid)/float64(len(results))*100)
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "analyze",
		Aliases: []string{"report"},
		Short:   "Run the agreement analysis over stored responses and write reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			defer env.Close()
			return env.analyzeAndReport(cmd.Context())
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show batch progress and spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			records, err := env.store.List(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to list call records")
			}

			expected := len(models.Panels) * len(models.AllRaters) * env.cfg.Run.TrialsPerRater
			done, failed := 0, 0
			cost := 0.0
			for _, rec := range records {
				cost += rec.CostUSD
				if rec.Failed {
					failed++
				} else {
					done++
				}
			}
			fmt.Printf("calls: %d/%d complete, %d failed\n", done, expected, failed)
			fmt.Printf("spend: $%.2f\n", cost)
			return nil
		},
	}
}

// env carries the wired dependencies shared by every subcommand.
type env struct {
	cfg    *config.Config
	store  ports.ResultStore
	db     *sqlx.DB
	logger *internal.Logger
}

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: internal.NewDefaultLogger()}
	if cfg.Database.URL == "" {
		e.logger.Warn("DATABASE_URL not set, call records will not survive this process")
		e.store = memory.NewResultStore()
		return e, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	repo := postgres.NewResultRepository(db).(*postgres.ResultRepositoryImpl)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to prepare schema")
	}
	e.db = db
	e.store = repo
	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

func (e *env) collect(ctx context.Context) error {
	active := make([]models.RaterConfig, 0, len(models.AllRaters))
	clients := make(map[models.Provider]ports.RaterClient)
	for _, rater := range models.AllRaters {
		key := e.cfg.Raters.KeyFor(string(rater.Provider))
		if key == "" {
			e.logger.Warn("%s not set, %s will be skipped", rater.EnvVar, rater.DisplayName)
			continue
		}
		client, err := raters.ForConfig(rater, key)
		if err != nil {
			return err
		}
		clients[rater.Provider] = client
		if e.cfg.Run.MaxOutputTokens > 0 {
			rater.MaxOutputTokens = e.cfg.Run.MaxOutputTokens
		}
		active = append(active, rater)
	}

	collector := collect.NewCollector(clients, e.store,
		collect.FilePrompts{Dir: e.cfg.Run.PromptsDir}, e.cfg.Run.TrialsPerRater, e.logger)
	_, err := collector.Run(ctx, active, models.Panels)
	return err
}

func (e *env) parseStored(ctx context.Context) ([]eval.ParseResult, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list call records")
	}
	return parse.BatchN(ctx, parse.FromRecords(records), e.cfg.Run.ParseWorkers)
}

func (e *env) analyzeAndReport(ctx context.Context) error {
	records, err := e.store.List(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list call records")
	}
	results, err := parse.BatchN(ctx, parse.FromRecords(records), e.cfg.Run.ParseWorkers)
	if err != nil {
		return err
	}

	full := analysis.Analyze(results, models.Panels)
	fmt.Printf("overall: %.1f [%.1f, %.1f] over %d evaluations (%.0f%% conformance)\n",
		full.GrandComposite, full.GrandCompositeCI.Lower, full.GrandCompositeCI.Upper,
		full.TotalEvaluations, full.ConformanceRate*100)

	reporter := report.NewReporter(e.cfg.Report.OutputDir, e.logger)
	return reporter.WriteAll(full, records)
}
