package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/lohmm-traces/internal/artifact"
	"github.com/ashureev/lohmm-traces/internal/config"
	"github.com/ashureev/lohmm-traces/internal/corpus"
	"github.com/ashureev/lohmm-traces/internal/domain"
	"github.com/ashureev/lohmm-traces/internal/lohmm"
	"github.com/ashureev/lohmm-traces/internal/normalize"
	"github.com/ashureev/lohmm-traces/internal/store"
)

func runNormalize(cfg *config.Config, arguments []string) int {
	flagSet := flag.NewFlagSet("normalize", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var noStore bool
	var helpFlag bool

	flagSet.StringVar(&cfg.Corpus.Dir, "corpus", cfg.Corpus.Dir, "directory holding the trace files")
	flagSet.StringVar(&cfg.Corpus.Prefix, "prefix", cfg.Corpus.Prefix, "trace file name prefix")
	flagSet.IntVar(&cfg.Corpus.First, "first", cfg.Corpus.First, "first trace file number")
	flagSet.IntVar(&cfg.Corpus.Last, "last", cfg.Corpus.Last, "last trace file number")
	flagSet.StringVar(&cfg.Output.Dir, "out", cfg.Output.Dir, "output directory")
	flagSet.IntVar(&cfg.Window, "window", cfg.Window, "positions kept after each anchor")
	flagSet.IntVar(&cfg.Workers, "workers", cfg.Workers, "normalization workers")
	flagSet.BoolVar(&noStore, "no-store", false, "do not record the run in the database")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalidInput
	}
	if helpFlag {
		printNormalizeUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		fmt.Fprintln(os.Stderr, "error: unexpected positional arguments")
		return exitInvalidInput
	}
	if noStore {
		cfg.Store.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalidInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := normalizeCorpus(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Normalization failed", "error", err)
		if errors.Is(err, os.ErrNotExist) {
			return exitInvalidInput
		}
		return exitFailure
	}

	fmt.Printf("run %s: %d sessions, %d events, %d paths (manifest %s)\n",
		rec.RunID, rec.Stats.KeptSessions, rec.Stats.Events, rec.Stats.Paths, rec.ManifestDigest)
	return exitOK
}

// normalizeCorpus runs the whole pipeline over the configured corpus, writes
// the examples, domain and manifest files and records the run when the store
// is enabled.
func normalizeCorpus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*domain.Run, error) {
	startedAt := time.Now().UTC()

	pipeline := normalize.NewPipeline(cfg.Window, logger)
	runner := corpus.NewRunner(pipeline, cfg.Workers, logger)

	sources := corpus.Sources(cfg.Corpus.Dir, cfg.Corpus.Prefix, cfg.Corpus.First, cfg.Corpus.Last)
	logger.Info("Normalizing corpus", "dir", cfg.Corpus.Dir, "sources", len(sources), "window", pipeline.Window())

	result, err := runner.Run(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("normalize corpus: %w", err)
	}

	var examples, decls bytes.Buffer
	if err := lohmm.WriteFacts(&examples, result.Sessions); err != nil {
		return nil, err
	}
	if err := lohmm.WriteDomain(&decls, result.Paths); err != nil {
		return nil, err
	}

	rec := domain.NewRun(pipeline.Window(), startedAt)
	rec.Sources = result.Sources
	rec.Stats = result.Stats

	digest, err := artifact.WriteBundle(cfg.Output.Dir, cfg.Output.ManifestFile, artifact.NewManifest(rec),
		artifact.File{Name: cfg.Output.ExamplesFile, Content: examples.Bytes()},
		artifact.File{Name: cfg.Output.DomainFile, Content: decls.Bytes()},
	)
	if err != nil {
		return nil, fmt.Errorf("write outputs: %w", err)
	}
	rec.ManifestDigest = digest
	rec.FinishedAt = time.Now().UTC()

	if cfg.Store.Enabled {
		if err := saveRun(ctx, cfg.Store.DBPath, rec, result); err != nil {
			return nil, err
		}
	}

	logger.Info("Run complete",
		"run_id", rec.RunID,
		"duration", rec.Duration(),
		"blocks", rec.Stats.Blocks,
		"misaligned", rec.Stats.MisalignedSessions,
		"no_anchor", rec.Stats.NoAnchorSessions,
		"sessions", rec.Stats.KeptSessions,
		"events", rec.Stats.Events,
		"paths", rec.Stats.Paths,
	)
	return rec, nil
}

func saveRun(ctx context.Context, dbPath string, rec *domain.Run, result *corpus.Result) error {
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.SaveRun(ctx, rec, lohmm.Stored(rec.RunID, result.Sessions), result.Paths.Sorted()); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func printNormalizeUsage() {
	fmt.Println("Usage:")
	fmt.Println("  lohmm normalize [-corpus DIR] [-prefix P] [-first N] [-last N] [-out DIR] [-window W] [-workers N] [-no-store]")
}
