// Command worker runs the budget pipeline over every CSV in a directory or
// gs:// prefix, one job per file, on a pool of workers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/smart-budget/internal/config"
	"github.com/dvloznov/smart-budget/internal/export"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/dvloznov/smart-budget/internal/jobs/inmemory"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/tools"
)

// pollInterval is how often the job store is checked for finished runs.
const pollInterval = 100 * time.Millisecond

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		source  = flag.String("source", "", "directory, CSV file or gs:// prefix to process")
		out     = flag.String("out", cfg.OutputDir, "output directory or gs:// prefix; each source gets a subdirectory")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "number of concurrent pipeline runs")
	)
	flag.Parse()

	if *source == "" {
		log.Fatal().Msg("Error: --source is required")
	}

	log = logger.NewWithLevel(cfg.LogLevel)

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var storage gcs.StorageService
	if gcs.IsURI(*source) || gcs.IsURI(*out) || cfg.EmulatorHost != "" {
		client, err := gcs.NewClient(ctx, cfg.EmulatorHost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer client.Close()
		storage = client
	}

	opts, err := cfg.ToolkitOptions(storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rule or profile files")
	}
	opts.OutputDir = *out
	kit := tools.New(opts)

	sources, err := listSources(ctx, storage, *source)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list sources")
	}
	log.Info().Int("sources", len(sources)).Int("workers", *workers).Msg("Starting batch")

	results, err := runBatch(ctx, kit, sources, *workers)
	if err != nil {
		log.Error().Err(err).Msg("Batch interrupted")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{"runs": results, "count": len(results)}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write results")
	}

	failed := 0
	for _, job := range results {
		if job.Status != jobs.JobStatusCompleted {
			failed++
		}
	}
	log.Info().Int("completed", len(results)-failed).Int("failed", failed).Msg("Batch finished")
	if failed > 0 || err != nil {
		os.Exit(1)
	}
}

// listSources expands location into CSV sources: every .csv object under
// a gs:// prefix, every .csv file in a directory, or the file itself.
func listSources(ctx context.Context, storage gcs.StorageService, location string) ([]string, error) {
	if gcs.IsURI(location) {
		if storage == nil {
			return nil, fmt.Errorf("listSources: no storage client for %s", location)
		}
		return storage.ListCSVObjects(ctx, location)
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("listSources: %w", err)
	}
	if !info.IsDir() {
		return []string{location}, nil
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("listSources: %w", err)
	}
	var sources []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			sources = append(sources, filepath.Join(location, e.Name()))
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// runBatch publishes one pipeline run per source and waits until every run
// has finished. Results keep the order of sources.
func runBatch(ctx context.Context, kit *tools.Toolkit, sources []string, workers int) ([]*jobs.PipelineRunJob, error) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(len(sources)+1, workers, store)
	if err := queue.Start(ctx, jobs.PipelineRunner(kit.PipelineDeps())); err != nil {
		return nil, fmt.Errorf("runBatch: start workers: %w", err)
	}
	defer queue.Close()

	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		job := &jobs.PipelineRunJob{
			Source:    src,
			OutputDir: export.Join(kit.OutputDir(), sourceStem(src)),
		}
		if err := queue.PublishPipelineRun(ctx, job); err != nil {
			return nil, fmt.Errorf("runBatch: publish %s: %w", src, err)
		}
		ids = append(ids, job.JobID)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		results, done := collect(ctx, store, ids)
		if done {
			return results, nil
		}
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case <-ticker.C:
		}
	}
}

func collect(ctx context.Context, store jobs.JobStore, ids []string) ([]*jobs.PipelineRunJob, bool) {
	results := make([]*jobs.PipelineRunJob, 0, len(ids))
	done := true
	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			done = false
			continue
		}
		if job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed {
			done = false
		}
		results = append(results, job)
	}
	return results, done
}

// sourceStem names the output subdirectory of a source.
func sourceStem(source string) string {
	name := filepath.Base(source)
	if gcs.IsURI(source) {
		name = gcs.FilenameFromURI(source)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
