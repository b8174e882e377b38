// Package tools exposes the budget operations as request/response calls
// that never fail past their own boundary: every call returns a Response
// with status "success" and a payload, or status "error" and a message.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/smart-budget/internal/analytics"
	"github.com/dvloznov/smart-budget/internal/categorize"
	"github.com/dvloznov/smart-budget/internal/csvload"
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/export"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/pipeline"
	"github.com/dvloznov/smart-budget/internal/schema"
)

// DefaultOutputDir is used when Options.OutputDir is empty.
const DefaultOutputDir = "output"

// Options configure a Toolkit. Zero values select the built-in profile,
// rules and currency, local-only I/O and the "output" directory.
type Options struct {
	Storage         gcs.StorageService
	Profile         *schema.Profile
	Rules           categorize.Rules
	DefaultCurrency string
	OutputDir       string
}

// Toolkit wires the loader, normalizer, categorizer and exporters together.
type Toolkit struct {
	loader      *csvload.Loader
	normalizer  *pipeline.Normalizer
	categorizer *categorize.Categorizer
	writer      *export.Writer
	storage     gcs.StorageService
	outputDir   string
}

// New creates a toolkit from opts.
func New(opts Options) *Toolkit {
	rules := opts.Rules
	if rules == nil {
		rules = categorize.DefaultRules()
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Toolkit{
		loader:      csvload.NewLoader(opts.Storage),
		normalizer:  pipeline.NewNormalizer(opts.Profile, opts.DefaultCurrency),
		categorizer: categorize.New(rules),
		writer:      export.NewWriter(opts.Storage),
		storage:     opts.Storage,
		outputDir:   outputDir,
	}
}

// OutputDir returns the default export directory.
func (k *Toolkit) OutputDir() string {
	return k.outputDir
}

// PipelineDeps returns the collaborators for a full pipeline run.
func (k *Toolkit) PipelineDeps() pipeline.Deps {
	return pipeline.Deps{
		Loader:      k.loader,
		Normalizer:  k.normalizer,
		Categorizer: k.categorizer,
		Exporter:    k.writer,
	}
}

// LoadCSVTransactions loads a local path or gs:// URI and normalizes it.
func (k *Toolkit) LoadCSVTransactions(ctx context.Context, path string) Response {
	table, err := k.loader.Load(ctx, path)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("path", path).Msg("load failed")
		return failure(err)
	}
	return k.normalize(ctx, path, table)
}

// LoadCSVSources loads several sources in order and merges them into one
// envelope. The first failing source fails the whole batch.
func (k *Toolkit) LoadCSVSources(ctx context.Context, sources []string) Response {
	merged := success()
	merged.Transactions = []domain.Transaction{}
	merged.Dropped = map[domain.DropReason]int{}
	merged.Sources = []string{}
	for _, src := range sources {
		resp := k.LoadCSVTransactions(ctx, src)
		if !resp.OK() {
			return resp
		}
		merged.Transactions = append(merged.Transactions, resp.Transactions...)
		for reason, n := range resp.Dropped {
			merged.Dropped[reason] += n
		}
		merged.Sources = append(merged.Sources, src)
	}
	count := len(merged.Transactions)
	merged.Count = &count
	return merged
}

// LoadCSVPrefix loads every CSV object under a gs:// prefix in name order.
func (k *Toolkit) LoadCSVPrefix(ctx context.Context, prefix string) Response {
	if k.storage == nil {
		return failure(&domain.IOFailure{Op: "list CSV files under", Path: prefix, Err: csvload.ErrNoStorage})
	}
	uris, err := k.storage.ListCSVObjects(ctx, prefix)
	if err != nil {
		return failure(&domain.IOFailure{Op: "list CSV files under", Path: prefix, Err: err})
	}
	if len(uris) == 0 {
		return failure(fmt.Errorf("No CSV files found under '%s'.", prefix))
	}
	log := logger.FromContext(ctx)
	log.Info().Str("prefix", prefix).Int("files", len(uris)).Msg("importing CSV batch")
	return k.LoadCSVSources(ctx, uris)
}

// LoadCSVData normalizes CSV content received in memory; name only labels logs.
func (k *Toolkit) LoadCSVData(ctx context.Context, name string, data []byte) Response {
	table, err := csvload.Parse(data)
	if err != nil {
		return failure(&domain.IOFailure{Op: "parse CSV", Path: name, Err: err})
	}
	return k.normalize(ctx, name, table)
}

func (k *Toolkit) normalize(ctx context.Context, source string, table *domain.RawTable) Response {
	log := logger.FromContext(ctx)
	result, err := k.normalizer.Normalize(table)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("schema inference failed")
		return failure(err)
	}

	count := len(result.Transactions)
	log.Info().
		Str("source", source).
		Int("transactions", count).
		Int("dropped", len(result.Drops)).
		Msg("normalized CSV")

	resp := success()
	resp.Transactions = result.Transactions
	resp.Count = &count
	resp.Dropped = result.DropCounts()
	return resp
}

// AutoCategorize fills in categories from the keyword rules.
func (k *Toolkit) AutoCategorize(_ context.Context, txs []domain.Transaction) Response {
	resp := success()
	resp.Transactions = k.categorizer.Categorize(txs)
	return resp
}

// ComputeSpendingAnalytics aggregates expense totals.
func (k *Toolkit) ComputeSpendingAnalytics(_ context.Context, txs []domain.Transaction) Response {
	summary, err := analytics.ComputeSpending(txs)
	if err != nil {
		return failure(err)
	}
	resp := success()
	resp.Analytics = summary
	return resp
}

// DetectAnomalies flags unusual transactions per category.
func (k *Toolkit) DetectAnomalies(_ context.Context, txs []domain.Transaction) Response {
	anomalies, err := analytics.DetectAnomalies(txs)
	if err != nil {
		return failure(err)
	}
	resp := success()
	resp.Anomalies = anomalies
	return resp
}

// ExportCategorizedCSV writes txs to path, or to the default file under
// the output directory when path is empty.
func (k *Toolkit) ExportCategorizedCSV(ctx context.Context, txs []domain.Transaction, path string) Response {
	if path == "" {
		path = export.Join(k.outputDir, export.TransactionsFile)
	}
	written, err := k.writer.WriteTransactionsCSV(ctx, path, txs)
	if err != nil {
		return failure(err)
	}
	resp := success()
	resp.Path = written
	return resp
}

// ExportAnalyticsJSON writes an analytics document to path, or to the
// default file under the output directory when path is empty.
func (k *Toolkit) ExportAnalyticsJSON(ctx context.Context, v any, path string) Response {
	if path == "" {
		path = export.Join(k.outputDir, export.AnalyticsFile)
	}
	written, err := k.writer.WriteAnalyticsJSON(ctx, path, v)
	if err != nil {
		return failure(err)
	}
	resp := success()
	resp.Path = written
	return resp
}

// ActiveRules lists the keyword table in match order.
func (k *Toolkit) ActiveRules() Response {
	resp := success()
	resp.Rules = k.categorizer.Rules()
	return resp
}

// ExtractTransactions accepts either a JSON array of transactions or an
// envelope object carrying a "transactions" array.
func ExtractTransactions(data []byte) ([]domain.Transaction, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Transactions json.RawMessage `json:"transactions"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("ExtractTransactions: unmarshal envelope: %w", err)
		}
		if len(envelope.Transactions) == 0 || string(envelope.Transactions) == "null" {
			return nil, domain.ErrNoTransactions
		}
		trimmed = envelope.Transactions
	}
	return domain.DecodeTransactions(trimmed)
}
