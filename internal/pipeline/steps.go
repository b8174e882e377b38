package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/smart-budget/internal/analytics"
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/export"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/schema"
)

// PipelineStep represents a single step in the budget pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Source       string
	RunID        string
	OutputDir    string
	Table        *domain.RawTable
	Binding      schema.Binding
	Drops        []RowDrop
	Transactions []domain.Transaction
	Summary      *analytics.Summary
	Anomalies    []analytics.Anomaly
	Outputs      []string
}

// LoadStep reads the CSV source into a raw table.
type LoadStep struct {
	Loader TableLoader
}

func (s *LoadStep) Name() string { return StepLoad }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	table, err := s.Loader.Load(ctx, state.Source)
	if err != nil {
		return err
	}
	state.Table = table
	return nil
}

// NormalizeStep binds columns and produces canonical transactions.
type NormalizeStep struct {
	Normalizer *Normalizer
}

func (s *NormalizeStep) Name() string { return StepNormalize }

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return fmt.Errorf("NormalizeStep: no table loaded")
	}
	result, err := s.Normalizer.Normalize(state.Table)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	for role, bound := range result.Binding {
		log.Debug().
			Str("role", string(role)).
			Str("column", bound.Name).
			Str("method", string(bound.Method)).
			Msg("bound column")
	}
	log.Info().
		Int("rows", state.Table.Len()).
		Int("transactions", len(result.Transactions)).
		Int("dropped", len(result.Drops)).
		Msg("normalized transactions")

	state.Binding = result.Binding
	state.Drops = result.Drops
	state.Transactions = result.Transactions
	return nil
}

// CategorizeStep fills in missing categories.
type CategorizeStep struct {
	Categorizer Categorizer
}

func (s *CategorizeStep) Name() string { return StepCategorize }

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Transactions = s.Categorizer.Categorize(state.Transactions)

	uncategorized := 0
	for _, tx := range state.Transactions {
		if !tx.HasCategory() {
			uncategorized++
		}
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("transactions", len(state.Transactions)).
		Int("uncategorized", uncategorized).
		Msg("categorized transactions")
	return nil
}

// AnalyzeStep computes the spending summary.
type AnalyzeStep struct{}

func (s *AnalyzeStep) Name() string { return StepAnalyze }

func (s *AnalyzeStep) Execute(ctx context.Context, state *PipelineState) error {
	summary, err := analytics.ComputeSpending(state.Transactions)
	if err != nil {
		return err
	}
	state.Summary = summary
	log := logger.FromContext(ctx)
	log.Info().Float64("total_spent", summary.TotalSpent).Msg("computed analytics")
	return nil
}

// DetectAnomaliesStep flags unusual transactions.
type DetectAnomaliesStep struct{}

func (s *DetectAnomaliesStep) Name() string { return StepDetectAnomalies }

func (s *DetectAnomaliesStep) Execute(ctx context.Context, state *PipelineState) error {
	anomalies, err := analytics.DetectAnomalies(state.Transactions)
	if err != nil {
		return err
	}
	state.Anomalies = anomalies
	log := logger.FromContext(ctx)
	log.Info().Int("anomalies", len(anomalies)).Msg("detected anomalies")
	return nil
}

// ExportStep writes the categorized CSV and the analytics JSON under the
// state's output directory.
type ExportStep struct {
	Exporter Exporter
}

func (s *ExportStep) Name() string { return StepExport }

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.OutputDir == "" {
		return fmt.Errorf("ExportStep: no output directory")
	}

	csvPath, err := s.Exporter.WriteTransactionsCSV(ctx, export.Join(state.OutputDir, export.TransactionsFile), state.Transactions)
	if err != nil {
		return err
	}
	state.Outputs = append(state.Outputs, csvPath)

	if state.Summary != nil {
		jsonPath, err := s.Exporter.WriteAnalyticsJSON(ctx, export.Join(state.OutputDir, export.AnalyticsFile), state.Summary)
		if err != nil {
			return err
		}
		state.Outputs = append(state.Outputs, jsonPath)
	}
	return nil
}
