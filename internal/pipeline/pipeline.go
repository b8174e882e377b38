// Package pipeline turns a raw CSV table into canonical transactions and
// runs them through categorization, analytics and export as a sequence of
// steps.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/google/uuid"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("step", step.Name()).Msg("pipeline step failed")
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Dur("duration", time.Since(start)).Msg("pipeline step done")
	}
	return nil
}

// Deps are the collaborators of the standard budget pipeline.
type Deps struct {
	Loader      TableLoader
	Normalizer  *Normalizer
	Categorizer Categorizer
	Exporter    Exporter // nil skips the export step
}

// NewBudgetPipeline creates the standard Import → Categorize → Analyze →
// Export pipeline.
func NewBudgetPipeline(deps Deps) *Pipeline {
	steps := []PipelineStep{
		&LoadStep{Loader: deps.Loader},
		&NormalizeStep{Normalizer: deps.Normalizer},
		&CategorizeStep{Categorizer: deps.Categorizer},
		&AnalyzeStep{},
		&DetectAnomaliesStep{},
	}
	if deps.Exporter != nil {
		steps = append(steps, &ExportStep{Exporter: deps.Exporter})
	}
	return NewPipeline(steps...)
}

// RunBudget runs the standard pipeline for one source under a fresh run ID.
// The returned state is populated up to the failing step on error.
func RunBudget(ctx context.Context, source, outputDir string, deps Deps) (*PipelineState, error) {
	state := &PipelineState{
		Source:    source,
		RunID:     uuid.NewString(),
		OutputDir: outputDir,
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id": state.RunID,
		"source": source,
	})
	ctx = logger.WithContext(ctx, log)

	log.Info().Msg("starting budget run")
	if err := NewBudgetPipeline(deps).Execute(ctx, state); err != nil {
		return state, err
	}
	log.Info().Int("transactions", len(state.Transactions)).Strs("outputs", state.Outputs).Msg("budget run finished")
	return state, nil
}
