package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/smart-budget/internal/pipeline"
)

// PipelineRunner returns a JobHandler that executes the budget pipeline
// for each PipelineRunJob and records the run summary on the job.
func PipelineRunner(deps pipeline.Deps) JobHandler {
	return func(ctx context.Context, job Job) error {
		run, ok := job.(*PipelineRunJob)
		if !ok {
			return fmt.Errorf("PipelineRunner: unexpected job type: %T", job)
		}

		state, err := pipeline.RunBudget(ctx, run.Source, run.OutputDir, deps)
		if err != nil {
			return err
		}
		run.Result = ResultFromState(state)
		return nil
	}
}

// ResultFromState condenses a finished pipeline state.
func ResultFromState(state *pipeline.PipelineState) *RunResult {
	result := &RunResult{
		RunID:        state.RunID,
		Transactions: len(state.Transactions),
		Anomalies:    len(state.Anomalies),
		Outputs:      append([]string{}, state.Outputs...),
	}
	if len(state.Drops) > 0 {
		result.Dropped = make(map[string]int)
		for _, d := range state.Drops {
			for _, reason := range d.Reasons {
				result.Dropped[string(reason)]++
			}
		}
	}
	if state.Summary != nil {
		result.TotalSpent = state.Summary.TotalSpent
	}
	return result
}
