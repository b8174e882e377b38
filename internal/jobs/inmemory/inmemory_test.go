package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.PipelineRunJob {
	t.Helper()
	var job *jobs.PipelineRunJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(4, 2, store)

	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		run := job.(*jobs.PipelineRunJob)
		run.Result = &jobs.RunResult{RunID: "run-1", Transactions: 3, Outputs: []string{"out/a.csv"}}
		return nil
	})
	require.NoError(t, err)
	defer q.Close()

	job := &jobs.PipelineRunJob{Source: "data/statement.csv", OutputDir: "out"}
	require.NoError(t, q.PublishPipelineRun(ctx, job))
	assert.NotEmpty(t, job.JobID)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 3, done.Result.Transactions)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_FailedJobIsNotRetried(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(1, 1, store)

	var calls int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("File 'missing.csv' does not exist.")
	}))
	defer q.Close()

	job := &jobs.PipelineRunJob{Source: "missing.csv"}
	require.NoError(t, q.PublishPipelineRun(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "File 'missing.csv' does not exist.", failed.Error)

	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Stop(context.Background()))
	assert.ErrorIs(t, q.PublishPipelineRun(context.Background(), &jobs.PipelineRunJob{}), ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background(), nil), ErrQueueClosed)
	assert.NoError(t, q.Close())
}

func TestStore_GetJobNotFound(t *testing.T) {
	_, err := NewStore().GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStore_SaveRequiresID(t *testing.T) {
	assert.Error(t, NewStore().SaveJob(context.Background(), &jobs.PipelineRunJob{}))
}

func TestStore_CopiesJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	job := &jobs.PipelineRunJob{JobID: "j1", Result: &jobs.RunResult{Outputs: []string{"a"}}}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Result.Outputs[0] = "mutated"
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Result.Outputs[0])
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC)
	for i, src := range []string{"a.csv", "b.csv", "a.csv", "c.csv"} {
		status := jobs.JobStatusCompleted
		if i == 1 {
			status = jobs.JobStatusFailed
		}
		require.NoError(t, s.SaveJob(ctx, &jobs.PipelineRunJob{
			JobID:     string(rune('1' + i)),
			Source:    src,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"4", "3", "2", "1"}},
		{"by source", jobs.JobFilter{Source: "a.csv"}, []string{"3", "1"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"2"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"4", "3"}},
		{"offset", jobs.JobFilter{Offset: 3}, []string{"1"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveJob(ctx, &jobs.PipelineRunJob{JobID: "j1", Status: jobs.JobStatusPending}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	got, _ := s.GetJob(ctx, "j1")
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "j2", jobs.JobStatusRunning, ""), ErrJobNotFound)
}
