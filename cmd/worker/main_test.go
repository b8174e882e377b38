package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = "date,description,amount\n2025-11-01,Uber ride,-12.00\n2025-11-02,Coffee,-3.20\n"

func TestListSources(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(statement), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	got, err := listSources(ctx, nil, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, got)

	got, err = listSources(ctx, nil, filepath.Join(dir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.csv")}, got)

	_, err = listSources(ctx, nil, filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = listSources(ctx, nil, "gs://bank/2025/")
	assert.Error(t, err)

	store := gcs.NewMemoryStorage()
	require.NoError(t, store.Upload(ctx, "gs://bank/2025/nov.csv", []byte(statement), "text/csv"))
	got, err = listSources(ctx, store, "gs://bank/2025/")
	require.NoError(t, err)
	assert.Equal(t, []string{"gs://bank/2025/nov.csv"}, got)
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "nov.csv")
	bad := filepath.Join(dir, "broken.csv")
	require.NoError(t, os.WriteFile(good, []byte(statement), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("foo,bar\n1,2\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	kit := tools.New(tools.Options{OutputDir: outDir})
	results, err := runBatch(context.Background(), kit, []string{good, bad}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, good, results[0].Source)
	assert.Equal(t, jobs.JobStatusCompleted, results[0].Status)
	assert.Equal(t, filepath.Join(outDir, "nov"), results[0].OutputDir)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, 2, results[0].Result.Transactions)

	assert.Equal(t, jobs.JobStatusFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "Found columns: [foo, bar]")

	_, err = os.Stat(filepath.Join(outDir, "nov", "categorized_transactions.csv"))
	assert.NoError(t, err)
}

func TestSourceStem(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"data/statement.csv", "statement"},
		{"gs://bank/2025/nov.CSV", "nov"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := sourceStem(tt.source); got != tt.want {
			t.Errorf("sourceStem(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
