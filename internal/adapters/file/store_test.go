package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/adapters/file"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
	"github.com/seqlab/cadence/pkg/ports/tests"
)

func TestFileStore_Contract(t *testing.T) {
	tests.ResultStoreContractTest(t, file.New(t.TempDir()))
}

func TestFileStore_LayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.SaveBlockOrder(ctx, "s01_abc", domain.BlockOrder{
		{Design: "three_3_syllable_words", Number: 1, NumWords: 3, SyllablesPerWord: 3},
	}))
	require.NoError(t, store.SaveResults(ctx, &ports.RunRecord{
		RunID:   "s01_abc",
		Subject: "s01",
	}))

	assert.FileExists(t, filepath.Join(dir, "s01_abc", "block_order.json"))
	assert.FileExists(t, filepath.Join(dir, "s01_abc", "results.json"))

	// No temp files left behind by the atomic write.
	entries, err := os.ReadDir(filepath.Join(dir, "s01_abc"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileStore_RewriteSurvivesCrashWindow(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	rec := &ports.RunRecord{RunID: "run", Results: []domain.TrialResult{{Trial: 1}}}
	require.NoError(t, store.SaveResults(ctx, rec))

	rec.Results = append(rec.Results, domain.TrialResult{Trial: 2})
	require.NoError(t, store.SaveResults(ctx, rec))

	loaded, err := store.LoadResults(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, loaded.Results, 2)
}
