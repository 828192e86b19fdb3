package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// ResultStoreContractTest is a reusable suite that verifies an adapter
// complies with ports.ResultStore. Every store adapter runs it.
func ResultStoreContractTest(t *testing.T, store ports.ResultStore) {
	t.Helper()
	ctx := context.Background()

	order := domain.BlockOrder{
		{Design: "three_3_syllable_words", Number: 2, NumWords: 3, SyllablesPerWord: 3},
		{Design: "four_3_syllable_words", Number: 1, NumWords: 4, SyllablesPerWord: 3},
	}

	resp := 2
	rt := 1.25
	rec := &ports.RunRecord{
		RunID:   "contract-run",
		Subject: "s01",
		SavedAt: time.Now().UTC().Truncate(time.Second),
		Results: []domain.TrialResult{
			{
				Trial:          1,
				Design:         "three_3_syllable_words",
				Block:          2,
				TrialRef:       "trial_1",
				NumWords:       3,
				SyllablesPerWord: 3,
				CorrectGlobal:  2,
				CorrectLocal:   3,
				GlobalResponse: &resp,
				GlobalRT:       &rt,
				GlobalCorrect:  true,
				GlobalFirst:    true,
			},
			{
				Trial:    2,
				Design:   "three_3_syllable_words",
				Block:    2,
				TrialRef: "trial_2",
				// timeout on both axes: nil responses, nil RTs
			},
		},
		Config: map[string]any{"use_triggers": false},
	}

	t.Run("BlockOrder_RoundTrip", func(t *testing.T) {
		require.NoError(t, store.SaveBlockOrder(ctx, "contract-run", order))

		loaded, err := store.LoadBlockOrder(ctx, "contract-run")
		require.NoError(t, err)
		assert.Equal(t, order, loaded)
	})

	t.Run("BlockOrder_NotFound", func(t *testing.T) {
		_, err := store.LoadBlockOrder(ctx, "missing-run")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Results_RoundTrip", func(t *testing.T) {
		require.NoError(t, store.SaveResults(ctx, rec))

		loaded, err := store.LoadResults(ctx, "contract-run")
		require.NoError(t, err)
		assert.Equal(t, rec.Subject, loaded.Subject)
		assert.Equal(t, rec.Results, loaded.Results)

		// Nil responses must survive the round trip as nil, not zero.
		require.Len(t, loaded.Results, 2)
		assert.Nil(t, loaded.Results[1].GlobalResponse)
		assert.Nil(t, loaded.Results[1].GlobalRT)
	})

	t.Run("Results_OverwriteIsIncremental", func(t *testing.T) {
		grown := *rec
		grown.Results = append(append([]domain.TrialResult{}, rec.Results...), domain.TrialResult{Trial: 3, Design: "four_3_syllable_words", Block: 1})
		require.NoError(t, store.SaveResults(ctx, &grown))

		loaded, err := store.LoadResults(ctx, "contract-run")
		require.NoError(t, err)
		assert.Len(t, loaded.Results, 3)
	})

	t.Run("Results_NotFound", func(t *testing.T) {
		_, err := store.LoadResults(ctx, "missing-run")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("ListRuns", func(t *testing.T) {
		runs, err := store.ListRuns(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, "contract-run")
	})
}
