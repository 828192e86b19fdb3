package runtime_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/runtime"
	"github.com/seqlab/cadence/pkg/domain"
)

// stubInventory serves block and trial listings from maps.
type stubInventory struct {
	blocks map[string][]int
	trials map[string][]domain.TrialRef
}

func (s *stubInventory) ListBlocks(d domain.BlockDesign) ([]int, error) {
	return s.blocks[d.Name], nil
}

func (s *stubInventory) ListTrials(d domain.BlockDesign, block int) ([]domain.TrialRef, error) {
	return s.trials[d.Name], nil
}

func (s *stubInventory) ResolveTrial(ref domain.TrialRef) (*domain.TrialAssets, error) {
	return nil, nil
}

var testDesigns = []domain.BlockDesign{
	{Name: "three_3_syllable_words", NumWords: 3, SyllablesPerWord: 3},
	{Name: "three_4_syllable_words", NumWords: 3, SyllablesPerWord: 4},
	{Name: "four_3_syllable_words", NumWords: 4, SyllablesPerWord: 3},
}

func TestGenerateBlockOrder_EveryBlockOnce(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1, 2, 3},
		"three_4_syllable_words": {1, 2, 3},
		"four_3_syllable_words":  {1, 2, 3},
	}}

	order, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, order, 9)

	seen := make(map[domain.BlockRef]int)
	for _, b := range order {
		key := domain.BlockRef{Design: b.Design, Number: b.Number}
		seen[key]++
	}
	for ref, count := range seen {
		assert.Equal(t, 1, count, "block %v scheduled %d times", ref, count)
	}
}

func TestGenerateBlockOrder_TripletFairness(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1, 2, 3, 4},
		"three_4_syllable_words": {1, 2, 3, 4},
		"four_3_syllable_words":  {1, 2, 3, 4},
	}}

	// Every run of 3 consecutive blocks must contain exactly one block per
	// design, for any seed.
	for seed := int64(0); seed < 25; seed++ {
		order, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.Len(t, order, 12)

		for i := 0; i < len(order); i += 3 {
			names := map[string]bool{}
			for _, b := range order[i : i+3] {
				names[b.Design] = true
			}
			assert.Len(t, names, 3, "seed %d: group at %d repeats a design", seed, i)
		}
	}
}

func TestGenerateBlockOrder_UnevenInventoryTail(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1, 2},
		"three_4_syllable_words": {1, 2, 3, 4},
		"four_3_syllable_words":  {1},
	}}

	order, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Len(t, order, 7)

	// First m*D entries are fair groups (m=1, D=3 here); the remainder is a
	// per-design tail with no fairness guarantee.
	head := map[string]bool{}
	for _, b := range order[:3] {
		head[b.Design] = true
	}
	assert.Len(t, head, 3)

	counts := map[string]int{}
	for _, b := range order {
		counts[b.Design]++
	}
	assert.Equal(t, 2, counts["three_3_syllable_words"])
	assert.Equal(t, 4, counts["three_4_syllable_words"])
	assert.Equal(t, 1, counts["four_3_syllable_words"])
}

func TestGenerateBlockOrder_EmptyDesignFails(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1, 2},
		"three_4_syllable_words": {},
		"four_3_syllable_words":  {1},
	}}

	_, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoBlocks)
	assert.Contains(t, err.Error(), "three_4_syllable_words")
}

func TestGenerateBlockOrder_SeededDeterminism(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1, 2, 3},
		"three_4_syllable_words": {1, 2, 3},
		"four_3_syllable_words":  {1, 2, 3},
	}}

	a, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateBlockOrder_CarriesDesignCounts(t *testing.T) {
	inv := &stubInventory{blocks: map[string][]int{
		"three_3_syllable_words": {1},
		"three_4_syllable_words": {1},
		"four_3_syllable_words":  {1},
	}}

	order, err := runtime.GenerateBlockOrder(testDesigns, inv, rand.New(rand.NewSource(0)))
	require.NoError(t, err)

	for _, b := range order {
		if b.Design == "four_3_syllable_words" {
			assert.Equal(t, 4, b.NumWords)
			assert.Equal(t, 3, b.SyllablesPerWord)
		}
	}
}
