package runtime

import (
	"fmt"
	"math/rand"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// GenerateBlockOrder builds the counterbalanced block plan across all
// designs. Deterministic up to the injected random source.
//
// Within the first m*D entries (D designs, m = smallest per-design block
// count), every run of D consecutive entries contains exactly one block per
// design: per-design shuffles are zipped into internally shuffled
// "triplets". Designs with more than m blocks contribute their remainder at
// the tail, grouped in declaration order — that tail carries no fairness
// guarantee, a known asymmetry inherited from the original design.
func GenerateBlockOrder(designs []domain.BlockDesign, inventory ports.Inventory, rng *rand.Rand) (domain.BlockOrder, error) {
	shuffled := make([][]domain.BlockRef, len(designs))
	minBlocks := -1

	for i, d := range designs {
		nums, err := inventory.ListBlocks(d)
		if err != nil {
			return nil, fmt.Errorf("failed to list blocks for design %s: %w", d.Name, err)
		}
		if len(nums) == 0 {
			return nil, fmt.Errorf("design %s: %w", d.Name, domain.ErrNoBlocks)
		}

		refs := make([]domain.BlockRef, len(nums))
		for j, n := range nums {
			refs[j] = domain.BlockRef{
				Design:           d.Name,
				Number:           n,
				NumWords:         d.NumWords,
				SyllablesPerWord: d.SyllablesPerWord,
			}
		}
		rng.Shuffle(len(refs), func(a, b int) { refs[a], refs[b] = refs[b], refs[a] })
		shuffled[i] = refs

		if minBlocks < 0 || len(refs) < minBlocks {
			minBlocks = len(refs)
		}
	}

	var order domain.BlockOrder

	for i := 0; i < minBlocks; i++ {
		triplet := make([]domain.BlockRef, len(designs))
		for j := range designs {
			triplet[j] = shuffled[j][i]
		}
		rng.Shuffle(len(triplet), func(a, b int) { triplet[a], triplet[b] = triplet[b], triplet[a] })
		order = append(order, triplet...)
	}

	for j := range designs {
		order = append(order, shuffled[j][minBlocks:]...)
	}

	return order, nil
}
