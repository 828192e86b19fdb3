package ports

import "github.com/seqlab/cadence/pkg/domain"

// Inventory enumerates and resolves stimulus assets. Blocks and trials are
// enumerated eagerly for scheduling; assets are resolved lazily, one trial
// at a time, so nothing heavyweight is loaded before it is needed.
type Inventory interface {
	// ListBlocks returns the available block numbers for a design, sorted.
	ListBlocks(design domain.BlockDesign) ([]int, error)

	// ListTrials returns the ordered trial refs within a block.
	ListTrials(design domain.BlockDesign, block int) ([]domain.TrialRef, error)

	// ResolveTrial maps a trial ref to its ordered word/syllable items, cue
	// item and cue ground truth.
	ResolveTrial(ref domain.TrialRef) (*domain.TrialAssets, error)
}
