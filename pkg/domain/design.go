package domain

// BlockDesign is an immutable experiment-condition template: how many words
// a trial encodes and how many syllables each word carries.
type BlockDesign struct {
	Name             string `json:"name" yaml:"name"`
	NumWords         int    `json:"num_words" yaml:"num_words"`
	SyllablesPerWord int    `json:"syllables_per_word" yaml:"syllables_per_word"`
}

// BlockRef identifies one concrete block of a design. Block identity is the
// (design, number) pair. Word/syllable counts are denormalized so a persisted
// block order remains self-describing, matching the original data files.
type BlockRef struct {
	Design           string `json:"design"`
	Number           int    `json:"block_num"`
	NumWords         int    `json:"num_words"`
	SyllablesPerWord int    `json:"syllables_per_word"`
}

// BlockOrder is the planned sequence of blocks for a run. Every available
// block of every design appears exactly once.
type BlockOrder []BlockRef

// TrialRef locates one trial's stimulus assets inside the inventory.
// The core treats it as opaque; only the inventory adapter interprets it.
type TrialRef struct {
	Design string `json:"design"`
	Block  int    `json:"block_num"`
	Trial  string `json:"trial"`
}

// ItemRef locates a single playable stimulus item (one syllable recording).
type ItemRef struct {
	Path string `json:"path"`
	// Word and Syllable are 1-based positions within the encoded sequence.
	Word     int `json:"word"`
	Syllable int `json:"syllable"`
}

// CueInfo is the ground truth for scoring a trial: the 1-based global (word)
// and local (syllable-within-word) position of the cued item. Derived once
// per trial and immutable thereafter.
type CueInfo struct {
	Word     int `json:"word"`
	Syllable int `json:"syllable"`
}

// TrialAssets is the resolved stimulus set for one trial: the encoding items
// in presentation order, the cue item, and the cue's ground truth.
type TrialAssets struct {
	Items []ItemRef
	Cue   ItemRef
	Info  CueInfo
}
