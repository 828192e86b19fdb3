package domain

// TrialResult is the immutable record of one completed trial.
// Response and reaction-time fields are pointers: nil encodes a timeout
// (no response), which is a valid outcome, not an error.
type TrialResult struct {
	Trial            int     `json:"trial"`
	Design           string  `json:"design"`
	Block            int     `json:"block_num"`
	TrialRef         string  `json:"trial_ref"`
	NumWords         int     `json:"num_words"`
	SyllablesPerWord int     `json:"syllables_per_word"`
	CorrectGlobal    int     `json:"correct_global"`
	CorrectLocal     int     `json:"correct_local"`
	GlobalResponse   *int    `json:"global_response"`
	LocalResponse    *int    `json:"local_response"`
	GlobalCorrect    bool    `json:"global_correct"`
	LocalCorrect     bool    `json:"local_correct"`
	BothCorrect      bool    `json:"both_correct"`
	GlobalRT         *float64 `json:"global_rt"`
	LocalRT          *float64 `json:"local_rt"`
	IsPractice       bool    `json:"is_practice"`
	GlobalFirst      bool    `json:"global_first"`
}

// Summary aggregates accuracy and reaction times over non-practice trials.
type Summary struct {
	Trials        int     `json:"trials"`
	GlobalAccuracy float64 `json:"global_accuracy"`
	LocalAccuracy  float64 `json:"local_accuracy"`
	BothAccuracy   float64 `json:"both_accuracy"`
	MeanGlobalRT   float64 `json:"mean_global_rt"`
	MeanLocalRT    float64 `json:"mean_local_rt"`
}
