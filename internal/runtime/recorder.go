package runtime

import (
	"sync"

	"github.com/seqlab/cadence/pkg/domain"
)

// Recorder accumulates trial results in arrival order. Append-only: no
// mutation or removal. The mutex exists for the monitor goroutine; the run
// loop itself is single-threaded.
type Recorder struct {
	mu      sync.Mutex
	results []domain.TrialResult
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds one result to the log.
func (r *Recorder) Append(res domain.TrialResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Snapshot returns a copy of the accumulated results. Two snapshots without
// an intervening append are equal.
func (r *Recorder) Snapshot() []domain.TrialResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TrialResult, len(r.results))
	copy(out, r.results)
	return out
}

// Len reports the number of recorded results.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Summary aggregates accuracy and mean reaction times over non-practice
// trials, matching the original end-of-run report.
func (r *Recorder) Summary() domain.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s domain.Summary
	var globalHits, localHits, bothHits int
	var globalRT, localRT float64
	var globalN, localN int

	for _, res := range r.results {
		if res.IsPractice {
			continue
		}
		s.Trials++
		if res.GlobalCorrect {
			globalHits++
		}
		if res.LocalCorrect {
			localHits++
		}
		if res.BothCorrect {
			bothHits++
		}
		if res.GlobalRT != nil {
			globalRT += *res.GlobalRT
			globalN++
		}
		if res.LocalRT != nil {
			localRT += *res.LocalRT
			localN++
		}
	}

	if s.Trials > 0 {
		s.GlobalAccuracy = 100 * float64(globalHits) / float64(s.Trials)
		s.LocalAccuracy = 100 * float64(localHits) / float64(s.Trials)
		s.BothAccuracy = 100 * float64(bothHits) / float64(s.Trials)
	}
	if globalN > 0 {
		s.MeanGlobalRT = globalRT / float64(globalN)
	}
	if localN > 0 {
		s.MeanLocalRT = localRT / float64(localN)
	}
	return s
}
