package domain

// Key is a single discrete input event (a key name, e.g. "1", "p", "escape").
type Key string

// Outcome tags the result of a suspension point. The orchestrator checks it
// at every phase boundary instead of relying on unwinding control flow.
type Outcome int

const (
	// OutcomeContinue means the phase completed normally.
	OutcomeContinue Outcome = iota
	// OutcomeTimedOut means a bounded wait expired without an allowed key.
	OutcomeTimedOut
	// OutcomeAborted means the run was aborted; no further phases execute.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}
