package domain

import (
	"context"
	"time"
)

// TriggerEvent names a hardware marker emission point. Exactly six exist and
// each fires at the corresponding phase's entry or resolution instant.
type TriggerEvent string

const (
	TriggerCueStart       TriggerEvent = "cue_start"
	TriggerNeutralImpulse TriggerEvent = "neutral_impulse"
	TriggerGlobalPrompt   TriggerEvent = "global_prompt"
	TriggerGlobalResponse TriggerEvent = "global_response"
	TriggerLocalPrompt    TriggerEvent = "local_prompt"
	TriggerLocalResponse  TriggerEvent = "local_response"
)

// PhaseEvent reports entry into a trial phase.
type PhaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Trial     int       `json:"trial"`
	Phase     Phase     `json:"phase"`
}

// TrialEvent reports the start or completion of a trial.
type TrialEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	Trial     int          `json:"trial"`
	Design    string       `json:"design"`
	Block     int          `json:"block_num"`
	Result    *TrialResult `json:"result,omitempty"` // nil on start and on abort
}

// MarkerEvent reports an emitted (or attempted) trigger pulse.
type MarkerEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	Event     TriggerEvent `json:"event"`
	Code      int          `json:"code"`
	Err       error        `json:"-"`
}

// BlockEvent reports progress through the planned block order.
type BlockEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Index     int       `json:"index"` // 1-based position in the block order
	Total     int       `json:"total"`
	Block     BlockRef  `json:"block"`
}

// LifecycleHooks defines callbacks for engine observability.
// All fields are optional; nil hooks are skipped.
type LifecycleHooks struct {
	OnBlockStart func(context.Context, *BlockEvent)
	OnTrialStart func(context.Context, *TrialEvent)
	OnTrialEnd   func(context.Context, *TrialEvent)
	OnPhase      func(context.Context, *PhaseEvent)
	OnTrigger    func(context.Context, *MarkerEvent)
}
