package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Machine drives one trial through its ordered phases, invoking the
// stimulus manager, trigger emitter and input controller at the right
// instants. Execution is single-threaded and cooperative: every wait is a
// suspension point on the calling goroutine.
type Machine struct {
	clock   ports.Clock
	display ports.Display
	stimuli *StimulusManager
	input   *InputController
	trigger *Emitter
	timing  config.Timing
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	rng     *rand.Rand
}

// NewMachine assembles a trial machine from its collaborators.
func NewMachine(clock ports.Clock, display ports.Display, stimuli *StimulusManager, input *InputController, trigger *Emitter, timing config.Timing, hooks domain.LifecycleHooks, rng *rand.Rand, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Machine{
		clock:   clock,
		display: display,
		stimuli: stimuli,
		input:   input,
		trigger: trigger,
		timing:  timing,
		hooks:   hooks,
		logger:  logger,
		rng:     rng,
	}
}

// TrialSpec identifies one trial and its resolved assets.
type TrialSpec struct {
	Number   int
	Design   domain.BlockDesign
	Block    int
	Ref      domain.TrialRef
	Assets   *domain.TrialAssets
	Practice bool
}

// RunTrial executes the full phase sequence for one trial. It returns the
// trial's result, or nil with OutcomeAborted when the run was aborted at a
// phase boundary — an aborted trial produces no result.
//
// Abort is checked only at phase boundaries: a hold already in flight
// completes its own wait first. Pause likewise takes effect at the next
// boundary and freezes phase timers rather than resetting them.
func (m *Machine) RunTrial(ctx context.Context, spec TrialSpec) (*domain.TrialResult, domain.Outcome) {
	m.logger.Info("trial start",
		"trial", spec.Number,
		"design", spec.Design.Name,
		"block", spec.Block,
		"practice", spec.Practice,
	)
	if m.hooks.OnTrialStart != nil {
		m.hooks.OnTrialStart(ctx, &domain.TrialEvent{
			Timestamp: m.clock.Now(),
			Trial:     spec.Number,
			Design:    spec.Design.Name,
			Block:     spec.Block,
		})
	}

	// The report order is a per-trial coin flip; both orderings reuse the
	// same two report phases, just swapped.
	globalFirst := m.rng.Intn(2) == 0

	result, out := m.runPhases(ctx, spec, globalFirst)

	if m.hooks.OnTrialEnd != nil {
		m.hooks.OnTrialEnd(ctx, &domain.TrialEvent{
			Timestamp: m.clock.Now(),
			Trial:     spec.Number,
			Design:    spec.Design.Name,
			Block:     spec.Block,
			Result:    result,
		})
	}
	return result, out
}

func (m *Machine) runPhases(ctx context.Context, spec TrialSpec, globalFirst bool) (*domain.TrialResult, domain.Outcome) {
	// ENCODING
	m.enterPhase(ctx, spec.Number, domain.PhaseEncodingFixation)
	m.show(m.display.Fixation)
	m.hold(m.timing.EncodingFixation)
	if out := m.boundary(); out != domain.OutcomeContinue {
		return nil, out
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseEncoding)
	for i, item := range spec.Assets.Items {
		m.show(m.display.Fixation)
		m.stimuli.Present(item)
		if i < len(spec.Assets.Items)-1 {
			m.hold(m.timing.InterSyllable)
		}
		if out := m.boundary(); out != domain.OutcomeContinue {
			return nil, out
		}
	}

	// RETENTION
	m.enterPhase(ctx, spec.Number, domain.PhaseCueFixation)
	m.show(m.display.Fixation)

	m.enterPhase(ctx, spec.Number, domain.PhaseCuePlayback)
	m.trigger.Emit(ctx, domain.TriggerCueStart)
	m.stimuli.Present(spec.Assets.Cue)

	m.enterPhase(ctx, spec.Number, domain.PhaseRetention)
	m.hold(m.timing.RetentionDelay)
	if out := m.boundary(); out != domain.OutcomeContinue {
		return nil, out
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseNeutralImpulse)
	m.trigger.Emit(ctx, domain.TriggerNeutralImpulse)
	m.show(m.display.Impulse)
	m.hold(m.timing.NeutralImpulse)

	m.enterPhase(ctx, spec.Number, domain.PhasePostImpulse)
	m.show(m.display.Fixation)
	m.hold(m.timing.PostImpulseFixation)
	if out := m.boundary(); out != domain.OutcomeContinue {
		return nil, out
	}

	// REPORT
	global := report{
		phase:      domain.PhaseGlobalReport,
		promptEv:   domain.TriggerGlobalPrompt,
		responseEv: domain.TriggerGlobalResponse,
		prompt:     promptText("Which WORD contained the cued syllable?", spec.Design.NumWords),
		allowed:    digitKeys(spec.Design.NumWords),
	}
	local := report{
		phase:      domain.PhaseLocalReport,
		promptEv:   domain.TriggerLocalPrompt,
		responseEv: domain.TriggerLocalResponse,
		prompt:     promptText("Which SYLLABLE within that word?", spec.Design.SyllablesPerWord),
		allowed:    digitKeys(spec.Design.SyllablesPerWord),
	}

	first, second := global, local
	if !globalFirst {
		first, second = local, global
	}

	firstResp, firstRT, out := m.collectReport(ctx, spec.Number, first)
	if out != domain.OutcomeContinue {
		return nil, out
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseInterReport)
	m.hold(m.timing.InterReport)
	if out := m.boundary(); out != domain.OutcomeContinue {
		return nil, out
	}

	secondResp, secondRT, out := m.collectReport(ctx, spec.Number, second)
	if out != domain.OutcomeContinue {
		return nil, out
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseResponseHold)
	m.hold(m.timing.ResponseDisplay)

	globalResp, globalRT := firstResp, firstRT
	localResp, localRT := secondResp, secondRT
	if !globalFirst {
		globalResp, globalRT = secondResp, secondRT
		localResp, localRT = firstResp, firstRT
	}

	// SCORING — a nil (timed out) response is simply incorrect.
	info := spec.Assets.Info
	result := &domain.TrialResult{
		Trial:            spec.Number,
		Design:           spec.Design.Name,
		Block:            spec.Block,
		TrialRef:         spec.Ref.Trial,
		NumWords:         spec.Design.NumWords,
		SyllablesPerWord: spec.Design.SyllablesPerWord,
		CorrectGlobal:    info.Word,
		CorrectLocal:     info.Syllable,
		GlobalResponse:   globalResp,
		LocalResponse:    localResp,
		GlobalCorrect:    globalResp != nil && *globalResp == info.Word,
		LocalCorrect:     localResp != nil && *localResp == info.Syllable,
		GlobalRT:         globalRT,
		LocalRT:          localRT,
		IsPractice:       spec.Practice,
		GlobalFirst:      globalFirst,
	}
	result.BothCorrect = result.GlobalCorrect && result.LocalCorrect

	if spec.Practice {
		m.enterPhase(ctx, spec.Number, domain.PhaseFeedback)
		m.show(func() error { return m.display.Message(feedbackText(result)) })
		m.hold(m.timing.Feedback)
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseInterTrial)
	m.show(m.display.Blank)
	m.hold(m.timing.InterTrial)
	if out := m.boundary(); out != domain.OutcomeContinue {
		return nil, out
	}

	m.enterPhase(ctx, spec.Number, domain.PhaseDone)
	m.logger.Info("trial complete",
		"trial", spec.Number,
		"global_correct", result.GlobalCorrect,
		"local_correct", result.LocalCorrect,
	)
	return result, domain.OutcomeContinue
}

// report bundles one axis of the report phase.
type report struct {
	phase      domain.Phase
	promptEv   domain.TriggerEvent
	responseEv domain.TriggerEvent
	prompt     string
	allowed    []domain.Key
}

// collectReport shows a prompt and waits for one bounded response. Stale
// input is discarded before the wait so a key from an earlier phase cannot
// leak in. Timeouts yield nil response and reaction time; only abort stops
// the trial.
func (m *Machine) collectReport(ctx context.Context, trial int, r report) (*int, *float64, domain.Outcome) {
	m.input.Drain()

	m.enterPhase(ctx, trial, r.phase)
	m.show(func() error { return m.display.Message(r.prompt) })
	m.trigger.Emit(ctx, r.promptEv)

	key, elapsed, out := m.input.WaitForKey(r.allowed, m.timing.ResponseTimeout.Std())
	switch out {
	case domain.OutcomeAborted:
		return nil, nil, domain.OutcomeAborted
	case domain.OutcomeTimedOut:
		m.logger.Info("response timed out", "trial", trial, "phase", r.phase)
		return nil, nil, domain.OutcomeContinue
	}

	n, err := strconv.Atoi(string(key))
	if err != nil {
		// Allowed keys are digits only; anything else is a controller bug.
		m.logger.Error("non-numeric response key", "key", key)
		return nil, nil, domain.OutcomeContinue
	}

	m.trigger.Emit(ctx, r.responseEv)
	rt := elapsed.Seconds()
	return &n, &rt, domain.OutcomeContinue
}

// boundary samples run state between phases. Aborts take effect here;
// pauses block here with all phase timers frozen.
func (m *Machine) boundary() domain.Outcome {
	return m.input.Checkpoint()
}

// hold suspends for a fixed phase duration.
func (m *Machine) hold(d config.Duration) {
	if d > 0 {
		m.clock.Sleep(d.Std())
	}
}

// show runs a display call, absorbing failures: a broken display must not
// desynchronize the trial timeline.
func (m *Machine) show(fn func() error) {
	if err := fn(); err != nil {
		m.logger.Warn("display update failed", "error", err)
	}
}

func (m *Machine) enterPhase(ctx context.Context, trial int, p domain.Phase) {
	m.logger.Debug("phase", "trial", trial, "phase", p)
	if m.hooks.OnPhase != nil {
		m.hooks.OnPhase(ctx, &domain.PhaseEvent{
			Timestamp: m.clock.Now(),
			Trial:     trial,
			Phase:     p,
		})
	}
}

// digitKeys returns the allowed response keys "1".."n".
func digitKeys(n int) []domain.Key {
	keys := make([]domain.Key, n)
	for i := 0; i < n; i++ {
		keys[i] = domain.Key(strconv.Itoa(i + 1))
	}
	return keys
}

// promptText renders a report prompt in the original's wording.
func promptText(question string, n int) string {
	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n\nPress 1")
	for i := 2; i <= n; i++ {
		fmt.Fprintf(&b, ", %d", i)
	}
	return b.String()
}

// feedbackText summarizes a practice trial's correctness.
func feedbackText(r *domain.TrialResult) string {
	if r.BothCorrect {
		return fmt.Sprintf("Correct! Word %d, Syllable %d.", r.CorrectGlobal, r.CorrectLocal)
	}
	return fmt.Sprintf("Incorrect.\nCorrect: Word %d, Syllable %d\nYour answer: Word %s, Syllable %s",
		r.CorrectGlobal, r.CorrectLocal,
		formatResponse(r.GlobalResponse), formatResponse(r.LocalResponse))
}

func formatResponse(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
