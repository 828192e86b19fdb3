package runtime_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/internal/runtime"
	"github.com/seqlab/cadence/internal/testutils"
	"github.com/seqlab/cadence/pkg/domain"
)

var testTiming = config.Timing{
	EncodingFixation:    config.Duration(600 * time.Millisecond),
	InterSyllable:       config.Duration(500 * time.Millisecond),
	RetentionDelay:      config.Duration(3 * time.Second),
	NeutralImpulse:      config.Duration(100 * time.Millisecond),
	PostImpulseFixation: config.Duration(800 * time.Millisecond),
	InterReport:         config.Duration(200 * time.Millisecond),
	ResponseDisplay:     config.Duration(500 * time.Millisecond),
	Feedback:            config.Duration(2 * time.Second),
	InterTrial:          config.Duration(time.Second),
	Settle:              config.Duration(100 * time.Millisecond),
	// Unbounded waits by default; timeout tests override this.
	ResponseTimeout: 0,
}

var testCodes = config.TriggerCodes{
	CueStart:       1,
	NeutralImpulse: 2,
	GlobalPrompt:   3,
	GlobalResponse: 4,
	LocalPrompt:    5,
	LocalResponse:  6,
}

// trialHarness bundles a machine with all its fakes. Report responses are
// queued when the corresponding report phase begins - after that phase's
// stale-input drain, which is the only window where a press reaches the
// response wait.
type trialHarness struct {
	clock   *testutils.FakeClock
	input   *testutils.ScriptedInput
	trigger *testutils.RecordingTrigger
	display *testutils.RecordingDisplay
	opener  *testutils.FakeOpener
	state   *runtime.RunState
	machine *runtime.Machine
	phases  []domain.Phase

	globalKey domain.Key
	localKey  domain.Key
}

func newTrialHarness(t *testing.T, timing config.Timing, seed int64, extra domain.LifecycleHooks) *trialHarness {
	t.Helper()

	h := &trialHarness{
		clock:   testutils.NewFakeClock(),
		input:   testutils.NewScriptedInput(),
		trigger: &testutils.RecordingTrigger{},
		display: &testutils.RecordingDisplay{},
		opener:  testutils.NewFakeOpener(250 * time.Millisecond),
		state:   runtime.NewRunState(),
	}

	hooks := extra
	wrapped := hooks.OnPhase
	hooks.OnPhase = func(ctx context.Context, ev *domain.PhaseEvent) {
		h.phases = append(h.phases, ev.Phase)
		switch ev.Phase {
		case domain.PhaseGlobalReport:
			if h.globalKey != "" {
				h.input.Press(h.globalKey)
			}
		case domain.PhaseLocalReport:
			if h.localKey != "" {
				h.input.Press(h.localKey)
			}
		}
		if wrapped != nil {
			wrapped(ctx, ev)
		}
	}

	controller := runtime.NewInputController(h.input, h.clock, h.state, "p", "escape", nil)
	emitter := runtime.NewEmitter(h.trigger, testCodes, h.clock, hooks, nil)
	stimuli := runtime.NewStimulusManager(h.opener, h.clock, timing.Settle.Std(), nil)
	h.machine = runtime.NewMachine(
		h.clock, h.display, stimuli, controller, emitter,
		timing, hooks, rand.New(rand.NewSource(seed)), nil,
	)
	return h
}

// answer sets the keys pressed at each report phase.
func (h *trialHarness) answer(globalKey, localKey domain.Key) *trialHarness {
	h.globalKey, h.localKey = globalKey, localKey
	return h
}

func makeSpec(numWords, syllables, cueWord, cueSyllable int, practice bool) runtime.TrialSpec {
	design := domain.BlockDesign{
		Name:             fmt.Sprintf("%d_x_%d", numWords, syllables),
		NumWords:         numWords,
		SyllablesPerWord: syllables,
	}

	var items []domain.ItemRef
	for w := 1; w <= numWords; w++ {
		for s := 1; s <= syllables; s++ {
			items = append(items, domain.ItemRef{
				Path:     fmt.Sprintf("words/word%d_syllable_%d.wav", w, s),
				Word:     w,
				Syllable: s,
			})
		}
	}

	return runtime.TrialSpec{
		Number: 1,
		Design: design,
		Block:  1,
		Ref:    domain.TrialRef{Design: design.Name, Block: 1, Trial: "trial_1"},
		Assets: &domain.TrialAssets{
			Items: items,
			Cue: domain.ItemRef{
				Path:     fmt.Sprintf("cue/word%d_syllable_%d_cue.wav", cueWord, cueSyllable),
				Word:     cueWord,
				Syllable: cueSyllable,
			},
			Info: domain.CueInfo{Word: cueWord, Syllable: cueSyllable},
		},
		Practice: practice,
	}
}

func TestRunTrial_CorrectResponsesScoreCorrect(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("2", "3")

	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 4, 2, 3, false))

	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.Trial)
	assert.Equal(t, "3_x_4", result.Design)
	assert.Equal(t, 3, result.NumWords)
	assert.Equal(t, 4, result.SyllablesPerWord)
	assert.Equal(t, 2, result.CorrectGlobal)
	assert.Equal(t, 3, result.CorrectLocal)

	require.NotNil(t, result.GlobalResponse)
	require.NotNil(t, result.LocalResponse)
	assert.Equal(t, 2, *result.GlobalResponse)
	assert.Equal(t, 3, *result.LocalResponse)

	assert.True(t, result.GlobalCorrect)
	assert.True(t, result.LocalCorrect)
	assert.True(t, result.BothCorrect)
	require.NotNil(t, result.GlobalRT)
	require.NotNil(t, result.LocalRT)
}

func TestRunTrial_WrongResponsesScoreIncorrect(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 2, 3, false))

	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)
	assert.False(t, result.GlobalCorrect)
	assert.False(t, result.LocalCorrect)
	assert.False(t, result.BothCorrect)
}

func TestRunTrial_PartialCorrectIsNotBothCorrect(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("2", "1")

	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 2, 3, false))

	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)
	assert.True(t, result.GlobalCorrect)
	assert.False(t, result.LocalCorrect)
	assert.False(t, result.BothCorrect)
}

func TestRunTrial_TimeoutIsAValidIncorrectOutcome(t *testing.T) {
	timing := testTiming
	timing.ResponseTimeout = config.Duration(10 * time.Second)

	h := newTrialHarness(t, timing, 1, domain.LifecycleHooks{})

	// No keys pressed at all: both reports run out their deadline.
	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 2, false))

	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)

	assert.Nil(t, result.GlobalResponse)
	assert.Nil(t, result.LocalResponse)
	assert.Nil(t, result.GlobalRT)
	assert.Nil(t, result.LocalRT)
	assert.False(t, result.GlobalCorrect)
	assert.False(t, result.LocalCorrect)
	assert.False(t, result.BothCorrect)
}

func TestRunTrial_AbortYieldsNoResult(t *testing.T) {
	var ended *domain.TrialEvent
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{
		OnTrialEnd: func(_ context.Context, ev *domain.TrialEvent) { ended = ev },
	})

	h.input.Press("escape")
	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 1, false))

	assert.Equal(t, domain.OutcomeAborted, out)
	assert.Nil(t, result)
	require.NotNil(t, ended, "trial end hook fires even on abort")
	assert.Nil(t, ended.Result)
}

func TestRunTrial_TriggerSequence(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 1, false))
	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)

	codes := h.trigger.Codes()
	require.Len(t, codes, 6)
	assert.Equal(t, []int{1, 2}, codes[:2], "cue then impulse, always")

	if result.GlobalFirst {
		assert.Equal(t, []int{3, 4, 5, 6}, codes[2:])
	} else {
		assert.Equal(t, []int{5, 6, 3, 4}, codes[2:])
	}
}

func TestRunTrial_TimeoutSkipsResponseTriggers(t *testing.T) {
	timing := testTiming
	timing.ResponseTimeout = config.Duration(5 * time.Second)

	h := newTrialHarness(t, timing, 1, domain.LifecycleHooks{})

	_, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 1, false))
	require.Equal(t, domain.OutcomeContinue, out)

	codes := h.trigger.Codes()
	require.Len(t, codes, 4)
	assert.Equal(t, []int{1, 2}, codes[:2])
	// Prompt markers fire; response markers cannot without a response.
	assert.ElementsMatch(t, []int{3, 5}, codes[2:])
}

func TestRunTrial_AtMostOneStimulusHandle(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

	spec := makeSpec(4, 3, 2, 2, false)
	_, out := h.machine.RunTrial(context.Background(), spec)
	require.Equal(t, domain.OutcomeContinue, out)

	assert.Equal(t, 1, h.opener.MaxOpen, "stimulus handles must not overlap")
	// 12 sequence items plus the cue, opened in presentation order.
	require.Len(t, h.opener.Opened, 13)
	assert.Equal(t, spec.Assets.Items[0].Path, h.opener.Opened[0])
	assert.Equal(t, spec.Assets.Cue.Path, h.opener.Opened[12])
}

func TestRunTrial_MissingAssetDoesNotFailTrial(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

	spec := makeSpec(3, 3, 1, 1, false)
	h.opener.FailFor = map[string]error{
		spec.Assets.Items[4].Path: fmt.Errorf("file vanished"),
	}

	result, out := h.machine.RunTrial(context.Background(), spec)
	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result, "a missing item plays as silence, the trial continues")
}

func TestRunTrial_PracticeFeedback(t *testing.T) {
	t.Run("correct", func(t *testing.T) {
		h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("2", "3")

		result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 4, 2, 3, true))
		require.Equal(t, domain.OutcomeContinue, out)
		require.NotNil(t, result)
		assert.True(t, result.IsPractice)

		assert.Contains(t, h.display.Messages(), "Correct! Word 2, Syllable 3.")
	})

	t.Run("incorrect", func(t *testing.T) {
		h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

		_, out := h.machine.RunTrial(context.Background(), makeSpec(3, 4, 2, 3, true))
		require.Equal(t, domain.OutcomeContinue, out)

		var feedback string
		for _, msg := range h.display.Messages() {
			if len(msg) > 10 && msg[:10] == "Incorrect." {
				feedback = msg
			}
		}
		require.NotEmpty(t, feedback)
		assert.Contains(t, feedback, "Correct: Word 2, Syllable 3")
		assert.Contains(t, feedback, "Your answer: Word 1, Syllable 1")
	})

	t.Run("no feedback outside practice", func(t *testing.T) {
		h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("2", "3")

		_, out := h.machine.RunTrial(context.Background(), makeSpec(3, 4, 2, 3, false))
		require.Equal(t, domain.OutcomeContinue, out)
		assert.NotContains(t, h.phases, domain.PhaseFeedback)
	})
}

func TestRunTrial_ReportOrderVariesAcrossSeeds(t *testing.T) {
	sawGlobalFirst, sawLocalFirst := false, false

	for seed := int64(0); seed < 20; seed++ {
		h := newTrialHarness(t, testTiming, seed, domain.LifecycleHooks{}).answer("1", "1")

		result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 1, false))
		require.Equal(t, domain.OutcomeContinue, out)
		require.NotNil(t, result)

		// The recorded flag must agree with the phase order actually run.
		var first domain.Phase
		for _, p := range h.phases {
			if p == domain.PhaseGlobalReport || p == domain.PhaseLocalReport {
				first = p
				break
			}
		}
		if result.GlobalFirst {
			sawGlobalFirst = true
			assert.Equal(t, domain.PhaseGlobalReport, first)
		} else {
			sawLocalFirst = true
			assert.Equal(t, domain.PhaseLocalReport, first)
		}
	}

	assert.True(t, sawGlobalFirst, "20 seeds should produce at least one global-first trial")
	assert.True(t, sawLocalFirst, "20 seeds should produce at least one local-first trial")
}

func TestRunTrial_PhaseSequence(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("2", "3")

	result, out := h.machine.RunTrial(context.Background(), makeSpec(3, 4, 2, 3, false))
	require.Equal(t, domain.OutcomeContinue, out)
	require.NotNil(t, result)

	reports := []domain.Phase{domain.PhaseGlobalReport, domain.PhaseLocalReport}
	if !result.GlobalFirst {
		reports[0], reports[1] = reports[1], reports[0]
	}

	want := []domain.Phase{
		domain.PhaseEncodingFixation,
		domain.PhaseEncoding,
		domain.PhaseCueFixation,
		domain.PhaseCuePlayback,
		domain.PhaseRetention,
		domain.PhaseNeutralImpulse,
		domain.PhasePostImpulse,
		reports[0],
		domain.PhaseInterReport,
		reports[1],
		domain.PhaseResponseHold,
		domain.PhaseInterTrial,
		domain.PhaseDone,
	}
	assert.Equal(t, want, h.phases)
}

func TestRunTrial_EncodingHoldDurations(t *testing.T) {
	h := newTrialHarness(t, testTiming, 1, domain.LifecycleHooks{}).answer("1", "1")

	_, out := h.machine.RunTrial(context.Background(), makeSpec(3, 3, 1, 1, false))
	require.Equal(t, domain.OutcomeContinue, out)

	slept := h.clock.Slept()
	require.NotEmpty(t, slept)
	assert.Equal(t, 600*time.Millisecond, slept[0], "encoding fixation hold comes first")
	// Items play for their natural duration followed by the device settle gap.
	assert.Contains(t, slept, 250*time.Millisecond)
	assert.Contains(t, slept, 100*time.Millisecond)
	assert.Contains(t, slept, 3*time.Second, "retention delay")
}
