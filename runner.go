package cadence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seqlab/cadence/internal/adapters/keyboard"
	"github.com/seqlab/cadence/internal/runtime"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/observability"
	"github.com/seqlab/cadence/pkg/ports"
)

// Report is the outcome of a completed (or aborted) session.
type Report struct {
	RunID   string
	Subject string
	Aborted bool
	Summary domain.Summary
	Results []domain.TrialResult
}

// Run executes one full session: subject intake, block scheduling,
// instructions, every block and trial, and incremental persistence after
// each block. An abort key press ends the run early; whatever was recorded
// up to that point is still saved and reported.
func (e *Experiment) Run(ctx context.Context) (*Report, error) {
	subject, err := e.subject.Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to collect subject info: %w", err)
	}
	if subject == "" {
		return nil, domain.ErrCancelled
	}

	runID := fmt.Sprintf("%s_%s", subject, uuid.NewString()[:8])
	logger := e.logger.With("run_id", runID)
	logger.Info("session starting", "subject", subject)

	order, err := runtime.GenerateBlockOrder(e.cfg.Designs, e.inv, e.rng)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveBlockOrder(ctx, runID, order); err != nil {
		return nil, fmt.Errorf("failed to persist block order: %w", err)
	}

	// The subject prompt runs in cooked mode; raw keyboard input starts
	// only after it finishes.
	source := e.input
	if source == nil {
		kb, err := keyboard.Open(logger)
		if err != nil {
			return nil, err
		}
		source = kb
	}
	defer source.Close()

	state := runtime.NewRunState()
	defer state.Close()

	hooks := *observability.Merge(e.hooks...)
	input := runtime.NewInputController(source, e.clock, state, e.cfg.Keys.Pause, e.cfg.Keys.Abort, logger)
	input.SetPauseNotifier(func(paused bool) {
		if paused {
			e.display.Message("# Paused\n\nPress **" + string(e.cfg.Keys.Pause) + "** to resume.")
		} else {
			e.display.Blank()
		}
	})

	trigger := runtime.NewEmitter(e.trigger, e.cfg.Triggers, e.clock, hooks, logger)
	stimuli := runtime.NewStimulusManager(e.opener, e.clock, e.cfg.Timing.Settle.Std(), logger)
	machine := runtime.NewMachine(e.clock, e.display, stimuli, input, trigger, e.cfg.Timing, hooks, e.rng, logger)
	recorder := runtime.NewRecorder()

	e.display.Message(instructionsText(e.cfg.Keys.Pause, e.cfg.Keys.Abort))
	if out := input.WaitAny(); out == domain.OutcomeAborted {
		return e.finish(ctx, runID, subject, recorder, true)
	}

	trialNum := 0
	for i, block := range order {
		design, ok := e.cfg.Design(block.Design)
		if !ok {
			return nil, fmt.Errorf("block order references unknown design %q", block.Design)
		}

		if hooks.OnBlockStart != nil {
			hooks.OnBlockStart(ctx, &domain.BlockEvent{
				Timestamp: e.clock.Now(),
				Index:     i + 1,
				Total:     len(order),
				Block:     block,
			})
		}

		e.display.Message(blockText(i+1, len(order), design, e.cfg.PracticePerBlock))
		if out := input.WaitAny(); out == domain.OutcomeAborted {
			return e.finish(ctx, runID, subject, recorder, true)
		}

		trials, err := e.inv.ListTrials(design, block.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to list trials for %s block %d: %w", design.Name, block.Number, err)
		}

		aborted := false
		blockTrial := 0
		for _, ref := range trials {
			if input.Checkpoint() == domain.OutcomeAborted {
				aborted = true
				break
			}

			assets, err := e.inv.ResolveTrial(ref)
			if err != nil {
				logger.Warn("skipping unresolvable trial", "trial", ref.Trial, "err", err)
				continue
			}

			trialNum++
			blockTrial++
			spec := runtime.TrialSpec{
				Number:   trialNum,
				Design:   design,
				Block:    block.Number,
				Ref:      ref,
				Assets:   assets,
				Practice: e.cfg.PracticePerBlock && blockTrial == 1,
			}

			result, out := machine.RunTrial(ctx, spec)
			if out == domain.OutcomeAborted {
				aborted = true
				break
			}
			if result != nil {
				recorder.Append(*result)
			}
		}

		if err := e.save(ctx, runID, subject, recorder); err != nil {
			// Losing a save mid-run is logged, not fatal; the final save
			// below retries with the complete record.
			logger.Error("failed to persist results", "err", err)
		}

		if aborted {
			return e.finish(ctx, runID, subject, recorder, true)
		}

		if i < len(order)-1 {
			e.display.Message(breakText(i+1, len(order)))
			if out := input.WaitAny(); out == domain.OutcomeAborted {
				return e.finish(ctx, runID, subject, recorder, true)
			}
		}
	}

	return e.finish(ctx, runID, subject, recorder, false)
}

// finish persists the final record, shows the summary screen, and builds
// the report.
func (e *Experiment) finish(ctx context.Context, runID, subject string, recorder *runtime.Recorder, aborted bool) (*Report, error) {
	if err := e.save(ctx, runID, subject, recorder); err != nil {
		return nil, fmt.Errorf("failed to persist final results: %w", err)
	}

	summary := recorder.Summary()
	e.display.Message(summaryText(summary, aborted))
	e.logger.Info("session finished",
		"run_id", runID,
		"aborted", aborted,
		"trials", recorder.Len(),
	)

	return &Report{
		RunID:   runID,
		Subject: subject,
		Aborted: aborted,
		Summary: summary,
		Results: recorder.Snapshot(),
	}, nil
}

func (e *Experiment) save(ctx context.Context, runID, subject string, recorder *runtime.Recorder) error {
	return e.store.SaveResults(ctx, &ports.RunRecord{
		RunID:   runID,
		Subject: subject,
		SavedAt: e.clock.Now(),
		Results: recorder.Snapshot(),
		Config:  e.cfg.Snapshot(),
	})
}

func instructionsText(pauseKey, abortKey domain.Key) string {
	var b strings.Builder
	b.WriteString("# Sequence Memory Task\n\n")
	b.WriteString("You will hear a sequence of spoken syllables forming several words. ")
	b.WriteString("After a delay, one syllable is replayed as a cue.\n\n")
	b.WriteString("Report **which word** the cue came from, and **which syllable within that word**, ")
	b.WriteString("using the number keys.\n\n")
	b.WriteString(fmt.Sprintf("Press **%s** to pause between phases, **%s** to end the session.\n\n", pauseKey, abortKey))
	b.WriteString("Press any key to begin.")
	return b.String()
}

func blockText(index, total int, design domain.BlockDesign, practice bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Block %d of %d\n\n", index, total)
	fmt.Fprintf(&b, "This block: sequences of **%d words** with **%d syllables** each.\n\n", design.NumWords, design.SyllablesPerWord)
	if practice {
		b.WriteString("First trial is practice.\n\n")
	}
	b.WriteString("Press any key to start.")
	return b.String()
}

func breakText(done, total int) string {
	return fmt.Sprintf(
		"# Break\n\nBlock %d of %d complete. Rest as long as you need.\n\nPress any key to continue.",
		done, total,
	)
}

func summaryText(s domain.Summary, aborted bool) string {
	title := "# Session Complete"
	if aborted {
		title = "# Session Ended Early"
	}
	return fmt.Sprintf(
		"%s\n\nTrials scored: %d\n\n| Measure | Value |\n|---|---|\n| Word accuracy | %.1f%% |\n| Syllable accuracy | %.1f%% |\n| Both correct | %.1f%% |\n| Mean word RT | %.2fs |\n| Mean syllable RT | %.2fs |\n\nThank you for participating.",
		title, s.Trials, s.GlobalAccuracy, s.LocalAccuracy, s.BothAccuracy, s.MeanGlobalRT, s.MeanLocalRT,
	)
}
