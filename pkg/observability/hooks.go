// Package observability composes lifecycle hooks so multiple consumers
// (structured logging, metrics, custom callers) can observe a run without
// the engine knowing about any of them.
package observability

import (
	"context"
	"log/slog"

	"github.com/seqlab/cadence/pkg/domain"
)

// Merge fans each lifecycle callback out to every provided hook set, in
// order. Nil callbacks are skipped.
func Merge(hooks ...*domain.LifecycleHooks) *domain.LifecycleHooks {
	merged := &domain.LifecycleHooks{}

	merged.OnBlockStart = func(ctx context.Context, ev *domain.BlockEvent) {
		for _, h := range hooks {
			if h != nil && h.OnBlockStart != nil {
				h.OnBlockStart(ctx, ev)
			}
		}
	}
	merged.OnTrialStart = func(ctx context.Context, ev *domain.TrialEvent) {
		for _, h := range hooks {
			if h != nil && h.OnTrialStart != nil {
				h.OnTrialStart(ctx, ev)
			}
		}
	}
	merged.OnTrialEnd = func(ctx context.Context, ev *domain.TrialEvent) {
		for _, h := range hooks {
			if h != nil && h.OnTrialEnd != nil {
				h.OnTrialEnd(ctx, ev)
			}
		}
	}
	merged.OnPhase = func(ctx context.Context, ev *domain.PhaseEvent) {
		for _, h := range hooks {
			if h != nil && h.OnPhase != nil {
				h.OnPhase(ctx, ev)
			}
		}
	}
	merged.OnTrigger = func(ctx context.Context, ev *domain.MarkerEvent) {
		for _, h := range hooks {
			if h != nil && h.OnTrigger != nil {
				h.OnTrigger(ctx, ev)
			}
		}
	}
	return merged
}

// NewLogHooks returns hooks that record run progress through a structured
// logger. Phase entries log at debug; everything else at info.
func NewLogHooks(logger *slog.Logger) *domain.LifecycleHooks {
	return &domain.LifecycleHooks{
		OnBlockStart: func(ctx context.Context, ev *domain.BlockEvent) {
			logger.InfoContext(ctx, "block started",
				"index", ev.Index,
				"total", ev.Total,
				"design", ev.Block.Design,
				"block_num", ev.Block.Number)
		},
		OnTrialStart: func(ctx context.Context, ev *domain.TrialEvent) {
			logger.InfoContext(ctx, "trial started",
				"trial", ev.Trial,
				"design", ev.Design,
				"block_num", ev.Block)
		},
		OnTrialEnd: func(ctx context.Context, ev *domain.TrialEvent) {
			if ev.Result == nil {
				logger.InfoContext(ctx, "trial ended without result", "trial", ev.Trial)
				return
			}
			logger.InfoContext(ctx, "trial completed",
				"trial", ev.Trial,
				"design", ev.Design,
				"block_num", ev.Block,
				"both_correct", ev.Result.BothCorrect)
		},
		OnPhase: func(ctx context.Context, ev *domain.PhaseEvent) {
			logger.DebugContext(ctx, "phase entered", "trial", ev.Trial, "phase", ev.Phase)
		},
		OnTrigger: func(ctx context.Context, ev *domain.MarkerEvent) {
			if ev.Err != nil {
				logger.WarnContext(ctx, "trigger failed", "event", ev.Event, "code", ev.Code, "err", ev.Err)
				return
			}
			logger.InfoContext(ctx, "trigger emitted", "event", ev.Event, "code", ev.Code)
		},
	}
}
