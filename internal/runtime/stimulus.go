package runtime

import (
	"log/slog"
	"time"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// StimulusManager owns the just-in-time lifecycle of stimulus handles: each
// item is acquired immediately before playback and released immediately
// after, on every exit path. At most one handle is ever held, which bounds
// peak resource usage independent of sequence length.
type StimulusManager struct {
	opener ports.StimulusOpener
	clock  ports.Clock
	// settle gives the audio hardware time to fully relinquish the device
	// between items.
	settle time.Duration
	logger *slog.Logger
}

// NewStimulusManager creates a manager.
func NewStimulusManager(opener ports.StimulusOpener, clock ports.Clock, settle time.Duration, logger *slog.Logger) *StimulusManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StimulusManager{opener: opener, clock: clock, settle: settle, logger: logger}
}

// Present acquires, plays and releases one item, holding for its natural
// duration. A failed acquisition substitutes a zero-duration silent handle:
// one missing asset must not invalidate an entire block, so the trial
// continues and the failure only shows up in logs.
func (m *StimulusManager) Present(ref domain.ItemRef) {
	handle, err := m.opener.Open(ref)
	if err != nil {
		m.logger.Error("stimulus acquisition failed, substituting silence", "path", ref.Path, "error", err)
		handle = silentHandle{}
	}

	defer func() {
		if err := handle.Close(); err != nil {
			m.logger.Warn("stimulus release failed", "path", ref.Path, "error", err)
		}
		if m.settle > 0 {
			m.clock.Sleep(m.settle)
		}
	}()

	if err := handle.Play(); err != nil {
		m.logger.Error("stimulus playback failed", "path", ref.Path, "error", err)
		return
	}
	if d := handle.Duration(); d > 0 {
		m.clock.Sleep(d)
	}
}

// silentHandle is the no-op substitute for a failed acquisition.
type silentHandle struct{}

func (silentHandle) Play() error             { return nil }
func (silentHandle) Duration() time.Duration { return 0 }
func (silentHandle) Close() error            { return nil }
