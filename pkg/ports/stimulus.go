package ports

import (
	"time"

	"github.com/seqlab/cadence/pkg/domain"
)

// StimulusHandle is an acquired, playable stimulus. Handles are owned by the
// stimulus manager for exactly one presentation window: acquired immediately
// before use, released immediately after, never cached across items.
type StimulusHandle interface {
	// Play begins playback. It returns immediately; the caller waits out
	// the handle's natural duration.
	Play() error

	// Duration reports the item's natural playback length. Durations vary
	// per asset and drive the presentation window.
	Duration() time.Duration

	// Close releases the underlying decoder/device resources.
	Close() error
}

// StimulusOpener acquires stimulus handles just in time.
type StimulusOpener interface {
	Open(ref domain.ItemRef) (StimulusHandle, error)
}
