package ports

import (
	"time"

	"github.com/seqlab/cadence/pkg/domain"
)

// KeyEvent is one discrete key press delivered by an input source.
type KeyEvent struct {
	Key domain.Key
	At  time.Time
}

// InputSource is a single-producer stream of key events. The channel makes
// every input suspension point explicit and testable against a fake source.
// The channel is closed when the source shuts down.
type InputSource interface {
	Events() <-chan KeyEvent
	Close() error
}
