// Package keyboard provides a raw-mode terminal InputSource. Keys arrive
// timestamped on a channel so the engine can charge reaction times from the
// prompt instant rather than from when it happens to poll.
package keyboard

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Source implements ports.InputSource over an interactive terminal in raw
// mode. Events are buffered; keys pressed between waits stay queued until
// the engine drains them.
type Source struct {
	fd       int
	oldState *term.State
	events   chan ports.KeyEvent
	done     chan struct{}
	logger   *slog.Logger
}

// Open switches the terminal into raw mode and starts the read loop. The
// caller must Close the source to restore the terminal.
func Open(logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	s := &Source{
		fd:       fd,
		oldState: oldState,
		events:   make(chan ports.KeyEvent, 64),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go s.readLoop()
	return s, nil
}

// Events returns the key event stream. The channel closes when the source
// is closed or stdin reaches EOF.
func (s *Source) Events() <-chan ports.KeyEvent { return s.events }

// Close restores the terminal state and stops the read loop.
func (s *Source) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	return term.Restore(s.fd, s.oldState)
}

func (s *Source) readLoop() {
	defer close(s.events)

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("keyboard read loop terminated", "err", err)
			}
			return
		}
		if n == 0 {
			continue
		}

		key, ok := translate(buf[0])
		if !ok {
			continue
		}

		event := ports.KeyEvent{Key: key, At: time.Now()}
		select {
		case s.events <- event:
		case <-s.done:
			return
		default:
			// Buffer full: drop rather than block the read loop.
			s.logger.Warn("dropping key event, buffer full", "key", key)
		}
	}
}

// translate maps a raw byte to a key name. Unmapped bytes are ignored.
func translate(b byte) (domain.Key, bool) {
	switch {
	case b == 0x1b:
		return "escape", true
	case b == '\r' || b == '\n':
		return "return", true
	case b == ' ':
		return "space", true
	case b >= '0' && b <= '9':
		return domain.Key(string(b)), true
	case b >= 'a' && b <= 'z':
		return domain.Key(string(b)), true
	case b >= 'A' && b <= 'Z':
		return domain.Key(string(b + ('a' - 'A'))), true
	default:
		return "", false
	}
}
