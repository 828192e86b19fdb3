package runtime

import (
	"context"
	"log/slog"

	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Emitter sends named marker events to the trigger port, synchronously with
// phase transitions. A nil port is the disabled configuration: emission
// becomes a no-op but hooks still fire, so observers see the same event
// stream with or without hardware.
type Emitter struct {
	port   ports.TriggerPort
	codes  config.TriggerCodes
	clock  ports.Clock
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// NewEmitter creates an emitter. port may be nil.
func NewEmitter(port ports.TriggerPort, codes config.TriggerCodes, clock ports.Clock, hooks domain.LifecycleHooks, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Emitter{port: port, codes: codes, clock: clock, hooks: hooks, logger: logger}
}

// Emit fires one marker event. Emission failures are logged and absorbed:
// trigger absence must never stall or fail a trial.
func (e *Emitter) Emit(ctx context.Context, ev domain.TriggerEvent) {
	code := e.codes.Code(ev)

	var err error
	if e.port != nil {
		if err = e.port.Pulse(code); err != nil {
			e.logger.Error("trigger emission failed", "event", ev, "code", code, "error", err)
		}
	}

	if e.hooks.OnTrigger != nil {
		e.hooks.OnTrigger(ctx, &domain.MarkerEvent{
			Timestamp: e.clock.Now(),
			Event:     ev,
			Code:      code,
			Err:       err,
		})
	}
}

// Enabled reports whether a hardware port is attached.
func (e *Emitter) Enabled() bool { return e.port != nil }
