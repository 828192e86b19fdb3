package cadence

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/seqlab/cadence/internal/adapters/console"
	"github.com/seqlab/cadence/internal/adapters/file"
	"github.com/seqlab/cadence/internal/adapters/fsinventory"
	"github.com/seqlab/cadence/internal/adapters/wavefile"
	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Experiment is the high-level entry point. It wires the internal runtime
// to the configured adapters and exposes a single Run call per session.
type Experiment struct {
	cfg     *config.Config
	logger  *slog.Logger
	clock   ports.Clock
	display ports.Display
	opener  ports.StimulusOpener
	input   ports.InputSource
	trigger ports.TriggerPort
	store   ports.ResultStore
	inv     ports.Inventory
	subject ports.SubjectInfoProvider
	hooks   []*domain.LifecycleHooks
	rng     *rand.Rand
}

// Option configures an Experiment.
type Option func(*Experiment)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) { e.logger = logger }
}

// WithClock substitutes the wall clock, mainly for tests.
func WithClock(clock ports.Clock) Option {
	return func(e *Experiment) { e.clock = clock }
}

// WithDisplay replaces the default terminal display.
func WithDisplay(d ports.Display) Option {
	return func(e *Experiment) { e.display = d }
}

// WithOpener replaces the default WAV stimulus opener.
func WithOpener(o ports.StimulusOpener) Option {
	return func(e *Experiment) { e.opener = o }
}

// WithInputSource replaces the default raw-terminal keyboard. When set, the
// experiment does not touch terminal modes.
func WithInputSource(src ports.InputSource) Option {
	return func(e *Experiment) { e.input = src }
}

// WithTriggerPort attaches a hardware trigger port. Without one, marker
// events still flow to hooks but no pulses are emitted.
func WithTriggerPort(p ports.TriggerPort) Option {
	return func(e *Experiment) { e.trigger = p }
}

// WithStore replaces the default file-backed result store.
func WithStore(s ports.ResultStore) Option {
	return func(e *Experiment) { e.store = s }
}

// WithInventory replaces the default directory-scanning stimulus inventory.
func WithInventory(inv ports.Inventory) Option {
	return func(e *Experiment) { e.inv = inv }
}

// WithSubjectProvider replaces the interactive subject prompt.
func WithSubjectProvider(p ports.SubjectInfoProvider) Option {
	return func(e *Experiment) { e.subject = p }
}

// WithHooks registers lifecycle hooks. May be given multiple times; all
// registered hook sets observe every event.
func WithHooks(h *domain.LifecycleHooks) Option {
	return func(e *Experiment) { e.hooks = append(e.hooks, h) }
}

// WithRand sets the randomness source used for block ordering and report
// order coin flips. Seed it for reproducible schedules.
func WithRand(rng *rand.Rand) Option {
	return func(e *Experiment) { e.rng = rng }
}

// New builds an experiment from a YAML config file. An empty path uses the
// built-in defaults, which mirror the original study parameters.
func New(configPath string, opts ...Option) (*Experiment, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig builds an experiment from an already validated config.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.clock == nil {
		e.clock = ports.SystemClock{}
	}
	if e.display == nil {
		e.display = console.New()
	}
	if e.opener == nil {
		e.opener = wavefile.New(e.logger)
	}
	if e.inv == nil {
		e.inv = fsinventory.New(cfg.AudioPath, e.logger)
	}
	if e.store == nil {
		e.store = file.New(cfg.Store.Path)
	}
	if e.subject == nil {
		e.subject = console.NewPrompter(nil, nil)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if cfg.UseTriggers && e.trigger == nil {
		return nil, fmt.Errorf("use_triggers is set but no trigger port was provided")
	}
	return e, nil
}

// Config exposes the validated configuration, read-only by convention.
func (e *Experiment) Config() *config.Config { return e.cfg }
