package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seqlab/cadence/pkg/domain"
)

// Duration wraps time.Duration so YAML configs can use Go duration strings
// ("600ms", "3s") or bare numbers interpreted as seconds, matching the
// original parameter files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts either a duration string or a numeric second count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value at line %d", value.Line)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Timing enumerates every phase duration the engine recognizes.
type Timing struct {
	EncodingFixation    Duration `yaml:"encoding_fixation" json:"encoding_fixation"`
	InterSyllable       Duration `yaml:"inter_syllable" json:"inter_syllable"`
	RetentionDelay      Duration `yaml:"retention_delay" json:"retention_delay"`
	NeutralImpulse      Duration `yaml:"neutral_impulse" json:"neutral_impulse"`
	PostImpulseFixation Duration `yaml:"post_impulse_fixation" json:"post_impulse_fixation"`
	InterReport         Duration `yaml:"inter_report" json:"inter_report"`
	ResponseDisplay     Duration `yaml:"response_display" json:"response_display"`
	Feedback            Duration `yaml:"feedback" json:"feedback"`
	InterTrial          Duration `yaml:"inter_trial" json:"inter_trial"`
	Settle              Duration `yaml:"settle" json:"settle"`

	// ResponseTimeout bounds each report wait. Zero means unbounded, which
	// is the original behavior.
	ResponseTimeout Duration `yaml:"response_timeout" json:"response_timeout"`
}

// TriggerCodes maps each marker event to its hardware code.
type TriggerCodes struct {
	CueStart       int `yaml:"cue_start" json:"cue_start"`
	NeutralImpulse int `yaml:"neutral_impulse" json:"neutral_impulse"`
	GlobalPrompt   int `yaml:"global_prompt" json:"global_prompt"`
	GlobalResponse int `yaml:"global_response" json:"global_response"`
	LocalPrompt    int `yaml:"local_prompt" json:"local_prompt"`
	LocalResponse  int `yaml:"local_response" json:"local_response"`
}

// Code resolves the configured code for a marker event.
func (t TriggerCodes) Code(ev domain.TriggerEvent) int {
	switch ev {
	case domain.TriggerCueStart:
		return t.CueStart
	case domain.TriggerNeutralImpulse:
		return t.NeutralImpulse
	case domain.TriggerGlobalPrompt:
		return t.GlobalPrompt
	case domain.TriggerGlobalResponse:
		return t.GlobalResponse
	case domain.TriggerLocalPrompt:
		return t.LocalPrompt
	case domain.TriggerLocalResponse:
		return t.LocalResponse
	}
	return 0
}

// Keys configures the reserved control keys.
type Keys struct {
	Pause domain.Key `yaml:"pause" json:"pause"`
	Abort domain.Key `yaml:"abort" json:"abort"`
}

// Monitor configures the optional progress/metrics HTTP server.
type Monitor struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// Store selects and configures the result persistence backend.
type Store struct {
	Backend string `yaml:"backend" json:"backend"` // file, sqlite, redis, memory
	Path    string `yaml:"path" json:"path"`       // file directory or sqlite database
	Redis   Redis  `yaml:"redis" json:"redis"`
}

// Redis holds connection settings for the redis store backend.
type Redis struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// Config is the full, typed configuration surface of the experiment.
type Config struct {
	UseTriggers       bool     `yaml:"use_triggers" json:"use_triggers"`
	TriggerPulseWidth Duration `yaml:"trigger_pulse_width" json:"trigger_pulse_width"`
	TriggerDevice     string   `yaml:"trigger_device" json:"trigger_device"`

	Timing   Timing       `yaml:"timing" json:"timing"`
	Triggers TriggerCodes `yaml:"triggers" json:"triggers"`
	Keys     Keys         `yaml:"keys" json:"keys"`

	Designs []domain.BlockDesign `yaml:"designs" json:"designs"`

	// PracticePerBlock marks the first trial of each block as practice.
	PracticePerBlock bool `yaml:"practice_per_block" json:"practice_per_block"`

	AudioPath string `yaml:"audio_path" json:"audio_path"`

	Store   Store   `yaml:"store" json:"store"`
	Monitor Monitor `yaml:"monitor" json:"monitor"`
}

// Default returns the configuration matching the original experiment's
// hyperparameters.
func Default() *Config {
	return &Config{
		UseTriggers:       false,
		TriggerPulseWidth: Duration(10 * time.Millisecond),
		TriggerDevice:     "/dev/parport0",
		Timing: Timing{
			EncodingFixation:    Duration(600 * time.Millisecond),
			InterSyllable:       Duration(500 * time.Millisecond),
			RetentionDelay:      Duration(3 * time.Second),
			NeutralImpulse:      Duration(100 * time.Millisecond),
			PostImpulseFixation: Duration(800 * time.Millisecond),
			InterReport:         Duration(200 * time.Millisecond),
			ResponseDisplay:     Duration(500 * time.Millisecond),
			Feedback:            Duration(2 * time.Second),
			InterTrial:          Duration(1 * time.Second),
			Settle:              Duration(100 * time.Millisecond),
			ResponseTimeout:     Duration(10 * time.Second),
		},
		Triggers: TriggerCodes{
			CueStart:       1,
			NeutralImpulse: 2,
			GlobalPrompt:   3,
			GlobalResponse: 4,
			LocalPrompt:    5,
			LocalResponse:  6,
		},
		Keys: Keys{
			Pause: "p",
			Abort: "escape",
		},
		Designs: []domain.BlockDesign{
			{Name: "three_3_syllable_words", NumWords: 3, SyllablesPerWord: 3},
			{Name: "three_4_syllable_words", NumWords: 3, SyllablesPerWord: 4},
			{Name: "four_3_syllable_words", NumWords: 4, SyllablesPerWord: 3},
		},
		PracticePerBlock: true,
		AudioPath:        "chinese_audio_output",
		Store: Store{
			Backend: "file",
			Path:    "Data",
		},
		Monitor: Monitor{
			Enabled: false,
			Addr:    ":2112",
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration at construction time so invalid options
// surface before the first trial, not in the middle of a block.
func (c *Config) Validate() error {
	if len(c.Designs) == 0 {
		return fmt.Errorf("config: at least one block design is required")
	}
	seen := make(map[string]bool, len(c.Designs))
	for _, d := range c.Designs {
		if d.Name == "" {
			return fmt.Errorf("config: design with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("config: duplicate design %q", d.Name)
		}
		seen[d.Name] = true
		if d.NumWords < 1 || d.SyllablesPerWord < 1 {
			return fmt.Errorf("config: design %q needs positive word and syllable counts", d.Name)
		}
		// Responses are single digit keys.
		if d.NumWords > 9 || d.SyllablesPerWord > 9 {
			return fmt.Errorf("config: design %q exceeds the 9-position response keypad", d.Name)
		}
	}

	for name, d := range map[string]Duration{
		"encoding_fixation":     c.Timing.EncodingFixation,
		"inter_syllable":        c.Timing.InterSyllable,
		"retention_delay":       c.Timing.RetentionDelay,
		"neutral_impulse":       c.Timing.NeutralImpulse,
		"post_impulse_fixation": c.Timing.PostImpulseFixation,
		"inter_report":          c.Timing.InterReport,
		"response_display":      c.Timing.ResponseDisplay,
		"feedback":              c.Timing.Feedback,
		"inter_trial":           c.Timing.InterTrial,
		"settle":                c.Timing.Settle,
		"response_timeout":      c.Timing.ResponseTimeout,
		"trigger_pulse_width":   c.TriggerPulseWidth,
	} {
		if d < 0 {
			return fmt.Errorf("config: timing.%s must not be negative", name)
		}
	}

	if c.Keys.Pause == "" || c.Keys.Abort == "" {
		return fmt.Errorf("config: pause and abort keys must be set")
	}
	if c.Keys.Pause == c.Keys.Abort {
		return fmt.Errorf("config: pause and abort keys must differ")
	}

	switch c.Store.Backend {
	case "file", "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	return nil
}

// Design looks up a design by name.
func (c *Config) Design(name string) (domain.BlockDesign, bool) {
	for _, d := range c.Designs {
		if d.Name == name {
			return d, true
		}
	}
	return domain.BlockDesign{}, false
}

// Snapshot renders the config as a generic map for inclusion in persisted
// run records.
func (c *Config) Snapshot() map[string]any {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
