package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/pkg/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Designs, 3)
	assert.Equal(t, 10*time.Millisecond, cfg.TriggerPulseWidth.Std())
	assert.Equal(t, 600*time.Millisecond, cfg.Timing.EncodingFixation.Std())
	assert.Equal(t, 1, cfg.Triggers.Code(domain.TriggerCueStart))
	assert.Equal(t, 6, cfg.Triggers.Code(domain.TriggerLocalResponse))
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	yaml := `
timing:
  encoding_fixation: 250ms
  retention_delay: 2.5
  response_timeout: 0s
keys:
  pause: q
  abort: escape
store:
  backend: sqlite
  path: out.db
designs:
  - name: two_2_syllable_words
    num_words: 2
    syllables_per_word: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Timing.EncodingFixation.Std())
	// Bare numbers are seconds, matching the original parameter files.
	assert.Equal(t, 2500*time.Millisecond, cfg.Timing.RetentionDelay.Std())
	// Zero timeout means the wait is unbounded.
	assert.Equal(t, time.Duration(0), cfg.Timing.ResponseTimeout.Std())
	assert.Equal(t, domain.Key("q"), cfg.Keys.Pause)
	assert.Equal(t, "sqlite", cfg.Store.Backend)

	// Designs replace rather than merge.
	require.Len(t, cfg.Designs, 1)
	assert.Equal(t, 2, cfg.Designs[0].NumWords)

	// Untouched fields keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.InterSyllable.Std())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keys:\n  pause: p\n  abort: p\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pause and abort keys must differ")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "no designs",
			mutate:  func(c *config.Config) { c.Designs = nil },
			wantErr: "at least one block design",
		},
		{
			name: "duplicate design",
			mutate: func(c *config.Config) {
				c.Designs = append(c.Designs, c.Designs[0])
			},
			wantErr: "duplicate design",
		},
		{
			name: "too many positions for the keypad",
			mutate: func(c *config.Config) {
				c.Designs[0].NumWords = 10
			},
			wantErr: "9-position response keypad",
		},
		{
			name: "negative duration",
			mutate: func(c *config.Config) {
				c.Timing.RetentionDelay = config.Duration(-time.Second)
			},
			wantErr: "must not be negative",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Store.Backend = "csv" },
			wantErr: "unknown store backend",
		},
		{
			name:    "missing abort key",
			mutate:  func(c *config.Config) { c.Keys.Abort = "" },
			wantErr: "must be set",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDesign_Lookup(t *testing.T) {
	cfg := config.Default()

	d, ok := cfg.Design("four_3_syllable_words")
	require.True(t, ok)
	assert.Equal(t, 4, d.NumWords)

	_, ok = cfg.Design("five_5_syllable_words")
	assert.False(t, ok)
}

func TestSnapshot_RoundTripsKeyParameters(t *testing.T) {
	snap := config.Default().Snapshot()
	require.NotNil(t, snap)

	timing, ok := snap["timing"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "600ms", timing["encoding_fixation"])

	assert.Equal(t, false, snap["use_triggers"])
}
