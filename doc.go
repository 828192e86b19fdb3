/*
Package cadence is a timed auditory-sequence memory experiment engine: it encodes
spoken syllable sequences, replays a retrieval cue, collects paired position
judgements under millisecond phase timing, and persists every trial.

# Concept

A session is a counterbalanced sequence of blocks; each block is a sequence of
trials; each trial is a fixed phase machine (fixation, encoding, cue, retention,
impulse, two report prompts, feedback). The engine owns the phase machine and
timing; everything that touches the outside world — screen, audio files,
keyboard, trigger hardware, result storage — is a port with swappable adapters.
This hexagonal split lets the same engine drive a lab terminal with EEG trigger
pulses or a fully synthetic headless run in tests.

# Key Features

  - Deterministic scheduling: block order and report order come from one
    injected random source, so a seeded run reproduces the whole session.
  - Cooperative control: pause and abort are honored at phase boundaries, and
    paused time never counts against a response deadline.
  - Just-in-time stimuli: audio is opened per phase and released before the
    next, holding at most one handle at a time.
  - Timeouts are data: a missed response is recorded as a valid trial with
    null response and reaction time, never as an error.
  - Pluggable persistence: file, SQLite, Redis, or in-memory result stores
    behind one contract.

# Usage

Build an Experiment from a YAML config (or the built-in defaults) and run it:

	package main

	import (
		"context"
		"log"

		"github.com/seqlab/cadence"
	)

	func main() {
		exp, err := cadence.New("experiment.yaml")
		if err != nil {
			log.Fatal(err)
		}

		report, err := exp.Run(context.Background())
		if err != nil {
			log.Fatal(err)
		}

		log.Printf("run %s: %.1f%% both correct over %d trials",
			report.RunID, report.Summary.BothAccuracy, report.Summary.Trials)
	}

Every port has a With... option; see examples/headless-session for a session
run entirely against synthetic adapters.
*/
package cadence
