// Package ports defines the call-level boundaries between the experiment
// core and its collaborators: timing, display, stimulus playback, keyed
// input, hardware triggers, the stimulus inventory, result persistence and
// subject-info collection. Adapters live under internal/adapters; the core
// depends only on these interfaces.
package ports
