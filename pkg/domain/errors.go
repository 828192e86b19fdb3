package domain

import "errors"

// ErrCancelled is returned when the operator cancels subject-info collection
// before the run starts.
var ErrCancelled = errors.New("cancelled by operator")

// ErrNoBlocks is returned when a design has no available blocks in the
// inventory. The run cannot proceed meaningfully.
var ErrNoBlocks = errors.New("design has no available blocks")

// ErrRunNotFound is returned when a run ID cannot be found in a result store.
var ErrRunNotFound = errors.New("run not found")

// ErrInputClosed is returned when the input source is closed while a wait is
// in progress.
var ErrInputClosed = errors.New("input source closed")

// ErrStateClosed is returned on access to run state after teardown.
var ErrStateClosed = errors.New("run state already torn down")
