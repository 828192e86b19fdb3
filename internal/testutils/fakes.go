package testutils

import (
	"sync"
	"time"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// FakeClock is a virtual clock: Sleep advances time instantly and After
// fires immediately with time advanced, so engine tests run in microseconds
// while still observing every hold.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	Sleeps int
}

// NewFakeClock starts at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.Sleeps++
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	at := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- at
	return ch
}

// Advance moves the clock without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Slept returns the recorded sleep durations in order.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

// ScriptedInput is a fake InputSource fed from the test. Queued keys are
// delivered in order; closing the source simulates a dead input device.
type ScriptedInput struct {
	ch     chan ports.KeyEvent
	closed bool
	mu     sync.Mutex
}

// NewScriptedInput creates a source with room for queued events.
func NewScriptedInput() *ScriptedInput {
	return &ScriptedInput{ch: make(chan ports.KeyEvent, 64)}
}

func (s *ScriptedInput) Events() <-chan ports.KeyEvent { return s.ch }

func (s *ScriptedInput) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// Press queues key presses.
func (s *ScriptedInput) Press(keys ...domain.Key) {
	for _, k := range keys {
		s.ch <- ports.KeyEvent{Key: k, At: time.Now()}
	}
}

// RecordingTrigger is a TriggerPort that records every pulsed code.
type RecordingTrigger struct {
	mu    sync.Mutex
	codes []int
	Err   error // returned by Pulse when set
}

func (r *RecordingTrigger) Pulse(code int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.codes = append(r.codes, code)
	return nil
}

// Codes returns the pulsed codes in emission order.
func (r *RecordingTrigger) Codes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.codes))
	copy(out, r.codes)
	return out
}

// RecordingDisplay records the sequence of display calls.
type RecordingDisplay struct {
	mu    sync.Mutex
	Calls []string
}

func (d *RecordingDisplay) record(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, s)
	return nil
}

func (d *RecordingDisplay) Fixation() error         { return d.record("fixation") }
func (d *RecordingDisplay) Impulse() error          { return d.record("impulse") }
func (d *RecordingDisplay) Blank() error            { return d.record("blank") }
func (d *RecordingDisplay) Message(text string) error { return d.record("message: " + text) }

// Messages returns only the message texts shown so far.
func (d *RecordingDisplay) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.Calls {
		if len(c) > 9 && c[:9] == "message: " {
			out = append(out, c[9:])
		}
	}
	return out
}

// FakeOpener hands out FakeHandles and tracks how many are open at once, so
// tests can assert the one-handle resource bound.
type FakeOpener struct {
	mu       sync.Mutex
	open     int
	MaxOpen  int
	Opened   []string
	Duration time.Duration
	FailFor  map[string]error // paths whose Open fails
}

// NewFakeOpener creates an opener whose handles report the given duration.
func NewFakeOpener(d time.Duration) *FakeOpener {
	return &FakeOpener{Duration: d}
}

func (o *FakeOpener) Open(ref domain.ItemRef) (ports.StimulusHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.FailFor[ref.Path]; ok {
		return nil, err
	}
	o.open++
	if o.open > o.MaxOpen {
		o.MaxOpen = o.open
	}
	o.Opened = append(o.Opened, ref.Path)
	return &fakeHandle{opener: o, duration: o.Duration}, nil
}

func (o *FakeOpener) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open--
}

type fakeHandle struct {
	opener   *FakeOpener
	duration time.Duration
	closed   bool
}

func (h *fakeHandle) Play() error { return nil }

func (h *fakeHandle) Duration() time.Duration { return h.duration }

func (h *fakeHandle) Close() error {
	if !h.closed {
		h.closed = true
		h.opener.release()
	}
	return nil
}
