package runtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/runtime"
	"github.com/seqlab/cadence/internal/testutils"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Pause and timeout-budget semantics depend on real elapsed time, so these
// tests run against the system clock with short waits.
func newController(src ports.InputSource) (*runtime.InputController, *runtime.RunState) {
	state := runtime.NewRunState()
	c := runtime.NewInputController(src, ports.SystemClock{}, state, "p", "escape", nil)
	return c, state
}

func TestWaitForKey_ReturnsAllowedKey(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	src.Press("3")
	key, _, out := c.WaitForKey([]domain.Key{"1", "2", "3"}, time.Second)

	assert.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("3"), key)
}

func TestWaitForKey_IgnoresDisallowedKeys(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	src.Press("9", "x", "2")
	key, _, out := c.WaitForKey([]domain.Key{"1", "2"}, time.Second)

	assert.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("2"), key)
}

func TestWaitForKey_TimesOut(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	key, elapsed, out := c.WaitForKey([]domain.Key{"1"}, 30*time.Millisecond)

	assert.Equal(t, domain.OutcomeTimedOut, out)
	assert.Empty(t, key)
	// A timed-out wait reports the full timeout as its elapsed time.
	assert.Equal(t, 30*time.Millisecond, elapsed)
}

func TestWaitForKey_QueuedKeyBeatsExpiredDeadline(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	src.Press("1")
	time.Sleep(20 * time.Millisecond)

	// The deadline may already be expired when we poll; the queued response
	// must still win.
	key, _, out := c.WaitForKey([]domain.Key{"1"}, 10*time.Millisecond)
	assert.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("1"), key)
}

func TestWaitForKey_AbortKey(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	src.Press("escape")
	_, _, out := c.WaitForKey([]domain.Key{"1"}, time.Second)

	assert.Equal(t, domain.OutcomeAborted, out)
	assert.True(t, state.Aborted())
}

func TestWaitForKey_ClosedSourceAborts(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	src.Close()
	_, _, out := c.WaitForKey(nil, time.Second)

	assert.Equal(t, domain.OutcomeAborted, out)
	assert.True(t, state.Aborted())
}

func TestWaitForKey_PauseDoesNotConsumeBudget(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	var transitions []bool
	c.SetPauseNotifier(func(paused bool) { transitions = append(transitions, paused) })

	go func() {
		src.Press("p")
		time.Sleep(300 * time.Millisecond) // longer than the whole timeout
		src.Press("p")
		src.Press("2")
	}()

	key, elapsed, out := c.WaitForKey([]domain.Key{"1", "2"}, 150*time.Millisecond)

	require.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("2"), key)
	// Paused time was excluded from both the deadline and the reported RT.
	assert.Less(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestWaitForKey_AbortWhilePaused(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	go func() {
		src.Press("p")
		time.Sleep(20 * time.Millisecond)
		src.Press("escape")
	}()

	_, _, out := c.WaitForKey([]domain.Key{"1"}, 0)
	assert.Equal(t, domain.OutcomeAborted, out)
	assert.True(t, state.Aborted())
}

func TestWaitForKey_UnboundedWait(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	go func() {
		time.Sleep(50 * time.Millisecond)
		src.Press("1")
	}()

	// Zero timeout means no deadline at all.
	key, _, out := c.WaitForKey([]domain.Key{"1"}, 0)
	assert.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("1"), key)
}

func TestDrain_DiscardsStaleKeys(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	src.Press("5", "7")
	c.Drain()

	src.Press("2")
	key, _, out := c.WaitForKey(nil, time.Second)
	assert.Equal(t, domain.OutcomeContinue, out)
	assert.Equal(t, domain.Key("2"), key)
}

func TestDrain_StillHonorsAbort(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	src.Press("4", "escape")
	c.Drain()

	assert.True(t, state.Aborted())
}

func TestCheckpoint_AbortsOnPendingAbortKey(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, _ := newController(src)

	src.Press("escape")
	assert.Equal(t, domain.OutcomeAborted, c.Checkpoint())
}

func TestCheckpoint_PairedPauseTogglesCancelOut(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	// Pause pressed and released during a hold: by the boundary, the run is
	// not paused and the checkpoint passes straight through.
	src.Press("p", "p")
	assert.Equal(t, domain.OutcomeContinue, c.Checkpoint())
	assert.False(t, state.Paused())
}

func TestCheckpoint_BlocksWhilePaused(t *testing.T) {
	src := testutils.NewScriptedInput()
	c, state := newController(src)

	src.Press("p")
	go func() {
		time.Sleep(30 * time.Millisecond)
		src.Press("p")
	}()

	start := time.Now()
	out := c.Checkpoint()

	assert.Equal(t, domain.OutcomeContinue, out)
	assert.False(t, state.Paused())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
