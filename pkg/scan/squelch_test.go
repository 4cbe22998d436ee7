package scan

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSquelch(window time.Duration) (*SquelchState, *time.Time) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewSquelchState(window)
	state.clock = func() time.Time { return now }
	return state, &now
}

func TestSquelchFirstSight(t *testing.T) {
	state, _ := newTestSquelch(time.Minute)

	decision := state.Observe("42|10.0.0.5|telemetry.example.com")
	assert.True(t, decision.Emit, "first sight always emits")
	assert.True(t, decision.Notify, "first sight always notifies")
	assert.True(t, decision.First)
	assert.Equal(t, 0, decision.Repeats)
}

func TestSquelchSuppressesWithinWindow(t *testing.T) {
	state, now := newTestSquelch(time.Minute)
	fingerprint := Fingerprint(42, net.ParseIP("10.0.0.5"), "telemetry.example.com")

	state.Observe(fingerprint)
	*now = now.Add(10 * time.Second)

	decision := state.Observe(fingerprint)
	assert.False(t, decision.Emit, "repeats inside the window must be suppressed")
	assert.False(t, decision.Notify)
	assert.False(t, decision.First)
	assert.Equal(t, 1, decision.Repeats)

	*now = now.Add(10 * time.Second)
	decision = state.Observe(fingerprint)
	assert.False(t, decision.Emit)
	assert.Equal(t, 2, decision.Repeats, "suppressed sightings still count")
}

func TestSquelchReEmitsOncePerWindow(t *testing.T) {
	state, now := newTestSquelch(time.Minute)
	fingerprint := Fingerprint(42, net.ParseIP("10.0.0.5"), "telemetry.example.com")

	state.Observe(fingerprint)
	*now = now.Add(time.Minute)

	decision := state.Observe(fingerprint)
	assert.True(t, decision.Emit, "long lived violations resurface once per window")
	assert.True(t, decision.Notify)
	assert.False(t, decision.First, "a re-emission is not a first sight")
	assert.Equal(t, 1, decision.Repeats)

	*now = now.Add(time.Second)
	decision = state.Observe(fingerprint)
	assert.False(t, decision.Emit, "the window restarts after a re-emission")
}

func TestSquelchDistinctFingerprints(t *testing.T) {
	state, _ := newTestSquelch(time.Minute)

	state.Observe(Fingerprint(42, net.ParseIP("10.0.0.5"), "telemetry.example.com"))
	decision := state.Observe(Fingerprint(43, net.ParseIP("10.0.0.5"), "telemetry.example.com"))
	assert.True(t, decision.Emit, "a different pid is a different detection")
	assert.Equal(t, 2, state.Len())
}

func TestSquelchPrune(t *testing.T) {
	state, now := newTestSquelch(time.Minute)

	state.Observe("stale")
	*now = now.Add(5 * time.Minute)
	state.Observe("fresh")

	require.Equal(t, 0, state.Prune(), "keys inside the retention span survive")

	*now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, state.Prune(), "keys quiet for many windows are dropped")
	assert.Equal(t, 1, state.Len())
}
