package scan

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// stale squelch keys are dropped after this many quiet windows
const pruneFactor = 10

// Fingerprint identifies a logical recurring detection across cycles.
func Fingerprint(pid int, remoteIP net.IP, pattern string) string {
	return fmt.Sprintf("%d|%s|%s", pid, remoteIP.String(), pattern)
}

type squelchEntry struct {
	lastEmitted  time.Time
	lastNotified time.Time
	repeats      int
}

// Decision is what the squelch state allows for one observation.
type Decision struct {
	// Emit allows the event through to the sink this cycle.
	Emit bool
	// Notify allows an operator notification this cycle.
	Notify bool
	// First marks a fingerprint never seen before.
	First bool
	// Repeats counts prior observations of this fingerprint.
	Repeats int
}

// SquelchState suppresses duplicate detections of the same
// fingerprint inside a time window. It accumulates for the process
// lifetime; Prune drops fingerprints that have gone quiet.
type SquelchState struct {
	window time.Duration

	mutex   sync.Mutex
	entries map[string]*squelchEntry
	clock   func() time.Time
}

// NewSquelchState creates squelch tracking with the given window.
func NewSquelchState(window time.Duration) *SquelchState {
	return &SquelchState{
		window:  window,
		entries: make(map[string]*squelchEntry),
		clock:   time.Now,
	}
}

// Observe records one sighting of a fingerprint and decides whether
// it may be emitted and notified. A fingerprint is let through on
// first sight and then once per window while it keeps recurring; in
// between, sightings only bump the repeat count.
func (s *SquelchState) Observe(fingerprint string) Decision {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.clock()
	entry, ok := s.entries[fingerprint]
	if !ok {
		s.entries[fingerprint] = &squelchEntry{
			lastEmitted:  now,
			lastNotified: now,
			repeats:      1,
		}
		return Decision{Emit: true, Notify: true, First: true}
	}

	decision := Decision{Repeats: entry.repeats}
	entry.repeats++

	if now.Sub(entry.lastEmitted) >= s.window {
		entry.lastEmitted = now
		decision.Emit = true
	}
	if now.Sub(entry.lastNotified) >= s.window {
		entry.lastNotified = now
		decision.Notify = true
	}
	return decision
}

// Prune drops fingerprints not emitted for several windows so the
// state cannot grow without bound in watch mode.
func (s *SquelchState) Prune() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := s.clock().Add(-time.Duration(pruneFactor) * s.window)
	pruned := 0
	for fingerprint, entry := range s.entries {
		if entry.lastEmitted.Before(cutoff) {
			delete(s.entries, fingerprint)
			pruned++
		}
	}
	return pruned
}

// Len reports how many fingerprints are currently tracked.
func (s *SquelchState) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}
