package app

import (
	"sync"
	"time"
)

// TurnWatchdog mitigates a dropped turn:start broadcast. While a room sits
// between turns it schedules a retry; every consecutive miss widens the
// wait by one budget so a slow turn owner is given room before the service
// steps in. A stale timer firing after the awaited state changed is a
// no-op: the generation check here and the phase/turn-id re-check on the
// request path both guard it.
type TurnWatchdog struct {
	budget  time.Duration
	request func(fromTurnID string)

	mu       sync.Mutex
	timer    *time.Timer
	gen      int
	armed    bool
	armedFor string
	misses   int
}

// NewTurnWatchdog builds a watchdog with a fixed per-turn budget. A zero
// or negative budget disables it.
func NewTurnWatchdog(budget time.Duration, request func(fromTurnID string)) *TurnWatchdog {
	return &TurnWatchdog{budget: budget, request: request}
}

// Arm starts waiting for the turn after fromTurnID. Arming again for the
// same awaited turn is a no-op; the escalation is driven by the timer
// itself, not by repeated arming.
func (w *TurnWatchdog) Arm(fromTurnID string) {
	if w == nil || w.budget <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed && w.armedFor == fromTurnID {
		return
	}
	w.armed = true
	w.armedFor = fromTurnID
	w.misses = 0
	w.scheduleLocked(fromTurnID)
}

func (w *TurnWatchdog) scheduleLocked(fromTurnID string) {
	w.gen++
	gen := w.gen
	w.misses++
	wait := w.budget * time.Duration(w.misses)

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(wait, func() {
		w.mu.Lock()
		stale := gen != w.gen
		w.mu.Unlock()
		if stale {
			return
		}
		w.request(fromTurnID)

		// Keep retrying until the awaited state changes and Disarm runs.
		w.mu.Lock()
		if gen == w.gen && w.armed && w.armedFor == fromTurnID {
			w.scheduleLocked(fromTurnID)
		}
		w.mu.Unlock()
	})
}

// Disarm cancels any pending retry. Called whenever the room leaves the
// between-turns state: the condition the timer was waiting on no longer
// holds.
func (w *TurnWatchdog) Disarm() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.armed = false
	w.armedFor = ""
	w.misses = 0
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
