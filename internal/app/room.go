package app

import (
	"fmt"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/session"
)

// Room owns one session state machine and fans state snapshots out to
// subscribers. All event application happens under the room lock, in
// arrival order; the reducer itself stays single-threaded.
type Room struct {
	id      string
	machine *session.Machine
	now     func() time.Time

	mu          sync.RWMutex
	state       session.State
	turnSeq     int
	deckCursor  int
	watchdog    *TurnWatchdog
	subscribers map[chan Snapshot]struct{}
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(id string) *Room {
	return NewRoomWithClock(id, time.Now)
}

// NewRoomWithClock is test-only for deterministic deadlines.
func NewRoomWithClock(id string, now func() time.Time) *Room {
	return &Room{
		id:          id,
		machine:     session.NewMachineWithClock(now),
		now:         now,
		state:       session.Initial(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// State returns the current state. The returned value must be treated as
// read-only.
func (r *Room) State() session.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// apply folds an event into the room state, disarms a pending turn
// watchdog (the awaited condition changed), re-arms it when the room is
// between turns, and broadcasts the new snapshot.
func (r *Room) apply(ev session.Event) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.machine.Apply(r.state, ev)

	if r.watchdog != nil {
		if at, ok := r.state.(session.AwaitingTurn); ok {
			r.watchdog.Arm(at.Round.LastTurnID)
		} else {
			r.watchdog.Disarm()
		}
	}
	return r.broadcastLocked()
}

// IsEmpty reports whether no participant is currently present.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roster, ok := session.RosterOf(r.state)
	if !ok {
		return true
	}
	for _, p := range roster.Players() {
		if p.Present {
			return false
		}
	}
	return true
}

// startTurn draws the next deck question and opens a turn, all under one
// lock so a racing client request and watchdog retry cannot both consume a
// question. A stale fromTurnID, or any phase other than between-turns, is
// a silent no-op returning the current snapshot.
func (r *Room) startTurn(fromTurnID string, deck domain.Deck, duration time.Duration) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, awaiting := r.state.(session.AwaitingTurn)
	if !awaiting || at.Round.LastTurnID != fromTurnID {
		return r.snapshotLocked(), nil
	}
	if r.deckCursor >= len(deck.Questions) {
		return Snapshot{}, domain.ErrDeckExhausted
	}
	trivia := deck.Questions[r.deckCursor]
	r.deckCursor++
	r.turnSeq++

	r.state = r.machine.Apply(r.state, session.TurnStarted{
		TurnID:   turnID(r.turnSeq),
		Trivia:   trivia,
		Duration: duration,
	})
	if r.watchdog != nil {
		r.watchdog.Disarm()
	}
	return r.broadcastLocked(), nil
}

// subscribe registers a snapshot channel. The caller must invoke the
// returned cancel function to avoid leaks.
func (r *Room) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked() Snapshot {
	snap := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow client never blocks
			// the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

// stop cancels the watchdog; called before a room is dropped.
func (r *Room) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchdog != nil {
		r.watchdog.Disarm()
	}
}

// turnID is zero-padded so turn ids sort lexically in logs.
func turnID(seq int) string {
	return fmt.Sprintf("turn-%04d", seq)
}

// Snapshot is the read-only view of a room state handed to transports.
// Grading secrets (correct flags, stat values) never appear in it.
type Snapshot struct {
	RoomID    string               `json:"roomId"`
	Phase     session.Phase        `json:"phase"`
	CreatorID string               `json:"creatorId"`
	Players   []PlayerView         `json:"players"`
	Round     *RoundView           `json:"round,omitempty"`
	Turn      *TurnView            `json:"turn,omitempty"`
	Expected  []domain.Expectation `json:"expected,omitempty"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// PlayerView is the roster entry exposed to clients.
type PlayerView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Score   int    `json:"score"`
}

// RoundView summarizes the active round.
type RoundView struct {
	Order       []string `json:"order"`
	PointTarget int      `json:"pointTarget"`
	LastTurnID  string   `json:"lastTurnId,omitempty"`
	NextOwner   string   `json:"nextOwner,omitempty"`
}

// OptionView is a trivia option stripped of grading secrets.
type OptionView struct {
	ID            string `json:"id"`
	Answer        string `json:"answer"`
	QuestionValue int    `json:"questionValue"`
}

// TurnView describes the in-flight or just-graded turn.
type TurnView struct {
	TurnID     string            `json:"turnId"`
	Question   string            `json:"question"`
	Options    []OptionView      `json:"options"`
	AnswerType domain.AnswerType `json:"answerType"`
	MinAnswers int               `json:"minAnswers"`
	MaxAnswers int               `json:"maxAnswers"`
	Deadline   time.Time         `json:"deadline"`
	Submitted  []string          `json:"submitted"`
}

func (r *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		RoomID:    r.id,
		Phase:     r.state.Phase(),
		UpdatedAt: r.now(),
	}

	if roster, ok := session.RosterOf(r.state); ok {
		for _, p := range roster.Players() {
			snap.Players = append(snap.Players, PlayerView{
				ID:      p.ID,
				Name:    p.Name,
				Present: p.Present,
				Score:   roster.GetScore(p.ID),
			})
		}
	}
	switch st := r.state.(type) {
	case session.Lobby:
		snap.CreatorID = st.CreatorID
	case session.AwaitingTurn:
		snap.CreatorID = st.CreatorID
	case session.Question:
		snap.CreatorID = st.CreatorID
	case session.DirectFeedback:
		snap.CreatorID = st.CreatorID
	case session.RoomFeedback:
		snap.CreatorID = st.CreatorID
	}

	if round, ok := session.RoundOf(r.state); ok {
		snap.Round = &RoundView{
			Order:       round.Order,
			PointTarget: round.PointTarget,
			LastTurnID:  round.LastTurnID,
			NextOwner:   round.NextOwner(),
		}
	}
	if q, ok := session.QuestionOf(r.state); ok {
		view := &TurnView{
			TurnID:     q.TurnID,
			Question:   q.Trivia.Question,
			AnswerType: q.Trivia.AnswerType,
			MinAnswers: q.Trivia.MinAnswers,
			MaxAnswers: q.Trivia.MaxAnswers,
			Deadline:   q.Deadline,
		}
		for _, opt := range q.Trivia.Options {
			view.Options = append(view.Options, OptionView{
				ID:            opt.ID,
				Answer:        opt.Answer,
				QuestionValue: opt.QuestionValue,
			})
		}
		if roster, ok := session.RosterOf(r.state); ok {
			for _, p := range roster.Players() {
				if _, submitted := q.Received[p.ID]; submitted {
					view.Submitted = append(view.Submitted, p.ID)
				}
			}
		}
		snap.Turn = view
	}
	if expected, ok := session.ExpectedOf(r.state); ok {
		snap.Expected = expected
	}
	return snap
}
