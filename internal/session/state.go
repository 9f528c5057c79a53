package session

import (
	"time"

	"trivia-room-service/internal/domain"
)

// Phase identifies the active variant of the room state union.
type Phase string

const (
	PhaseNotRegistered  Phase = "notRegistered"
	PhaseLobby          Phase = "lobby"
	PhaseAwaitingTurn   Phase = "awaitingTurn"
	PhaseQuestion       Phase = "question"
	PhaseDirectFeedback Phase = "directFeedback"
	PhaseRoomFeedback   Phase = "roomFeedback"
)

// State is the phase-tagged room state. Exactly one variant is active at a
// time; each variant carries only the fields legal in its phase, so a
// populated trivia outside a question phase is unrepresentable. States are
// replaced wholesale by Machine.Apply and never mutated from outside.
type State interface {
	Phase() Phase
}

// NotRegistered is the initial state before a join event arrives.
type NotRegistered struct{}

func (NotRegistered) Phase() Phase { return PhaseNotRegistered }

// Lobby is the pre-round gathering state.
type Lobby struct {
	Roster    *Roster
	CreatorID string
	CreatedAt time.Time
	SelfID    string
	SelfName  string
}

func (Lobby) Phase() Phase { return PhaseLobby }

// Round carries the bookkeeping of an active round between turns.
type Round struct {
	Order       []string
	PointTarget int
	// LastTurnID is the most recently completed turn, empty before the
	// first turn of the round.
	LastTurnID string
	// TurnsPlayed counts completed turns; the next owner is
	// Order[TurnsPlayed % len(Order)].
	TurnsPlayed int
}

// NextOwner returns the player whose turn comes next.
func (r Round) NextOwner() string {
	if len(r.Order) == 0 {
		return ""
	}
	return r.Order[r.TurnsPlayed%len(r.Order)]
}

// AwaitingTurn is the gap between round start (or a finished turn) and the
// next turn:start event.
type AwaitingTurn struct {
	Lobby
	Round Round
}

func (AwaitingTurn) Phase() Phase { return PhaseAwaitingTurn }

// Question is an in-flight turn: a trivia question with a deadline,
// accumulating one submission per participant.
type Question struct {
	AwaitingTurn
	Trivia   domain.Trivia
	TurnID   string
	Deadline time.Time
	Duration time.Duration
	// Received maps submitter id to their ordered answer ids for the
	// current turn only; stale-turn entries are discarded, never merged.
	Received map[string][]string
}

func (Question) Phase() Phase { return PhaseQuestion }

// DirectFeedback shows graded feedback to the turn owner only.
type DirectFeedback struct {
	Question
	Expected []domain.Expectation
}

func (DirectFeedback) Phase() Phase { return PhaseDirectFeedback }

// RoomFeedback shows graded feedback to the whole room.
type RoomFeedback struct {
	Question
	Expected []domain.Expectation
}

func (RoomFeedback) Phase() Phase { return PhaseRoomFeedback }

// RosterOf extracts the roster from any registered state.
func RosterOf(s State) (*Roster, bool) {
	switch st := s.(type) {
	case Lobby:
		return st.Roster, true
	case AwaitingTurn:
		return st.Roster, true
	case Question:
		return st.Roster, true
	case DirectFeedback:
		return st.Roster, true
	case RoomFeedback:
		return st.Roster, true
	}
	return nil, false
}

// QuestionOf extracts the question payload from a question or feedback state.
func QuestionOf(s State) (Question, bool) {
	switch st := s.(type) {
	case Question:
		return st, true
	case DirectFeedback:
		return st.Question, true
	case RoomFeedback:
		return st.Question, true
	}
	return Question{}, false
}

// RoundOf extracts the active round from any in-round state.
func RoundOf(s State) (Round, bool) {
	switch st := s.(type) {
	case AwaitingTurn:
		return st.Round, true
	case Question:
		return st.Round, true
	case DirectFeedback:
		return st.Round, true
	case RoomFeedback:
		return st.Round, true
	}
	return Round{}, false
}

// ExpectedOf extracts the expected answers from a feedback state.
func ExpectedOf(s State) ([]domain.Expectation, bool) {
	switch st := s.(type) {
	case DirectFeedback:
		return st.Expected, true
	case RoomFeedback:
		return st.Expected, true
	}
	return nil, false
}
