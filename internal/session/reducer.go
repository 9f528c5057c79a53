package session

import (
	"time"

	"trivia-room-service/internal/domain"
)

// Machine folds confirmed events into room states. The reduction is pure
// and synchronous: state' = Apply(state, event), applied in arrival order.
// Events carrying a stale turn id or arriving in the wrong phase are
// discarded silently; an unreliable transport reordering or duplicating
// delivery must never corrupt the session.
type Machine struct {
	now func() time.Time
}

// NewMachine returns a machine using the wall clock.
func NewMachine() *Machine {
	return NewMachineWithClock(time.Now)
}

// NewMachineWithClock allows deterministic deadlines in tests.
func NewMachineWithClock(now func() time.Time) *Machine {
	return &Machine{now: now}
}

// Initial returns the state a session starts in.
func Initial() State {
	return NotRegistered{}
}

// Apply folds one event into the state and returns the successor state.
// Unknown or out-of-phase events return the state unchanged.
func (m *Machine) Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case Joined:
		return m.applyJoined(e)
	case UserNew:
		if roster, ok := RosterOf(s); ok {
			presence := PresenceAbsent
			if e.Present {
				presence = PresencePresent
			}
			roster.Upsert(e.ID, e.Name, presence)
		}
		return s
	case UserChanged:
		return applyUserChanged(s, e)
	case PresenceChanged:
		if roster, ok := RosterOf(s); ok {
			roster.SetPresence(e.Flags)
		}
		return s
	case RoundStarted:
		return applyRoundStarted(s, e)
	case TurnStarted:
		return m.applyTurnStarted(s, e)
	case AnswerSubmitted:
		return applyAnswerSubmitted(s, e)
	case TurnFeedback:
		return applyTurnFeedback(s, e)
	case TurnEnded:
		return applyTurnEnded(s, e)
	}
	return s
}

func (m *Machine) applyJoined(e Joined) State {
	roster := NewRoster()
	roster.Upsert(e.SelfID, e.SelfName, PresencePresent)
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = m.now()
	}
	return Lobby{
		Roster:    roster,
		CreatorID: e.CreatorID,
		CreatedAt: createdAt,
		SelfID:    e.SelfID,
		SelfName:  e.SelfName,
	}
}

func applyUserChanged(s State, e UserChanged) State {
	roster, ok := RosterOf(s)
	if !ok {
		return s
	}
	roster.Upsert(e.ID, e.Name, PresenceUnknown)

	rename := func(l Lobby) Lobby {
		if e.ID == l.SelfID {
			l.SelfName = e.Name
		}
		return l
	}
	switch st := s.(type) {
	case Lobby:
		return rename(st)
	case AwaitingTurn:
		st.Lobby = rename(st.Lobby)
		return st
	case Question:
		st.Lobby = rename(st.Lobby)
		return st
	case DirectFeedback:
		st.Lobby = rename(st.Lobby)
		return st
	case RoomFeedback:
		st.Lobby = rename(st.Lobby)
		return st
	}
	return s
}

func applyRoundStarted(s State, e RoundStarted) State {
	var lobby Lobby
	switch st := s.(type) {
	case Lobby:
		lobby = st
	case DirectFeedback:
		lobby = st.Lobby
	case RoomFeedback:
		lobby = st.Lobby
	default:
		return s
	}

	// Only roster members participate in the turn order.
	order := make([]string, 0, len(e.Order))
	for _, id := range e.Order {
		if lobby.Roster.Has(id) {
			order = append(order, id)
		}
	}
	lobby.Roster.Reorder(order)
	lobby.Roster.ResetScores()

	return AwaitingTurn{
		Lobby: lobby,
		Round: Round{Order: order, PointTarget: e.PointTarget},
	}
}

func (m *Machine) applyTurnStarted(s State, e TurnStarted) State {
	// A question without options would break every grading pass downstream.
	if len(e.Trivia.Options) == 0 {
		return s
	}
	switch st := s.(type) {
	case AwaitingTurn:
		now := m.now()
		return Question{
			AwaitingTurn: st,
			Trivia:       e.Trivia,
			TurnID:       e.TurnID,
			Deadline:     now.Add(e.Duration),
			Duration:     e.Duration,
			Received:     make(map[string][]string),
		}
	case Question:
		// Duplicate delivery of the current turn must not wipe the
		// submissions already gathered.
		return st
	}
	return s
}

func applyAnswerSubmitted(s State, e AnswerSubmitted) State {
	st, ok := s.(Question)
	if !ok || st.TurnID != e.TurnID {
		return s
	}
	if !st.Roster.Has(e.PlayerID) {
		return s
	}
	st.Received[e.PlayerID] = append([]string(nil), e.AnswerIDs...)
	return st
}

func applyTurnFeedback(s State, e TurnFeedback) State {
	st, ok := s.(Question)
	if !ok || st.TurnID != e.TurnID {
		return s
	}
	if st.Trivia.Scope == domain.FeedbackDirect {
		return DirectFeedback{Question: st, Expected: e.Expected}
	}
	return RoomFeedback{Question: st, Expected: e.Expected}
}

func applyTurnEnded(s State, e TurnEnded) State {
	var q Question
	switch st := s.(type) {
	case DirectFeedback:
		q = st.Question
	case RoomFeedback:
		q = st.Question
	default:
		return s
	}
	if q.TurnID != e.TurnID {
		return s
	}

	q.Roster.UpdateScores(e.Scores, e.TurnID)

	round := q.Round
	round.LastTurnID = e.TurnID
	round.TurnsPlayed++

	if round.PointTarget > 0 {
		for _, p := range q.Roster.Players() {
			if q.Roster.GetScore(p.ID) >= round.PointTarget {
				// Round complete: back to the lobby.
				return q.Lobby
			}
		}
	}
	return AwaitingTurn{Lobby: q.Lobby, Round: round}
}
