package session

import (
	"time"

	"trivia-room-service/internal/domain"
)

// Event is a confirmed incoming session event. The reducer only ever reacts
// to confirmed events, never to optimistic local actions, so the local view
// cannot fork from the authoritative one.
type Event interface {
	event()
}

// Joined confirms the session's own registration in a room.
type Joined struct {
	SelfID    string
	SelfName  string
	CreatorID string
	CreatedAt time.Time
}

// UserNew announces a participant joining or rejoining the room.
type UserNew struct {
	ID      string
	Name    string
	Present bool
}

// UserChanged carries a display-name change.
type UserChanged struct {
	ID   string
	Name string
}

// PresenceChanged bulk-applies presence flags.
type PresenceChanged struct {
	Flags map[string]bool
}

// RoundStarted begins a round with a fixed turn order and point target.
type RoundStarted struct {
	Order       []string
	PointTarget int
}

// TurnStarted installs a new trivia question.
type TurnStarted struct {
	TurnID   string
	Trivia   domain.Trivia
	Duration time.Duration
}

// AnswerSubmitted records one participant's ordered answers for a turn.
type AnswerSubmitted struct {
	TurnID    string
	PlayerID  string
	AnswerIDs []string
}

// TurnFeedback closes submissions and supplies the authoritative expected
// answers for grading.
type TurnFeedback struct {
	TurnID   string
	Expected []domain.Expectation
}

// TurnEnded applies the turn's absolute score results.
type TurnEnded struct {
	TurnID string
	Scores []domain.ScoreEntry
}

func (Joined) event()          {}
func (UserNew) event()         {}
func (UserChanged) event()     {}
func (PresenceChanged) event() {}
func (RoundStarted) event()    {}
func (TurnStarted) event()     {}
func (AnswerSubmitted) event() {}
func (TurnFeedback) event()    {}
func (TurnEnded) event()       {}
