package session

import (
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/orderedset"
)

// Presence is the tri-state presence flag carried by roster upserts.
// Unknown preserves whatever the roster already knows.
type Presence int

const (
	PresenceUnknown Presence = iota
	PresencePresent
	PresenceAbsent
)

// Grade is the outcome recorded for a player on one specific turn.
type Grade struct {
	TurnID  string
	Correct bool
}

// Player is one roster entry. Players are never deleted, only marked absent.
type Player struct {
	ID        string
	Name      string
	Present   bool
	LastGrade *Grade
}

// Roster tracks the room's participants in arrival order (re-orderable to a
// turn order), their cumulative scores, and their last recorded grade.
// Every id appearing in the score ledger also appears in the ordered set.
// Queries for unknown ids degrade to zero values; the roster never trusts
// event payloads to be internally consistent.
type Roster struct {
	players *orderedset.Set[*Player]
	scores  map[string]int
}

func playerKey(p *Player) string { return p.ID }

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{
		players: orderedset.New(playerKey),
		scores:  make(map[string]int),
	}
}

// Upsert inserts a new player or replaces the name and presence of an
// existing one. PresenceUnknown keeps the current presence.
func (r *Roster) Upsert(id, name string, presence Presence) {
	if existing, ok := r.player(id); ok {
		if name != "" {
			existing.Name = name
		}
		switch presence {
		case PresencePresent:
			existing.Present = true
		case PresenceAbsent:
			existing.Present = false
		}
		return
	}
	p := &Player{ID: id, Name: name, Present: presence == PresencePresent}
	r.players.Append(p)
	r.scores[id] = 0
}

// SetPresence bulk-applies presence flags. Unknown ids are ignored.
func (r *Roster) SetPresence(flags map[string]bool) {
	for id, present := range flags {
		if p, ok := r.player(id); ok {
			p.Present = present
		}
	}
}

// UpdateScores sets absolute cumulative scores and, for graded entries,
// records the last grade tagged with turnID. Applying the same entries
// twice is a no-op by construction.
func (r *Roster) UpdateScores(entries []domain.ScoreEntry, turnID string) {
	for _, entry := range entries {
		p, ok := r.player(entry.PlayerID)
		if !ok {
			continue
		}
		r.scores[entry.PlayerID] = entry.ScoreAfter
		if entry.Graded {
			p.LastGrade = &Grade{TurnID: turnID, Correct: entry.Correct}
		}
	}
}

// ResetScores zeroes the ledger and clears recorded grades for a new round.
func (r *Roster) ResetScores() {
	for _, p := range r.players.Values() {
		r.scores[p.ID] = 0
		p.LastGrade = nil
	}
}

// GetGrade returns the recorded grade only when it belongs to turnID.
// Stale grades must not leak into a new turn's feedback.
func (r *Roster) GetGrade(id, turnID string) (bool, bool) {
	p, ok := r.player(id)
	if !ok || p.LastGrade == nil || p.LastGrade.TurnID != turnID {
		return false, false
	}
	return p.LastGrade.Correct, true
}

// GetScore returns the cumulative score, zero for unknown ids.
func (r *Roster) GetScore(id string) int {
	return r.scores[id]
}

// GetPlayerName returns the player's display name, empty for unknown ids.
func (r *Roster) GetPlayerName(id string) string {
	if p, ok := r.player(id); ok {
		return p.Name
	}
	return ""
}

// Has reports whether id is on the roster.
func (r *Roster) Has(id string) bool {
	_, ok := r.player(id)
	return ok
}

// OthersPresent returns every present player except selfID, in roster order.
func (r *Roster) OthersPresent(selfID string) []*Player {
	var out []*Player
	for _, p := range r.players.Values() {
		if p.ID != selfID && p.Present {
			out = append(out, p)
		}
	}
	return out
}

// Reorder rearranges the roster to the given turn order. Ids missing from
// order keep their relative position after the ordered block; unknown ids
// in order are skipped.
func (r *Roster) Reorder(order []string) {
	reordered := orderedset.New(playerKey)
	for _, id := range order {
		if p, ok := r.player(id); ok {
			reordered.Append(p)
		}
	}
	for _, p := range r.players.Values() {
		reordered.Append(p)
	}
	r.players = reordered
}

// Players returns the roster entries in order.
func (r *Roster) Players() []*Player {
	return r.players.Values()
}

// Len returns the roster size.
func (r *Roster) Len() int {
	return r.players.Len()
}

func (r *Roster) player(id string) (*Player, bool) {
	pos, ok := r.players.IndexOf(&Player{ID: id})
	if !ok {
		return nil, false
	}
	p, err := r.players.At(pos)
	if err != nil {
		return nil, false
	}
	return p, true
}
