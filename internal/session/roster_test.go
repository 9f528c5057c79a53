package session

import (
	"testing"

	"trivia-room-service/internal/domain"
)

func TestRosterUpsertPreservesPresenceWhenUnknown(t *testing.T) {
	r := NewRoster()
	r.Upsert("p1", "Alice", PresencePresent)
	r.Upsert("p1", "Alicia", PresenceUnknown)

	if got := r.GetPlayerName("p1"); got != "Alicia" {
		t.Fatalf("expected renamed player, got %q", got)
	}
	players := r.Players()
	if len(players) != 1 || !players[0].Present {
		t.Fatalf("expected presence preserved, got %+v", players)
	}

	r.Upsert("p1", "", PresenceAbsent)
	if r.Players()[0].Present {
		t.Fatalf("expected player marked absent")
	}
	if got := r.GetPlayerName("p1"); got != "Alicia" {
		t.Fatalf("expected empty name to keep old one, got %q", got)
	}
}

func TestRosterScoresAreAbsolute(t *testing.T) {
	r := NewRoster()
	r.Upsert("p1", "Alice", PresencePresent)

	entries := []domain.ScoreEntry{{PlayerID: "p1", ScoreAfter: 3, Graded: true, Correct: true}}
	r.UpdateScores(entries, "turn-1")
	r.UpdateScores(entries, "turn-1")

	if got := r.GetScore("p1"); got != 3 {
		t.Fatalf("expected score 3 after replay, got %d", got)
	}
}

func TestRosterGradeIsTurnScoped(t *testing.T) {
	r := NewRoster()
	r.Upsert("p1", "Alice", PresencePresent)
	r.UpdateScores([]domain.ScoreEntry{{PlayerID: "p1", ScoreAfter: 1, Graded: true, Correct: true}}, "turn-1")

	if correct, ok := r.GetGrade("p1", "turn-1"); !ok || !correct {
		t.Fatalf("expected grade for turn-1, got ok=%v correct=%v", ok, correct)
	}
	if _, ok := r.GetGrade("p1", "turn-2"); ok {
		t.Fatalf("stale grade must not leak into a new turn")
	}
}

func TestRosterUnknownIDsDegradeGracefully(t *testing.T) {
	r := NewRoster()
	if got := r.GetScore("ghost"); got != 0 {
		t.Fatalf("expected zero score, got %d", got)
	}
	if got := r.GetPlayerName("ghost"); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
	if _, ok := r.GetGrade("ghost", "turn-1"); ok {
		t.Fatalf("expected no grade for unknown id")
	}

	// Score updates for unknown ids must not invent roster entries.
	r.UpdateScores([]domain.ScoreEntry{{PlayerID: "ghost", ScoreAfter: 5}}, "turn-1")
	if r.Len() != 0 {
		t.Fatalf("expected empty roster, got %d entries", r.Len())
	}
}

func TestRosterReorder(t *testing.T) {
	r := NewRoster()
	r.Upsert("p1", "Alice", PresencePresent)
	r.Upsert("p2", "Bob", PresencePresent)
	r.Upsert("p3", "Cleo", PresencePresent)

	r.Reorder([]string{"p3", "p1"})

	players := r.Players()
	ids := []string{players[0].ID, players[1].ID, players[2].ID}
	if ids[0] != "p3" || ids[1] != "p1" || ids[2] != "p2" {
		t.Fatalf("expected [p3 p1 p2], got %v", ids)
	}
}

func TestRosterOthersPresent(t *testing.T) {
	r := NewRoster()
	r.Upsert("p1", "Alice", PresencePresent)
	r.Upsert("p2", "Bob", PresencePresent)
	r.Upsert("p3", "Cleo", PresenceAbsent)

	others := r.OthersPresent("p1")
	if len(others) != 1 || others[0].ID != "p2" {
		t.Fatalf("expected only p2, got %+v", others)
	}
}
