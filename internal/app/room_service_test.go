package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/grading"
	"trivia-room-service/internal/infra/memory"
	"trivia-room-service/internal/session"
)

func testDeck() map[string]domain.Deck {
	return map[string]domain.Deck{
		"room-1": {
			ID: "room-1",
			Questions: []domain.Trivia{
				{
					ID:       "t1",
					Question: "pick the prime",
					Options: []domain.TriviaOption{
						{ID: "o1", Answer: "21", QuestionValue: 1},
						{ID: "o2", Answer: "23", QuestionValue: 1, Correct: true},
						{ID: "o3", Answer: "25", QuestionValue: 1},
					},
					AnswerType: domain.AnswerSingleChoice,
					MinAnswers: 1,
					MaxAnswers: 1,
					Scope:      domain.FeedbackRoom,
				},
				{
					ID:       "t2",
					Question: "rank by length",
					Options: []domain.TriviaOption{
						{ID: "o1", Answer: "Nile", QuestionValue: 2, Stat: 6650},
						{ID: "o2", Answer: "Amazon", QuestionValue: 2, Stat: 6400},
						{ID: "o3", Answer: "Danube", QuestionValue: 2, Stat: 2850},
					},
					AnswerType: domain.AnswerStatDesc,
					MinAnswers: 3,
					MaxAnswers: 3,
					Scope:      domain.FeedbackRoom,
				},
			},
		},
	}
}

func newTestService(budget time.Duration) *app.RoomService {
	rooms := memory.NewRoomStore()
	decks := memory.NewDeckRepository(memory.NewStaticDeckLoader(testDeck()), 5*time.Minute)
	return app.NewRoomService(rooms, decks, app.TurnConfig{
		Duration:    30 * time.Second,
		PointTarget: 10,
		Budget:      budget,
	})
}

func TestJoinCreatesRoomWithCreator(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)

	snap, err := service.Join(ctx, "room-1", "p1", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if snap.Phase != session.PhaseLobby || snap.CreatorID != "p1" {
		t.Fatalf("expected lobby created by p1, got %+v", snap)
	}

	snap, err = service.Join(ctx, "room-1", "p2", "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
	if snap.CreatorID != "p1" {
		t.Fatalf("creator must not change on later joins, got %s", snap.CreatorID)
	}
}

func TestJoinUnknownDeckFails(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)

	_, err := service.Join(ctx, "room-unknown", "p1", "Alice")
	if !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected deck error, got %v", err)
	}
}

func TestStartRoundRequiresCreator(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)
	mustJoin(t, service, "p1", "Alice")
	mustJoin(t, service, "p2", "Bob")

	_, err := service.StartRound(ctx, "room-1", "p2", []string{"p2", "p1"}, 0)
	if !errors.Is(err, domain.ErrNotRoomCreator) {
		t.Fatalf("expected creator error, got %v", err)
	}

	snap, err := service.StartRound(ctx, "room-1", "p1", []string{"p2", "p1"}, 0)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if snap.Phase != session.PhaseAwaitingTurn {
		t.Fatalf("expected awaiting turn, got %s", snap.Phase)
	}
	if snap.Round == nil || snap.Round.PointTarget != 10 {
		t.Fatalf("expected default point target, got %+v", snap.Round)
	}
}

func TestFullTurnFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)
	mustJoin(t, service, "p1", "Alice")
	mustJoin(t, service, "p2", "Bob")

	if _, err := service.StartRound(ctx, "room-1", "p1", []string{"p1", "p2"}, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	snap, err := service.StartTurn(ctx, "room-1", "")
	if err != nil {
		t.Fatalf("start turn: %v", err)
	}
	if snap.Phase != session.PhaseQuestion || snap.Turn == nil {
		t.Fatalf("expected question, got %+v", snap)
	}
	turnID := snap.Turn.TurnID

	// A duplicate liveness retry for the same awaited turn is a no-op.
	again, err := service.StartTurn(ctx, "room-1", "")
	if err != nil {
		t.Fatalf("retry start turn: %v", err)
	}
	if again.Turn == nil || again.Turn.TurnID != turnID {
		t.Fatalf("retry must not open a second turn, got %+v", again.Turn)
	}

	// Duplicate picks collapse, unknown options drop, newest pick wins.
	snap, err = service.SubmitAnswers(ctx, "room-1", "p2", turnID, []string{"o1", "bogus", "o2", "o2"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(snap.Turn.Submitted) != 1 || snap.Turn.Submitted[0] != "p2" {
		t.Fatalf("expected p2 submitted, got %v", snap.Turn.Submitted)
	}

	snap, err = service.RevealFeedback(ctx, "room-1", turnID)
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if snap.Phase != session.PhaseRoomFeedback || len(snap.Expected) == 0 {
		t.Fatalf("expected room feedback with expectations, got %+v", snap)
	}

	grades, err := service.Grades(ctx, "room-1")
	if err != nil {
		t.Fatalf("grades: %v", err)
	}
	if len(grades) != 1 || grades[0].PlayerID != "p2" {
		t.Fatalf("expected one grade for p2, got %+v", grades)
	}
	if !grades[0].Correct || grades[0].Points != 1 {
		t.Fatalf("expected correct single choice worth 1, got %+v", grades[0])
	}

	snap, err = service.EndTurn(ctx, "room-1", turnID)
	if err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if snap.Phase != session.PhaseAwaitingTurn {
		t.Fatalf("expected awaiting next turn, got %s", snap.Phase)
	}
	if got := playerScore(snap, "p2"); got != 1 {
		t.Fatalf("expected p2 score 1, got %d", got)
	}
	if snap.Round.LastTurnID != turnID {
		t.Fatalf("expected last turn recorded, got %+v", snap.Round)
	}

	// Ending the same turn again must not double the score.
	if _, err := service.EndTurn(ctx, "room-1", turnID); !errors.Is(err, domain.ErrNoActiveTurn) {
		t.Fatalf("expected stale end rejected, got %v", err)
	}
}

func TestRankedTurnProducesDeltas(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)
	mustJoin(t, service, "p1", "Alice")

	if _, err := service.StartRound(ctx, "room-1", "p1", []string{"p1"}, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	// Skip to the ranking question.
	snap, err := service.StartTurn(ctx, "room-1", "")
	if err != nil {
		t.Fatalf("start turn: %v", err)
	}
	first := snap.Turn.TurnID
	if _, err := service.RevealFeedback(ctx, "room-1", first); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if _, err := service.EndTurn(ctx, "room-1", first); err != nil {
		t.Fatalf("end turn: %v", err)
	}

	snap, err = service.StartTurn(ctx, "room-1", first)
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if snap.Turn.AnswerType != domain.AnswerStatDesc {
		t.Fatalf("expected ranking question, got %s", snap.Turn.AnswerType)
	}
	turnID := snap.Turn.TurnID

	// Reversed ranking: Danube, Amazon, Nile instead of Nile, Amazon, Danube.
	if _, err := service.SubmitAnswers(ctx, "room-1", "p1", turnID, []string{"o3", "o2", "o1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.RevealFeedback(ctx, "room-1", turnID); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	grades, err := service.Grades(ctx, "room-1")
	if err != nil {
		t.Fatalf("grades: %v", err)
	}
	if len(grades) != 1 {
		t.Fatalf("expected one grade, got %d", len(grades))
	}
	g := grades[0]
	if len(g.Deltas) != 3 {
		t.Fatalf("expected deltas for ranking question, got %+v", g.Deltas)
	}
	wantDeltas := map[string]int{"o1": -2, "o2": 0, "o3": 2}
	for _, d := range g.Deltas {
		if !d.Ranked || d.Delta != wantDeltas[d.OptionID] {
			t.Fatalf("expected delta %d for %s, got %+v", wantDeltas[d.OptionID], d.OptionID, d)
		}
	}
	if g.Correct {
		t.Fatalf("reversed ranking must not grade correct, got %+v", g)
	}
	if g.Verdicts[1] != grading.VerdictCorrect {
		t.Fatalf("middle option stayed in place, expected correct, got %v", g.Verdicts)
	}
}

func TestWatchdogStartsStalledTurn(t *testing.T) {
	ctx := context.Background()
	service := newTestService(10 * time.Millisecond)
	mustJoin(t, service, "p1", "Alice")

	if _, err := service.StartRound(ctx, "room-1", "p1", []string{"p1"}, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	updates, cancel, err := service.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Phase == session.PhaseQuestion {
				return
			}
		case <-deadline:
			t.Fatalf("watchdog never started the stalled turn")
		}
	}
}

func TestLeaveMarksAbsentAndDropsEmptyRoom(t *testing.T) {
	ctx := context.Background()
	service := newTestService(0)
	mustJoin(t, service, "p1", "Alice")
	mustJoin(t, service, "p2", "Bob")

	service.Leave(ctx, "room-1", "p2")
	snap, err := service.Rename(ctx, "room-1", "p1", "Alicia")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := playerPresent(snap, "p2"); got {
		t.Fatalf("expected p2 absent")
	}
	if len(snap.Players) != 2 {
		t.Fatalf("players must never be deleted, got %d", len(snap.Players))
	}

	service.Leave(ctx, "room-1", "p1")
	if _, err := service.Rename(ctx, "room-1", "p1", "again"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected empty room dropped, got %v", err)
	}
}

func mustJoin(t *testing.T, service *app.RoomService, playerID, name string) {
	t.Helper()
	if _, err := service.Join(context.Background(), "room-1", playerID, name); err != nil {
		t.Fatalf("join %s: %v", playerID, err)
	}
}

func playerScore(snap app.Snapshot, id string) int {
	for _, p := range snap.Players {
		if p.ID == id {
			return p.Score
		}
	}
	return -1
}

func playerPresent(snap app.Snapshot, id string) bool {
	for _, p := range snap.Players {
		if p.ID == id {
			return p.Present
		}
	}
	return false
}
