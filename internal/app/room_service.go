package app

import (
	"context"
	"log"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/grading"
	"trivia-room-service/internal/orderedset"
	"trivia-room-service/internal/session"
)

// RoomRepository abstracts how room sessions are stored (in-memory, Redis).
type RoomRepository interface {
	GetOrCreate(roomID string) *Room
	Get(roomID string) (*Room, bool)
	DeleteIfEmpty(roomID string)
}

// DeckRepository loads pre-generated trivia decks (from cache/backing store).
type DeckRepository interface {
	GetDeck(ctx context.Context, deckID string) (domain.Deck, error)
}

// TurnConfig tunes turn pacing. Budget drives the liveness retry for a
// dropped turn start; it is a tuning parameter, not a protocol invariant.
type TurnConfig struct {
	Duration    time.Duration
	PointTarget int
	Budget      time.Duration
}

// RoomService contains the room session use cases. It is the grading
// authority: expectations are derived here from deck content clients never
// see, and only confirmed events reach the state machine.
type RoomService struct {
	rooms RoomRepository
	decks DeckRepository
	turn  TurnConfig
}

func NewRoomService(rooms RoomRepository, decks DeckRepository, turn TurnConfig) *RoomService {
	return &RoomService{rooms: rooms, decks: decks, turn: turn}
}

// Join registers or refreshes a participant. The first participant becomes
// the room creator. Users cannot join rooms without a deck.
func (s *RoomService) Join(ctx context.Context, roomID, playerID, name string) (Snapshot, error) {
	if _, err := s.decks.GetDeck(ctx, roomID); err != nil {
		return Snapshot{}, err
	}

	room := s.rooms.GetOrCreate(roomID)
	s.ensureWatchdog(room, roomID)

	if _, ok := room.State().(session.NotRegistered); ok {
		return room.apply(session.Joined{
			SelfID:    playerID,
			SelfName:  name,
			CreatorID: playerID,
		}), nil
	}
	return room.apply(session.UserNew{ID: playerID, Name: name, Present: true}), nil
}

// Rename updates a participant's display name.
func (s *RoomService) Rename(_ context.Context, roomID, playerID, name string) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	return room.apply(session.UserChanged{ID: playerID, Name: name}), nil
}

// SetPresence flips a single participant's presence flag.
func (s *RoomService) SetPresence(_ context.Context, roomID, playerID string, present bool) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	return room.apply(session.PresenceChanged{Flags: map[string]bool{playerID: present}}), nil
}

// StartRound begins a round with the given turn order. Only the room
// creator may start a round; a zero point target falls back to the
// configured default.
func (s *RoomService) StartRound(_ context.Context, roomID, playerID string, order []string, pointTarget int) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	if creator := creatorOf(room.State()); creator != "" && creator != playerID {
		return Snapshot{}, domain.ErrNotRoomCreator
	}
	if pointTarget <= 0 {
		pointTarget = s.turn.PointTarget
	}
	return room.apply(session.RoundStarted{Order: order, PointTarget: pointTarget}), nil
}

// StartTurn draws the next question and opens a turn. fromTurnID must name
// the last completed turn; a retry for a turn that already started is a
// silent no-op, which makes the liveness path safe against duplicate or
// reordered requests.
func (s *RoomService) StartTurn(ctx context.Context, roomID, fromTurnID string) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}

	deck, err := s.decks.GetDeck(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return room.startTurn(fromTurnID, deck, s.turn.Duration)
}

// SubmitAnswers records a participant's ordered answers for the current
// turn. The submission is normalized through the ordered set: duplicate
// picks collapse, unknown options are dropped, and the newest MaxAnswers
// picks win.
func (s *RoomService) SubmitAnswers(_ context.Context, roomID, playerID, turnID string, answerIDs []string) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	q, ok := session.QuestionOf(room.State())
	if !ok {
		return Snapshot{}, domain.ErrNoActiveTurn
	}
	roster, _ := session.RosterOf(room.State())
	if roster == nil || !roster.Has(playerID) {
		return Snapshot{}, domain.ErrParticipantNotFound
	}

	answers := orderedset.FromStrings(answerIDs)
	answers.DropExcluded(q.Trivia.OptionIDs())
	if q.Trivia.MaxAnswers > 0 {
		answers.TakeRight(q.Trivia.MaxAnswers)
	}

	return room.apply(session.AnswerSubmitted{
		TurnID:    turnID,
		PlayerID:  playerID,
		AnswerIDs: answers.Values(),
	}), nil
}

// RevealFeedback closes submissions for the turn and installs the
// authoritative expected answers. For matchrank questions the ground truth
// is the turn owner's partner: the first other present participant who
// submitted.
func (s *RoomService) RevealFeedback(_ context.Context, roomID, turnID string) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	q, ok := session.QuestionOf(room.State())
	if !ok || q.TurnID != turnID {
		return Snapshot{}, domain.ErrNoActiveTurn
	}

	var partnerOrder []string
	if q.Trivia.AnswerType == domain.AnswerMatchRank {
		owner := q.Round.NextOwner()
		for _, p := range q.Roster.OthersPresent(owner) {
			if answers, submitted := q.Received[p.ID]; submitted {
				partnerOrder = answers
				break
			}
		}
	}
	expected := grading.BuildExpectations(q.Trivia, partnerOrder)

	return room.apply(session.TurnFeedback{TurnID: turnID, Expected: expected}), nil
}

// PlayerGrade is the graded outcome of one participant's submission.
type PlayerGrade struct {
	PlayerID string              `json:"playerId"`
	Verdicts []grading.Verdict   `json:"verdicts"`
	Deltas   []grading.RankDelta `json:"deltas,omitempty"`
	Correct  bool                `json:"correct"`
	Points   int                 `json:"points"`
}

// Grades evaluates every submission of the current feedback phase. Points
// are the question values of options the participant actually placed
// correctly; promoted misses render green but score nothing.
func (s *RoomService) Grades(_ context.Context, roomID string) ([]PlayerGrade, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	state := room.State()
	expected, ok := session.ExpectedOf(state)
	if !ok {
		return nil, domain.ErrNoActiveTurn
	}
	q, _ := session.QuestionOf(state)

	optionIDs := q.Trivia.OptionIDs()
	var out []PlayerGrade
	for _, p := range q.Roster.Players() {
		answers, submitted := q.Received[p.ID]
		if !submitted {
			continue
		}
		out = append(out, gradeSubmission(q.Trivia, expected, optionIDs, p.ID, answers))
	}
	return out, nil
}

func gradeSubmission(trivia domain.Trivia, expected []domain.Expectation, optionIDs []string, playerID string, answers []string) PlayerGrade {
	submitted := orderedset.FromStrings(answers)
	verdicts := grading.Evaluate(expected, submitted, optionIDs)

	pg := PlayerGrade{PlayerID: playerID, Verdicts: verdicts}
	if trivia.AnswerType.Ranked() {
		pg.Deltas = grading.Deltas(expected, submitted, optionIDs)
	}

	anyCorrect := false
	anyWrong := false
	for i, v := range verdicts {
		switch v {
		case grading.VerdictCorrect:
			anyCorrect = true
			if submitted.Has(optionIDs[i]) {
				if opt, ok := trivia.Option(optionIDs[i]); ok {
					points := opt.QuestionValue
					if points == 0 {
						points = 1
					}
					pg.Points += points
				}
			}
		case grading.VerdictWrong:
			anyWrong = true
		}
	}
	pg.Correct = anyCorrect && !anyWrong
	return pg
}

// EndTurn converts the feedback grades into absolute score updates and
// closes the turn. Applying the same end twice cannot double a score: the
// entries carry totals, not deltas, and the reducer discards the replay
// once the phase has moved on.
func (s *RoomService) EndTurn(ctx context.Context, roomID, turnID string) (Snapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	state := room.State()
	q, ok := session.QuestionOf(state)
	if !ok || q.TurnID != turnID {
		return Snapshot{}, domain.ErrNoActiveTurn
	}
	if _, inFeedback := session.ExpectedOf(state); !inFeedback {
		return Snapshot{}, domain.ErrNoActiveTurn
	}

	grades, err := s.Grades(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}

	entries := make([]domain.ScoreEntry, 0, len(grades))
	for _, g := range grades {
		entries = append(entries, domain.ScoreEntry{
			PlayerID:   g.PlayerID,
			ScoreAfter: q.Roster.GetScore(g.PlayerID) + g.Points,
			Graded:     true,
			Correct:    g.Correct,
		})
	}
	return room.apply(session.TurnEnded{TurnID: turnID, Scores: entries}), nil
}

// Subscribe returns a channel that receives room snapshots. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(_ context.Context, roomID string) (<-chan Snapshot, func(), error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// Leave marks a participant absent and drops the room once nobody is left.
// Players are never removed from the roster, only flagged.
func (s *RoomService) Leave(ctx context.Context, roomID, playerID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.apply(session.PresenceChanged{Flags: map[string]bool{playerID: false}})
	if room.IsEmpty() {
		room.stop()
		s.rooms.DeleteIfEmpty(roomID)
	}
}

// ensureWatchdog attaches the turn-start liveness retry to a room once.
func (s *RoomService) ensureWatchdog(room *Room, roomID string) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.watchdog != nil || s.turn.Budget <= 0 {
		return
	}
	room.watchdog = NewTurnWatchdog(s.turn.Budget, func(fromTurnID string) {
		if _, err := s.StartTurn(context.Background(), roomID, fromTurnID); err != nil {
			log.Printf("room %s: turn watchdog retry failed: %v", roomID, err)
		}
	})
}

func creatorOf(state session.State) string {
	switch st := state.(type) {
	case session.Lobby:
		return st.CreatorID
	case session.AwaitingTurn:
		return st.CreatorID
	case session.Question:
		return st.CreatorID
	case session.DirectFeedback:
		return st.CreatorID
	case session.RoomFeedback:
		return st.CreatorID
	}
	return ""
}
