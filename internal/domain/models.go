package domain

// AnswerType selects how a trivia question is answered and graded.
type AnswerType string

const (
	// AnswerSingleChoice expects exactly one picked option.
	AnswerSingleChoice AnswerType = "choice.single"
	// AnswerMultiChoice expects a subset of options, order irrelevant.
	AnswerMultiChoice AnswerType = "choice.multi"
	// AnswerHangman expects the letters of a hidden word, picked one by one.
	AnswerHangman AnswerType = "hangman"
	// AnswerStatAsc expects options ranked ascending by a hidden statistic.
	AnswerStatAsc AnswerType = "stat.asc"
	// AnswerStatDesc expects options ranked descending by a hidden statistic.
	AnswerStatDesc AnswerType = "stat.desc"
	// AnswerMatchRank grades one participant's ranking against another's.
	AnswerMatchRank AnswerType = "matchrank"
)

// Ranked reports whether submissions of this type carry meaningful order.
func (t AnswerType) Ranked() bool {
	switch t {
	case AnswerStatAsc, AnswerStatDesc, AnswerMatchRank:
		return true
	}
	return false
}

// FeedbackScope selects who sees the graded feedback for a turn.
type FeedbackScope string

const (
	// FeedbackDirect shows the grade to the turn owner only.
	FeedbackDirect FeedbackScope = "direct"
	// FeedbackRoom shows the grade to the whole room.
	FeedbackRoom FeedbackScope = "room"
)

// TriviaOption is one selectable answer. Correct and Stat belong to the
// grading authority; transport views must not expose them to clients.
type TriviaOption struct {
	ID            string  `json:"id"`
	Answer        string  `json:"answer"`
	QuestionValue int     `json:"questionValue"`
	Correct       bool    `json:"correct"`
	Stat          float64 `json:"stat"`
}

// Trivia is a single question drawn from a deck. Options are immutable for
// the life of a turn.
type Trivia struct {
	ID         string         `json:"id"`
	Question   string         `json:"question"`
	Options    []TriviaOption `json:"options"`
	AnswerType AnswerType     `json:"answerType"`
	MinAnswers int            `json:"minAnswers"`
	MaxAnswers int            `json:"maxAnswers"`
	StatDef    string         `json:"statDef,omitempty"`
	Scope      FeedbackScope  `json:"scope"`
}

// OptionIDs returns the option ids in declaration order.
func (t Trivia) OptionIDs() []string {
	ids := make([]string, 0, len(t.Options))
	for _, opt := range t.Options {
		ids = append(ids, opt.ID)
	}
	return ids
}

// Option looks up an option by id.
func (t Trivia) Option(id string) (TriviaOption, bool) {
	for _, opt := range t.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return TriviaOption{}, false
}

// Deck is a pre-generated set of trivia questions for one room.
type Deck struct {
	ID        string   `json:"id"`
	Questions []Trivia `json:"questions"`
}

// ExpectationKind tags the variants of a correctness expectation.
type ExpectationKind string

const (
	// ExpectAllOf requires every listed id to be included, any position.
	ExpectAllOf ExpectationKind = "allOf"
	// ExpectAllAtPos requires the listed ids to occupy the contiguous
	// position block starting at MinPos.
	ExpectAllAtPos ExpectationKind = "allAtPos"
	// ExpectAnyOf requires at least one listed id in the first slot.
	ExpectAnyOf ExpectationKind = "anyOf"
)

// Expectation is an authoritative statement of which options must appear,
// and optionally at which position window, for a submission to be graded
// correct. Produced server-side; consumers treat it as ground truth and
// never recompute it.
type Expectation struct {
	Kind      ExpectationKind `json:"kind"`
	OptionIDs []string        `json:"optionIds"`
	MinPos    int             `json:"minPos,omitempty"`
}

// AllOf builds an inclusion expectation.
func AllOf(ids ...string) Expectation {
	return Expectation{Kind: ExpectAllOf, OptionIDs: ids}
}

// AllAtPos builds a positional expectation for the block starting at minPos.
func AllAtPos(minPos int, ids ...string) Expectation {
	return Expectation{Kind: ExpectAllAtPos, OptionIDs: ids, MinPos: minPos}
}

// AnyOf builds a first-slot alternative expectation.
func AnyOf(ids ...string) Expectation {
	return Expectation{Kind: ExpectAnyOf, OptionIDs: ids}
}

// ScoreEntry carries one participant's absolute score after a turn, plus
// the grade recorded for that turn when the participant was graded.
type ScoreEntry struct {
	PlayerID   string `json:"playerId"`
	ScoreAfter int    `json:"scoreAfter"`
	Graded     bool   `json:"graded"`
	Correct    bool   `json:"correct"`
}
