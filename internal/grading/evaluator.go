// Package grading turns authoritative expectations and a participant's
// ordered submission into per-option verdicts and ranking deltas. It only
// reads session state; it never mutates it.
package grading

import (
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/orderedset"
)

// Verdict is the graded outcome for a single option.
type Verdict int8

const (
	// VerdictNone means there was nothing to grade for the option.
	VerdictNone Verdict = iota
	// VerdictCorrect means the option was correctly included or placed,
	// or was an expected option whose omission is covered by another
	// wrong inclusion.
	VerdictCorrect
	// VerdictWrong means the option was incorrectly included, misplaced,
	// or omitted where required.
	VerdictWrong
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictWrong:
		return "wrong"
	}
	return "none"
}

// window is the inclusive position range an option is allowed to occupy.
// max < 0 means the option is expected absent.
type window struct {
	min, max int
}

var unconstrained = window{min: -1, max: -1}

// Evaluate grades every option id against the expectations and the
// submitted order. The result is aligned with optionIDs.
//
// Expectations referencing ids outside optionIDs are ignored: expectations
// come from a separate authority than the option list, and a mismatch must
// not take down the grading pass.
func Evaluate(exps []domain.Expectation, submitted *orderedset.Set[string], optionIDs []string) []Verdict {
	known := make(map[string]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		known[id] = struct{}{}
	}

	windows := make(map[string]window, len(optionIDs))
	for _, id := range optionIDs {
		windows[id] = unconstrained
	}
	for _, exp := range exps {
		ids := filterKnown(exp.OptionIDs, known)
		if len(ids) == 0 {
			continue
		}
		switch exp.Kind {
		case domain.ExpectAllOf:
			for _, id := range ids {
				windows[id] = window{min: 0, max: len(optionIDs) - 1}
			}
		case domain.ExpectAllAtPos:
			w := window{min: exp.MinPos, max: exp.MinPos + len(ids) - 1}
			for _, id := range ids {
				windows[id] = w
			}
		case domain.ExpectAnyOf:
			// First slot or absent.
			for _, id := range ids {
				windows[id] = window{min: -1, max: 0}
			}
		}
	}

	verdicts := make([]Verdict, len(optionIDs))
	missingExpected := make([]bool, len(optionIDs))
	wrongInclusion := false

	for i, id := range optionIDs {
		pos := -1
		if p, ok := submitted.IndexOf(id); ok {
			pos = p
		}
		w := windows[id]
		switch {
		case pos >= w.min && pos <= w.max && w.max >= 0:
			verdicts[i] = VerdictCorrect
		case pos < 0 && w.max < 0:
			// Correctly absent: nothing to grade.
			verdicts[i] = VerdictNone
		case pos < 0 && w.min >= 0:
			// Expected somewhere but never placed. Provisional: the
			// second pass decides whether this counts as the miss or
			// is covered by a wrong inclusion elsewhere.
			verdicts[i] = VerdictNone
			missingExpected[i] = true
		default:
			verdicts[i] = VerdictWrong
			if pos >= 0 {
				wrongInclusion = true
			}
		}
	}

	// A wrong inclusion and the omission it displaced are one mistake,
	// not two: with a wrong pick present, the expected-but-missing options
	// are shown as correct so a single error is not penalized twice.
	if wrongInclusion {
		for i := range verdicts {
			if missingExpected[i] {
				verdicts[i] = VerdictCorrect
			}
		}
	}

	return verdicts
}

func filterKnown(ids []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
