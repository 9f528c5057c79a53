package grading

import (
	"reflect"
	"testing"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/orderedset"
)

func verdicts(t *testing.T, exps []domain.Expectation, submitted []string, optionIDs []string) []Verdict {
	t.Helper()
	return Evaluate(exps, orderedset.FromStrings(submitted), optionIDs)
}

func TestEvaluateExactPlacement(t *testing.T) {
	exps := []domain.Expectation{
		domain.AllAtPos(0, "a"),
		domain.AllAtPos(1, "b"),
		domain.AllAtPos(2, "c"),
	}
	got := verdicts(t, exps, []string{"a", "b", "c"}, []string{"a", "b", "c"})
	want := []Verdict{VerdictCorrect, VerdictCorrect, VerdictCorrect}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected all correct, got %v", got)
	}

	got = verdicts(t, exps, []string{"c", "b", "a"}, []string{"a", "b", "c"})
	want = []Verdict{VerdictWrong, VerdictCorrect, VerdictWrong}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected misplaced ends wrong, got %v", got)
	}
}

func TestEvaluateAllOfIgnoresPosition(t *testing.T) {
	exps := []domain.Expectation{domain.AllOf("a", "b")}
	got := verdicts(t, exps, []string{"b", "a"}, []string{"a", "b", "c"})
	want := []Verdict{VerdictCorrect, VerdictCorrect, VerdictNone}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected inclusion-only grading, got %v", got)
	}
}

func TestEvaluateAnyOfFirstSlotOrAbsent(t *testing.T) {
	exps := []domain.Expectation{domain.AnyOf("a", "b")}

	// Picked one alternative first: both alternatives grade correct.
	got := verdicts(t, exps, []string{"a"}, []string{"a", "b", "c"})
	want := []Verdict{VerdictCorrect, VerdictCorrect, VerdictNone}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected verdicts %v", got)
	}

	// An alternative pushed past the first slot is wrong.
	got = verdicts(t, exps, []string{"c", "a"}, []string{"a", "b", "c"})
	if got[0] != VerdictWrong {
		t.Fatalf("expected a wrong outside first slot, got %v", got)
	}
	if got[2] != VerdictWrong {
		t.Fatalf("expected unexpected inclusion wrong, got %v", got)
	}
}

func TestEvaluateUnexpectedInclusionIsWrong(t *testing.T) {
	exps := []domain.Expectation{domain.AllOf("a")}
	got := verdicts(t, exps, []string{"a", "c"}, []string{"a", "b", "c"})
	if got[0] != VerdictCorrect || got[2] != VerdictWrong {
		t.Fatalf("unexpected verdicts %v", got)
	}
}

func TestEvaluateMissingExpectedStaysNeutralAlone(t *testing.T) {
	// Nothing wrongly included: the omission itself stays ungraded.
	exps := []domain.Expectation{domain.AllOf("a", "b")}
	got := verdicts(t, exps, []string{"a"}, []string{"a", "b", "c"})
	want := []Verdict{VerdictCorrect, VerdictNone, VerdictNone}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected neutral omission, got %v", got)
	}
}

func TestEvaluatePromotesMissWhenWrongInclusionExists(t *testing.T) {
	// One wrong pick displaced an expected option: the omission is shown
	// as correct so a single mistake is not charged twice.
	exps := []domain.Expectation{domain.AllOf("a", "b")}
	got := verdicts(t, exps, []string{"a", "c"}, []string{"a", "b", "c"})
	want := []Verdict{VerdictCorrect, VerdictCorrect, VerdictWrong}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected promoted omission, got %v", got)
	}
}

func TestEvaluateMalformedExpectationIgnored(t *testing.T) {
	exps := []domain.Expectation{
		domain.AllOf("nope"),
		domain.AllAtPos(0, "a", "nope"),
	}
	got := verdicts(t, exps, []string{"a"}, []string{"a", "b"})
	// The unknown id is dropped; "a" alone occupies the block at 0.
	if got[0] != VerdictCorrect {
		t.Fatalf("expected a correct despite malformed ids, got %v", got)
	}
	if got[1] != VerdictNone {
		t.Fatalf("expected b ungraded, got %v", got)
	}
}

func TestEvaluateNoExpectationsAllNeutralWhenEmptySubmission(t *testing.T) {
	got := verdicts(t, nil, nil, []string{"a", "b"})
	want := []Verdict{VerdictNone, VerdictNone}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected all neutral, got %v", got)
	}

	// Anything submitted without an expectation is a wrong inclusion.
	got = verdicts(t, nil, []string{"a"}, []string{"a", "b"})
	if got[0] != VerdictWrong {
		t.Fatalf("expected wrong inclusion, got %v", got)
	}
}
