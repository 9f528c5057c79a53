package grading

import (
	"sort"

	"trivia-room-service/internal/domain"
)

// BuildExpectations derives the authoritative expected answers for a turn
// from deck content the clients never see. For matchrank questions the
// ground truth is the partner's submitted order, passed separately.
func BuildExpectations(trivia domain.Trivia, partnerOrder []string) []domain.Expectation {
	switch trivia.AnswerType {
	case domain.AnswerSingleChoice:
		ids := correctIDs(trivia)
		if len(ids) == 0 {
			return nil
		}
		return []domain.Expectation{domain.AnyOf(ids...)}
	case domain.AnswerMultiChoice, domain.AnswerHangman:
		ids := correctIDs(trivia)
		if len(ids) == 0 {
			return nil
		}
		return []domain.Expectation{domain.AllOf(ids...)}
	case domain.AnswerStatAsc:
		return statExpectations(trivia, true)
	case domain.AnswerStatDesc:
		return statExpectations(trivia, false)
	case domain.AnswerMatchRank:
		return matchRankExpectations(trivia, partnerOrder)
	}
	return nil
}

func correctIDs(trivia domain.Trivia) []string {
	var ids []string
	for _, opt := range trivia.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// statExpectations ranks options by the hidden statistic. Options sharing a
// stat value form one positional block: their relative order is not graded.
func statExpectations(trivia domain.Trivia, ascending bool) []domain.Expectation {
	opts := append([]domain.TriviaOption(nil), trivia.Options...)
	sort.SliceStable(opts, func(i, j int) bool {
		if ascending {
			return opts[i].Stat < opts[j].Stat
		}
		return opts[i].Stat > opts[j].Stat
	})

	var exps []domain.Expectation
	for start := 0; start < len(opts); {
		end := start + 1
		for end < len(opts) && opts[end].Stat == opts[start].Stat {
			end++
		}
		ids := make([]string, 0, end-start)
		for _, opt := range opts[start:end] {
			ids = append(ids, opt.ID)
		}
		exps = append(exps, domain.AllAtPos(start, ids...))
		start = end
	}
	return exps
}

// matchRankExpectations pins every option to the position the partner gave
// it, so two participants' orders are compared against each other rather
// than against a single ground truth.
func matchRankExpectations(trivia domain.Trivia, partnerOrder []string) []domain.Expectation {
	pos := 0
	var exps []domain.Expectation
	for _, id := range partnerOrder {
		if _, ok := trivia.Option(id); !ok {
			continue
		}
		exps = append(exps, domain.AllAtPos(pos, id))
		pos++
	}
	return exps
}
