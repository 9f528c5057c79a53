package grading

import (
	"sort"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/orderedset"
)

// RankDelta is the signed distance between an option's ideal and submitted
// positions. Negative means the option should have ranked higher, positive
// that it should have ranked lower. Ranked is false when the option was
// never submitted or carries no positional expectation.
type RankDelta struct {
	OptionID string `json:"optionId"`
	Delta    int    `json:"delta"`
	Ranked   bool   `json:"ranked"`
}

// Deltas computes the rank change per option for stat-ordering questions.
// Only AllAtPos expectations contribute. The canonical best order sorts the
// positional expectations by MinPos; ties among one expectation's own ids
// are broken by the submitted relative order, anchoring the best order to
// minimize apparent movement for tied-importance options.
func Deltas(exps []domain.Expectation, submitted *orderedset.Set[string], optionIDs []string) []RankDelta {
	known := make(map[string]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		known[id] = struct{}{}
	}

	positional := make([]domain.Expectation, 0, len(exps))
	for _, exp := range exps {
		if exp.Kind != domain.ExpectAllAtPos {
			continue
		}
		ids := filterKnown(exp.OptionIDs, known)
		if len(ids) == 0 {
			continue
		}
		positional = append(positional, domain.Expectation{
			Kind:      domain.ExpectAllAtPos,
			OptionIDs: ids,
			MinPos:    exp.MinPos,
		})
	}
	sort.SliceStable(positional, func(i, j int) bool {
		return positional[i].MinPos < positional[j].MinPos
	})

	bestOrder := orderedset.NewStrings()
	for _, exp := range positional {
		ids := append([]string(nil), exp.OptionIDs...)
		sort.SliceStable(ids, func(i, j int) bool {
			pi, iok := submitted.IndexOf(ids[i])
			pj, jok := submitted.IndexOf(ids[j])
			if iok && jok {
				return pi < pj
			}
			// Submitted ids precede unsubmitted ones.
			return iok && !jok
		})
		for _, id := range ids {
			bestOrder.Append(id)
		}
	}

	deltas := make([]RankDelta, len(optionIDs))
	for i, id := range optionIDs {
		deltas[i] = RankDelta{OptionID: id}
		subPos, subOK := submitted.IndexOf(id)
		bestPos, bestOK := bestOrder.IndexOf(id)
		if !subOK || !bestOK {
			continue
		}
		deltas[i].Delta = bestPos - subPos
		deltas[i].Ranked = true
	}
	return deltas
}
