package trivia

import (
	"math/rand"
	"sort"

	"gitlab.com/zephyrtronium/pick"
)

// SelectSubtopic draws one subtopic category id, suppressing subtopics the
// session has already answered correctly: the more often (and the higher
// ranked) a subtopic was answered right, the less likely it is drawn again.
// With no history yet the draw is uniform.
func SelectSubtopic(ids []int, correctCount map[int]int, rng *rand.Rand) int {
	if len(ids) == 0 {
		return 0
	}
	if len(correctCount) == 0 {
		return ids[rng.Intn(len(ids))]
	}

	weights := subtopicWeights(ids, rankByCorrectCount(correctCount))
	cases := make([]pick.Case[int], len(ids))
	for i, id := range ids {
		cases[i] = pick.Case[int]{E: id, W: weights[i]}
	}
	return pick.New(cases).Pick(rng.Uint32())
}

// rankByCorrectCount orders subtopic ids by descending correct count,
// breaking count ties by ascending id so the ranking is deterministic.
func rankByCorrectCount(correctCount map[int]int) []int {
	ranked := make([]int, 0, len(correctCount))
	for id := range correctCount {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if correctCount[ranked[i]] != correctCount[ranked[j]] {
			return correctCount[ranked[i]] > correctCount[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}

// subtopicWeights assigns each id a base weight of len(ids), then subtracts
// len(ranking)-k+1 for the id at 1-indexed rank k, so the top-ranked id is
// suppressed hardest. Weights are clamped at 1: the unclamped subtraction can
// go negative when many subtopics are tracked, which would make the weight
// vector unusable for a random draw.
func subtopicWeights(ids []int, ranking []int) []int {
	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	weights := make([]int, len(ids))
	for i := range weights {
		weights[i] = len(ids)
	}

	for k, id := range ranking {
		i, ok := index[id]
		if !ok {
			continue
		}
		weights[i] -= len(ranking) - k
		if weights[i] < 1 {
			weights[i] = 1
		}
	}
	return weights
}
