// internal/game/initializer.go
//
// Column initializer: deals a fresh round from the catalog.
// Responsibilities:
//   - Draw `count` distinct pairs uniformly at random.
//   - Optionally swap which word of a pair lands on which side.
//   - Shuffle each column independently so row order carries no hint.
//
// The functions here are pure given the *rand.Rand they receive.

package game

import (
	"math/rand"

	"github.com/samber/lo"
)

// Deal is the outcome of InitializeRound.
type Deal struct {
	Left  []WordEntry
	Right []WordEntry
	Pairs []Pair // the round's working pair set, order irrelevant
}

// InitializeRound draws a random subset of the catalog and splits it into
// two independently shuffled columns. Entry ids are the originating pair ids.
// Returns ErrNotEnoughPairs when the catalog cannot fill the round.
func InitializeRound(catalog []Pair, count int, mixColumns bool, rng *rand.Rand) (Deal, error) {
	if count <= 0 {
		return Deal{}, ErrInvalidRoundSize
	}
	if len(catalog) < count {
		return Deal{}, ErrNotEnoughPairs
	}

	picked := lo.Map(rng.Perm(len(catalog))[:count], func(i int, _ int) Pair {
		return catalog[i]
	})

	left := make([]WordEntry, 0, count)
	right := make([]WordEntry, 0, count)
	for _, p := range picked {
		l, r := orient(p, mixColumns, rng)
		left = append(left, WordEntry{ID: p.ID, Word: l})
		right = append(right, WordEntry{ID: p.ID, Word: r})
	}

	rng.Shuffle(len(left), func(i, j int) { left[i], left[j] = left[j], left[i] })
	rng.Shuffle(len(right), func(i, j int) { right[i], right[j] = right[j], right[i] })

	return Deal{Left: left, Right: right, Pairs: picked}, nil
}

// orient returns (leftWord, rightWord) for p, swapping with probability 1/2
// when mixing is enabled.
func orient(p Pair, mix bool, rng *rand.Rand) (string, string) {
	if mix && rng.Intn(2) == 1 {
		return p.Word2, p.Word1
	}
	return p.Word1, p.Word2
}

// FilterByTags keeps pairs that carry at least one of tagIDs.
// An empty tag list keeps the whole catalog.
func FilterByTags(catalog []Pair, tagIDs []string) []Pair {
	if len(tagIDs) == 0 {
		return catalog
	}
	return lo.Filter(catalog, func(p Pair, _ int) bool {
		return lo.Some(p.TagIDs, tagIDs)
	})
}
