// internal/game/replenish.go
//
// Endless-mode replenisher: swaps a fully matched pair out of the board and
// deals a fresh one into the same two slots.
//
// Constraints on the replacement pair:
//   - it is not one of the surviving round pairs, nor the pair just matched;
//   - neither of its words is used by a surviving round pair;
//   - the word landing in each slot differs from the word it replaces.

package game

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Replenishment is the board after a successful swap.
type Replenishment struct {
	Left    []WordEntry
	Right   []WordEntry
	Pairs   []Pair // new working pair set
	Removed Pair
	Added   Pair
}

// Replenish marks the resolved selection's slots matched and, once exactly
// two slots are matched, replaces them with a freshly drawn pair.
//
// It returns (nil, nil) when no swap is due yet (or the selection does not
// map onto the board), leaving the caller to apply a plain mark-matched.
// ErrReplenishmentStarvation means the catalog has no eligible pair left.
func Replenish(left, right []WordEntry, resolved SelectionPair, round, catalog []Pair, mixColumns bool, rng *rand.Rand) (*Replenishment, error) {
	left = append([]WordEntry(nil), left...)
	right = append([]WordEntry(nil), right...)

	li := lo.IndexOf(lo.Map(left, entryID), resolved.LeftID)
	ri := lo.IndexOf(lo.Map(right, entryID), resolved.RightID)
	if li < 0 || ri < 0 {
		return nil, nil
	}
	left[li].IsMatched, right[ri].IsMatched = true, true

	matched := lo.CountBy(left, isMatched) + lo.CountBy(right, isMatched)
	if matched != 2 {
		return nil, nil
	}

	oldLeft, oldRight := left[li].Word, right[ri].Word
	gone, ok := lo.Find(round, func(p Pair) bool { return p.Has(oldLeft, oldRight) })
	if !ok {
		return nil, nil
	}
	survivors := lo.Filter(round, func(p Pair, _ int) bool { return p.ID != gone.ID })

	eligible := lo.Filter(catalog, func(c Pair, _ int) bool {
		if c.ID == gone.ID {
			return false
		}
		return !lo.ContainsBy(survivors, func(s Pair) bool {
			return s.ID == c.ID || s.Uses(c.Word1) || s.Uses(c.Word2)
		})
	})

	for _, i := range rng.Perm(len(eligible)) {
		c := eligible[i]
		l, r := orient(c, mixColumns, rng)
		if l == oldLeft || r == oldRight {
			if !mixColumns {
				continue
			}
			l, r = r, l
			if l == oldLeft || r == oldRight {
				continue
			}
		}

		id := mintEntryID(c.ID)
		left[li] = WordEntry{ID: id, Word: l}
		right[ri] = WordEntry{ID: id, Word: r}
		return &Replenishment{
			Left:    left,
			Right:   right,
			Pairs:   append(survivors, c),
			Removed: gone,
			Added:   c,
		}, nil
	}
	return nil, ErrReplenishmentStarvation
}

// mintEntryID derives a board-unique id from a catalog id, so a pair that
// returns to the board never collides with an entry still being unmounted.
func mintEntryID(pairID string) string {
	return pairID + "-" + uuid.NewString()[:8]
}

func entryID(e WordEntry, _ int) string { return e.ID }

func isMatched(e WordEntry) bool { return e.IsMatched }
