// internal/game/types.go
//
// Core type definitions for the pair-matching engine.
// Defines:
//   - Pair: a read-only catalog record (two associated words).
//   - WordEntry: one visible cell in a column.
//   - SelectionPair: an in-progress or just-resolved player selection.
//   - State: the whole engine state emitted to the presentation layer.
//   - Options/Timings: per-session mode flags and feedback delays.

package game

import (
	"errors"
	"time"
)

// Column identifies one side of the board.
type Column string

const (
	ColumnLeft  Column = "left"
	ColumnRight Column = "right"
)

// Opposite returns the other column.
func (c Column) Opposite() Column {
	if c == ColumnLeft {
		return ColumnRight
	}
	return ColumnLeft
}

// Valid reports whether c is one of the two known columns.
func (c Column) Valid() bool { return c == ColumnLeft || c == ColumnRight }

// MatchResult is the evaluation outcome of a committed selection.
// The empty value means "not evaluated yet".
type MatchResult string

const (
	MatchPending   MatchResult = ""
	MatchCorrect   MatchResult = "correct"
	MatchIncorrect MatchResult = "incorrect"
)

// Pair is a ground-truth association between two words.
type Pair struct {
	ID     string   `json:"id"`
	Word1  string   `json:"word1"`
	Word2  string   `json:"word2"`
	TagIDs []string `json:"tagIds,omitempty"`
}

// Has reports whether (a, b) equals the pair's words in either order.
func (p Pair) Has(a, b string) bool {
	return (p.Word1 == a && p.Word2 == b) || (p.Word1 == b && p.Word2 == a)
}

// Uses reports whether w is one of the pair's words.
func (p Pair) Uses(w string) bool { return p.Word1 == w || p.Word2 == w }

// WordEntry is one cell on screen.
type WordEntry struct {
	ID          string `json:"id"`
	Word        string `json:"word"`
	IsMatched   bool   `json:"isMatched"`
	IsAnimating bool   `json:"isAnimating"`
}

// SelectionPair holds one player selection. A selection is committed once
// both halves are filled; it is resolved once MatchResult is set.
type SelectionPair struct {
	Left        string      `json:"left"`
	Right       string      `json:"right"`
	LeftID      string      `json:"leftId"`
	RightID     string      `json:"rightId"`
	MatchResult MatchResult `json:"matchResult"`
}

// Complete reports whether both halves are filled.
func (p SelectionPair) Complete() bool { return p.LeftID != "" && p.RightID != "" }

// Pending reports whether exactly one half is filled.
func (p SelectionPair) Pending() bool { return !p.Complete() && (p.LeftID != "" || p.RightID != "") }

// half returns the (word, id) filled on column c.
func (p SelectionPair) half(c Column) (string, string) {
	if c == ColumnLeft {
		return p.Left, p.LeftID
	}
	return p.Right, p.RightID
}

// withHalf returns a copy of p with column c set to (word, id).
func (p SelectionPair) withHalf(c Column, word, id string) SelectionPair {
	if c == ColumnLeft {
		p.Left, p.LeftID = word, id
	} else {
		p.Right, p.RightID = word, id
	}
	return p
}

// State is the engine's single source of truth.
type State struct {
	LeftColumn              []WordEntry     `json:"leftColumn"`
	RightColumn             []WordEntry     `json:"rightColumn"`
	SelectedPairs           []SelectionPair `json:"selectedPairs"`
	IsAnyIncorrectAnimating bool            `json:"isAnyIncorrectAnimating"`
	IsAnyCorrectAnimating   bool            `json:"isAnyCorrectAnimating"`
	IsLoading               bool            `json:"isLoading"`
	InitialOpacity          float64         `json:"initialOpacity"`
	ListKey                 int             `json:"listKey"`
}

// Animating reports whether any match feedback is in progress.
func (s State) Animating() bool { return s.IsAnyCorrectAnimating || s.IsAnyIncorrectAnimating }

// Column returns the entries of column c.
func (s State) Column(c Column) []WordEntry {
	if c == ColumnLeft {
		return s.LeftColumn
	}
	return s.RightColumn
}

// Entry looks up an entry by id in column c.
func (s State) Entry(c Column, id string) (WordEntry, bool) {
	for _, e := range s.Column(c) {
		if e.ID == id {
			return e, true
		}
	}
	return WordEntry{}, false
}

// AllLeftMatched reports whether the left column is non-empty and fully matched.
func (s State) AllLeftMatched() bool {
	if len(s.LeftColumn) == 0 {
		return false
	}
	for _, e := range s.LeftColumn {
		if !e.IsMatched {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	out := s
	out.LeftColumn = append([]WordEntry(nil), s.LeftColumn...)
	out.RightColumn = append([]WordEntry(nil), s.RightColumn...)
	out.SelectedPairs = append([]SelectionPair(nil), s.SelectedPairs...)
	return out
}

// Options are the per-session mode flags.
type Options struct {
	RoundSize      int  `json:"roundSize"`
	Endless        bool `json:"endless"`
	MixColumns     bool `json:"mixColumns"`
	FastAnimations bool `json:"fastAnimations"`
}

// Timings are the feedback delays applied by the match processor.
type Timings struct {
	Correct       time.Duration
	Incorrect     time.Duration
	FastCorrect   time.Duration
	FastIncorrect time.Duration
	RoundPause    time.Duration
}

// DefaultTimings mirrors the presentation layer's animation lengths.
func DefaultTimings() Timings {
	return Timings{
		Correct:       500 * time.Millisecond,
		Incorrect:     700 * time.Millisecond,
		FastCorrect:   250 * time.Millisecond,
		FastIncorrect: 400 * time.Millisecond,
		RoundPause:    500 * time.Millisecond,
	}
}

// feedback picks the delay for an outcome.
func (t Timings) feedback(correct, fast bool) time.Duration {
	switch {
	case correct && fast:
		return t.FastCorrect
	case correct:
		return t.Correct
	case fast:
		return t.FastIncorrect
	default:
		return t.Incorrect
	}
}

// Hooks are caller-owned side effects fired by the engine.
// They run on the session's writer and must not call back into the session.
type Hooks struct {
	OnPairSolved  func()
	OnPairMistake func()
	OnRoundDone   func()
	OnReplenish   func()
	OnError       func(error)
}

func (h Hooks) solved() {
	if h.OnPairSolved != nil {
		h.OnPairSolved()
	}
}

func (h Hooks) mistake() {
	if h.OnPairMistake != nil {
		h.OnPairMistake()
	}
}

func (h Hooks) roundDone() {
	if h.OnRoundDone != nil {
		h.OnRoundDone()
	}
}

func (h Hooks) replenished() {
	if h.OnReplenish != nil {
		h.OnReplenish()
	}
}

func (h Hooks) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

var (
	// ErrNotEnoughPairs means the catalog is smaller than the round size.
	ErrNotEnoughPairs = errors.New("not enough pairs")
	// ErrInvalidRoundSize means a non-positive round size was requested.
	ErrInvalidRoundSize = errors.New("invalid round size")
	// ErrCatalogTooSmall means endless mode lacks spare pairs to replenish from.
	ErrCatalogTooSmall = errors.New("catalog too small for endless mode")
	// ErrReplenishmentStarvation means no replacement satisfies the uniqueness rules.
	ErrReplenishmentStarvation = errors.New("no eligible replacement pair")
)
