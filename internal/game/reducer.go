// internal/game/reducer.go
//
// The game state machine: a total transition function over a closed event set.
//
// Round phases are implicit in the State fields:
//   Loading → Active ⇄ (selection pending) → Resolving → Active | RoundComplete
//
// Reduce never mutates its input; it returns a fresh State for every event.

package game

// Event is one of the types declared below. The set is closed: the marker
// method is unexported.
type Event interface{ isEvent() }

// InitializeColumns replaces both columns and clears selections and feedback.
type InitializeColumns struct {
	Left  []WordEntry
	Right []WordEntry
}

// SelectWord is a player click on a cell.
type SelectWord struct {
	Word   string
	ID     string
	Column Column
}

// ProcessMatch starts feedback for a resolved selection.
type ProcessMatch struct {
	Pair    SelectionPair
	IsMatch bool
}

// MarkMatched flags the two entries of a correct selection as matched.
type MarkMatched struct {
	LeftID  string
	RightID string
}

// FinishAnimation ends the resolving phase for the given entry ids.
type FinishAnimation struct {
	IDs []string
}

// CompleteRound empties the board and bumps ListKey.
type CompleteRound struct{}

// ResetGame clears selections and feedback, keeping columns.
type ResetGame struct{}

// SetLoading toggles the loading flag.
type SetLoading struct{ Loading bool }

// SetInitialOpacity is a presentation hint with no engine semantics.
type SetInitialOpacity struct{ Value float64 }

// IncrementListKey bumps the remount counter.
type IncrementListKey struct{}

func (InitializeColumns) isEvent() {}
func (SelectWord) isEvent()        {}
func (ProcessMatch) isEvent()      {}
func (MarkMatched) isEvent()       {}
func (FinishAnimation) isEvent()   {}
func (CompleteRound) isEvent()     {}
func (ResetGame) isEvent()         {}
func (SetLoading) isEvent()        {}
func (SetInitialOpacity) isEvent() {}
func (IncrementListKey) isEvent()  {}

// Reduce applies e to s and returns the next state.
func Reduce(s State, e Event) State {
	next := s.Clone()
	switch ev := e.(type) {
	case InitializeColumns:
		next.LeftColumn = append([]WordEntry(nil), ev.Left...)
		next.RightColumn = append([]WordEntry(nil), ev.Right...)
		next.SelectedPairs = nil
		next.IsAnyCorrectAnimating, next.IsAnyIncorrectAnimating = false, false

	case SelectWord:
		next.SelectedPairs = selectWord(next, ev)

	case ProcessMatch:
		next = processMatch(next, ev)

	case MarkMatched:
		setFlag(next.LeftColumn, ev.LeftID, func(w *WordEntry) { w.IsMatched = true })
		setFlag(next.RightColumn, ev.RightID, func(w *WordEntry) { w.IsMatched = true })

	case FinishAnimation:
		ids := make(map[string]struct{}, len(ev.IDs))
		for _, id := range ev.IDs {
			ids[id] = struct{}{}
		}
		settle := func(w *WordEntry) {
			if _, ok := ids[w.ID]; ok {
				w.IsAnimating = false
			}
		}
		for i := range next.LeftColumn {
			settle(&next.LeftColumn[i])
		}
		for i := range next.RightColumn {
			settle(&next.RightColumn[i])
		}
		next.SelectedPairs = dropResolved(next.SelectedPairs, ids)
		next.IsAnyCorrectAnimating, next.IsAnyIncorrectAnimating = false, false

	case CompleteRound:
		next.LeftColumn, next.RightColumn = nil, nil
		next.SelectedPairs = nil
		next.IsAnyCorrectAnimating, next.IsAnyIncorrectAnimating = false, false
		next.ListKey++

	case ResetGame:
		next.SelectedPairs = nil
		next.IsAnyCorrectAnimating, next.IsAnyIncorrectAnimating = false, false
		for i := range next.LeftColumn {
			next.LeftColumn[i].IsAnimating = false
		}
		for i := range next.RightColumn {
			next.RightColumn[i].IsAnimating = false
		}

	case SetLoading:
		next.IsLoading = ev.Loading

	case SetInitialOpacity:
		next.InitialOpacity = ev.Value

	case IncrementListKey:
		next.ListKey++
	}
	return next
}

// selectWord implements the click rules:
//   - clicking the pending half again deselects it;
//   - clicking the other side completes (commits) the pending selection;
//   - clicking another word on the pending side replaces that half;
//   - otherwise a new pending selection starts.
// Clicks on matched or unknown entries, or during feedback, are ignored.
func selectWord(s State, ev SelectWord) []SelectionPair {
	pairs := s.SelectedPairs
	if !ev.Column.Valid() || s.Animating() {
		return pairs
	}
	entry, ok := s.Entry(ev.Column, ev.ID)
	if !ok || entry.IsMatched {
		return pairs
	}

	for i, p := range pairs {
		if !p.Pending() {
			continue
		}
		if _, ownID := p.half(ev.Column); ownID == ev.ID {
			rest := append(pairs[:i:i], pairs[i+1:]...)
			if len(rest) == 0 {
				return nil
			}
			return rest
		}
		// Either fills the empty side (commit) or swaps the pending half.
		pairs[i] = p.withHalf(ev.Column, ev.Word, ev.ID)
		return pairs
	}
	return append(pairs, SelectionPair{}.withHalf(ev.Column, ev.Word, ev.ID))
}

// processMatch records the outcome on the committed selection and starts
// feedback on both entries.
func processMatch(s State, ev ProcessMatch) State {
	result := MatchIncorrect
	if ev.IsMatch {
		result = MatchCorrect
	}
	for i, p := range s.SelectedPairs {
		if p.LeftID == ev.Pair.LeftID && p.RightID == ev.Pair.RightID && p.MatchResult == MatchPending {
			s.SelectedPairs[i].MatchResult = result
			break
		}
	}
	s.IsAnyCorrectAnimating = ev.IsMatch
	s.IsAnyIncorrectAnimating = !ev.IsMatch
	setFlag(s.LeftColumn, ev.Pair.LeftID, func(w *WordEntry) { w.IsAnimating = true })
	setFlag(s.RightColumn, ev.Pair.RightID, func(w *WordEntry) { w.IsAnimating = true })
	return s
}

// dropResolved removes resolved selections touching any id in ids.
func dropResolved(pairs []SelectionPair, ids map[string]struct{}) []SelectionPair {
	out := pairs[:0]
	for _, p := range pairs {
		_, l := ids[p.LeftID]
		_, r := ids[p.RightID]
		if p.MatchResult != MatchPending && (l || r) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func setFlag(col []WordEntry, id string, f func(*WordEntry)) {
	for i := range col {
		if col[i].ID == id {
			f(&col[i])
			return
		}
	}
}
