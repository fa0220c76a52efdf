package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recorder is a Dispatcher that keeps every event it was sent.
type recorder struct {
	state  State
	events []Event
}

func (r *recorder) Dispatch(e Event) {
	r.events = append(r.events, e)
	r.state = Reduce(r.state, e)
}

func (r *recorder) Snapshot() State { return r.state.Clone() }

func newTestProcessor(round []Pair, opts Options, hooks Hooks) (*Processor, *recorder, *ManualScheduler) {
	rec := &recorder{}
	left, right := pairBoard(round...)
	rec.Dispatch(InitializeColumns{Left: left, Right: right})
	sched := NewManualScheduler()
	p := NewProcessor(rec, ProcessorConfig{
		Options:   opts,
		Timings:   DefaultTimings(),
		Catalog:   round,
		Rand:      rand.New(rand.NewSource(1)),
		Scheduler: sched,
		Hooks:     hooks,
		Logger:    zerolog.Nop(),
	})
	p.BeginRound(round)
	return p, rec, sched
}

func TestProcessorKeepsCommitOrder(t *testing.T) {
	round := testCatalog(3)
	var outcomes []string
	p, rec, sched := newTestProcessor(round, Options{RoundSize: 3}, Hooks{
		OnPairSolved:  func() { outcomes = append(outcomes, "solved") },
		OnPairMistake: func() { outcomes = append(outcomes, "mistake") },
	})

	first := resolvedFor(round[0])
	wrong := SelectionPair{Left: round[1].Word1, Right: round[2].Word2, LeftID: round[1].ID, RightID: round[2].ID}
	last := resolvedFor(round[2])
	first.MatchResult, last.MatchResult = MatchPending, MatchPending

	p.Submit(first)
	p.Submit(wrong)
	p.Submit(last)

	if len(outcomes) != 1 || p.Queued() != 2 || !p.Busy() {
		t.Fatalf("only one selection may be in flight: outcomes=%v queued=%d", outcomes, p.Queued())
	}
	sched.Advance(500 * time.Millisecond)
	sched.Advance(700 * time.Millisecond)
	sched.Advance(500 * time.Millisecond)

	want := []string{"solved", "mistake", "solved"}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes %v, want %v", outcomes, want)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("outcomes %v, want %v", outcomes, want)
		}
	}
	if p.Busy() {
		t.Fatalf("processor should be idle after draining")
	}

	var order []string
	for _, e := range rec.events {
		if pm, ok := e.(ProcessMatch); ok {
			order = append(order, pm.Pair.LeftID)
		}
	}
	if len(order) != 3 || order[0] != "p1" || order[1] != "p2" || order[2] != "p3" {
		t.Fatalf("ProcessMatch order %v", order)
	}
}

func TestProcessorIncorrectLeavesColumns(t *testing.T) {
	round := testCatalog(2)
	mistakes := 0
	p, rec, sched := newTestProcessor(round, Options{RoundSize: 2, FastAnimations: true}, Hooks{
		OnPairMistake: func() { mistakes++ },
	})
	p.Submit(SelectionPair{Left: "w1a", Right: "w2b", LeftID: "p1", RightID: "p2"})
	if !rec.state.IsAnyIncorrectAnimating {
		t.Fatalf("incorrect feedback not started")
	}

	sched.Advance(399 * time.Millisecond)
	if !rec.state.IsAnyIncorrectAnimating {
		t.Fatalf("fast incorrect feedback ended early")
	}
	sched.Advance(time.Millisecond)
	if rec.state.Animating() || mistakes != 1 {
		t.Fatalf("feedback not finished or mistake not counted")
	}
	for _, e := range append(rec.state.LeftColumn, rec.state.RightColumn...) {
		if e.IsMatched {
			t.Fatalf("incorrect selection changed columns")
		}
	}
}

func TestProcessorUnknownSelectionScoredIncorrect(t *testing.T) {
	round := testCatalog(2)
	mistakes := 0
	p, rec, sched := newTestProcessor(round, Options{RoundSize: 2}, Hooks{OnPairMistake: func() { mistakes++ }})

	p.Submit(SelectionPair{Left: "ghost", Right: "w1b", LeftID: "zz", RightID: "p1"})
	sched.Advance(time.Second)
	if mistakes != 1 || rec.state.Animating() || p.Busy() {
		t.Fatalf("queue did not drain an unknown selection")
	}
}

func TestProcessorSkipsStaleOutcome(t *testing.T) {
	round := testCatalog(2)
	p, rec, sched := newTestProcessor(round, Options{RoundSize: 2}, Hooks{})
	p.Submit(SelectionPair{Left: "w1a", Right: "w1b", LeftID: "p1", RightID: "p1"})

	p.BeginRound(round) // the round was replaced while feedback was running
	sched.Advance(time.Second)

	if e, _ := rec.state.Entry(ColumnLeft, "p1"); e.IsMatched || e.IsAnimating {
		t.Fatalf("stale outcome applied: %+v", e)
	}
	if _, ok := rec.events[len(rec.events)-1].(FinishAnimation); !ok {
		t.Fatalf("FinishAnimation must still fire, last event %T", rec.events[len(rec.events)-1])
	}
}
