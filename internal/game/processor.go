// internal/game/processor.go
//
// Match processor: evaluates committed selections strictly one at a time.
//
// Per selection:
//   1. Evaluate against the round's working pair set (either word order).
//   2. Emit ProcessMatch and fire the solved/mistake hook.
//   3. After the feedback delay, apply the outcome (mark matched, replenish,
//      or nothing for a miss) and emit FinishAnimation.
//   4. Move on to the next queued selection.
//
// The processor never touches State directly: it reads snapshots and emits
// events through its Dispatcher. Outcomes scheduled for a round that has
// since been replaced are skipped, but FinishAnimation always fires.

package game

import (
	"errors"
	"math/rand"

	"github.com/rs/zerolog"
)

// Dispatcher is the single writer of State.
type Dispatcher interface {
	Dispatch(e Event)
	Snapshot() State
}

// ProcessorConfig wires a Processor.
type ProcessorConfig struct {
	Options   Options
	Timings   Timings
	Catalog   []Pair
	Rand      *rand.Rand
	Scheduler Scheduler
	Hooks     Hooks
	Logger    zerolog.Logger
	// NextRound is invoked after a classic round is fully matched and the
	// board was cleared.
	NextRound func()
}

// Processor serialises match evaluation.
type Processor struct {
	d     Dispatcher
	cfg   ProcessorConfig
	round []Pair
	gen   uint64
	queue []SelectionPair
	busy  bool
}

// NewProcessor returns an idle processor with an empty round.
func NewProcessor(d Dispatcher, cfg ProcessorConfig) *Processor {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	return &Processor{d: d, cfg: cfg}
}

// BeginRound installs a new working pair set and drops anything queued for
// the old one. Timers still pending from the previous round will no longer
// apply their outcomes or hold the processor busy.
func (p *Processor) BeginRound(pairs []Pair) {
	p.gen++
	p.round = append([]Pair(nil), pairs...)
	p.queue = nil
	p.busy = false
}

// Round returns a copy of the working pair set.
func (p *Processor) Round() []Pair { return append([]Pair(nil), p.round...) }

// Queued reports how many committed selections wait behind the one in flight.
func (p *Processor) Queued() int { return len(p.queue) }

// Busy reports whether a selection is being resolved.
func (p *Processor) Busy() bool { return p.busy }

// Flush drops selections that have not started evaluating. The one in
// flight, if any, still finishes its animation.
func (p *Processor) Flush() { p.queue = nil }

// Submit enqueues a committed selection.
func (p *Processor) Submit(sel SelectionPair) {
	p.queue = append(p.queue, sel)
	if !p.busy {
		p.next()
	}
}

// Matches reports whether (left, right) is a pair of the current round.
func (p *Processor) Matches(left, right string) bool {
	for _, pr := range p.round {
		if pr.Has(left, right) {
			return true
		}
	}
	return false
}

func (p *Processor) next() {
	if len(p.queue) == 0 {
		p.busy = false
		return
	}
	p.busy = true
	sel := p.queue[0]
	p.queue = p.queue[1:]

	isMatch := p.Matches(sel.Left, sel.Right)
	if !isMatch && (!p.known(sel.Left) || !p.known(sel.Right)) {
		p.cfg.Logger.Warn().Str("left", sel.Left).Str("right", sel.Right).
			Msg("selection does not belong to the round; scoring as incorrect")
	}
	p.cfg.Logger.Debug().Str("leftId", sel.LeftID).Str("rightId", sel.RightID).
		Bool("match", isMatch).Msg("resolve selection")

	p.d.Dispatch(ProcessMatch{Pair: sel, IsMatch: isMatch})
	if isMatch {
		p.cfg.Hooks.solved()
	} else {
		p.cfg.Hooks.mistake()
	}

	gen := p.gen
	delay := p.cfg.Timings.feedback(isMatch, p.cfg.Options.FastAnimations)
	p.cfg.Scheduler.AfterFunc(delay, func() { p.settle(sel, isMatch, gen) })
}

// settle applies the outcome once the feedback window has elapsed.
func (p *Processor) settle(sel SelectionPair, isMatch bool, gen uint64) {
	done := FinishAnimation{IDs: []string{sel.LeftID, sel.RightID}}
	if gen != p.gen {
		// Stale. Tidy up unless the new round already has a selection in flight.
		if !p.busy {
			p.d.Dispatch(done)
		}
		return
	}
	if isMatch {
		if p.cfg.Options.Endless {
			p.replenish(sel)
		} else {
			p.markMatched(sel)
		}
		if gen != p.gen {
			return // re-dealt
		}
	}
	p.d.Dispatch(done)
	p.next()
}

func (p *Processor) markMatched(sel SelectionPair) {
	p.d.Dispatch(MarkMatched{LeftID: sel.LeftID, RightID: sel.RightID})
	if p.cfg.Options.Endless || !p.d.Snapshot().AllLeftMatched() {
		return
	}

	gen := p.gen
	p.cfg.Scheduler.AfterFunc(p.cfg.Timings.RoundPause, func() {
		if gen != p.gen {
			return
		}
		p.cfg.Logger.Info().Int("pairs", len(p.round)).Msg("round complete")
		p.d.Dispatch(CompleteRound{})
		p.cfg.Hooks.roundDone()
		if p.cfg.NextRound != nil {
			p.cfg.NextRound()
		}
	})
}

func (p *Processor) replenish(sel SelectionPair) {
	snap := p.d.Snapshot()
	rep, err := Replenish(snap.LeftColumn, snap.RightColumn, sel, p.round, p.cfg.Catalog, p.cfg.Options.MixColumns, p.cfg.Rand)
	if err != nil {
		p.cfg.Logger.Error().Err(err).Int("catalog", len(p.cfg.Catalog)).Msg("replenish")
		p.cfg.Hooks.fail(err)
		if errors.Is(err, ErrReplenishmentStarvation) && p.cfg.NextRound != nil {
			// Nothing fits the board any more: deal a fresh one.
			p.d.Dispatch(CompleteRound{})
			p.cfg.NextRound()
			return
		}
	}
	if rep == nil {
		p.markMatched(sel)
		return
	}

	p.round = rep.Pairs
	p.cfg.Logger.Debug().Str("removed", rep.Removed.ID).Str("added", rep.Added.ID).Msg("replenished")
	p.d.Dispatch(InitializeColumns{Left: rep.Left, Right: rep.Right})
	p.cfg.Hooks.replenished()
}

func (p *Processor) known(word string) bool {
	for _, pr := range p.round {
		if pr.Uses(word) {
			return true
		}
	}
	return false
}
