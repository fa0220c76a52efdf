// internal/game/session.go
//
// Session owns one player's game: the State, the match processor, and the
// running flag. It is the only writer of State; every mutation goes through
// Reduce while holding the session lock, including timer continuations.
//
// Lifecycle:
//   - Start:   mark running and deal a round if the board is empty.
//   - Stop:    pause; clears selections/feedback, keeps the columns.
//   - Restart: discard the current round and deal a new one.
//   - Select:  forward a click; committed selections go to the processor.

package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionConfig holds everything a Session needs besides its catalog.
type SessionConfig struct {
	ID        string
	Options   Options
	Timings   Timings
	Scheduler Scheduler
	Hooks     Hooks
	Rand      *rand.Rand
	Logger    zerolog.Logger
}

// Session is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	id        string
	catalog   []Pair
	opts      Options
	state     State
	running   bool
	rng       *rand.Rand
	proc      *Processor
	log       zerolog.Logger
	lastErr   error
	listeners map[int]func(State)
	nextLn    int
}

// NewSession builds an idle session over a read-only catalog.
func NewSession(catalog []Pair, cfg SessionConfig) *Session {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.Timings == (Timings{}) {
		cfg.Timings = DefaultTimings()
	}
	s := &Session{
		id:        cfg.ID,
		catalog:   append([]Pair(nil), catalog...),
		opts:      cfg.Options,
		rng:       cfg.Rand,
		log:       cfg.Logger.With().Str("session", cfg.ID).Logger(),
		listeners: make(map[int]func(State)),
	}

	hooks := cfg.Hooks
	onError := hooks.OnError
	hooks.OnError = func(err error) {
		s.lastErr = err
		if onError != nil {
			onError(err)
		}
	}

	s.proc = NewProcessor(writer{s}, ProcessorConfig{
		Options:   cfg.Options,
		Timings:   cfg.Timings,
		Catalog:   s.catalog,
		Rand:      cfg.Rand,
		Scheduler: lockedScheduler{inner: cfg.Scheduler, mu: &s.mu},
		Hooks:     hooks,
		Logger:    s.log,
		NextRound: s.nextRound,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Options returns the mode flags the session was created with.
func (s *Session) Options() Options { return s.opts }

// Start resumes play, dealing a round when the board is empty.
// On ErrNotEnoughPairs or ErrCatalogTooSmall the columns stay empty.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	if len(s.state.LeftColumn) > 0 {
		return nil
	}
	return s.deal()
}

// Stop pauses play. Columns survive; selections and feedback are cleared.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.proc.Flush()
	s.apply(ResetGame{})
}

// Restart throws the current round away and deals a new one.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.proc.Flush()
	s.apply(CompleteRound{})
	return s.deal()
}

// Select forwards a click. It is ignored while paused, on matched cells, and
// while a committed selection is still being resolved.
func (s *Session) Select(word, id string, col Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.state.Animating() || s.proc.Busy() {
		return
	}
	if e, ok := s.state.Entry(col, id); !ok || e.IsMatched {
		return
	}

	before := s.state
	s.apply(SelectWord{Word: word, ID: id, Column: col})
	if sel, ok := committed(before, s.state); ok {
		s.proc.Submit(sel)
	}
}

// SetInitialOpacity forwards a presentation hint.
func (s *Session) SetInitialOpacity(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(SetInitialOpacity{Value: v})
}

// State returns a deep copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Running reports whether the session accepts selections.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Round returns the current working pair set.
func (s *Session) Round() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc.Round()
}

// LastError returns the most recent engine failure, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to receive a snapshot after every transition.
// fn runs under the session lock and must not block or call back in.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextLn
	s.nextLn++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// deal runs the loading phase and installs a new round. Caller holds mu.
func (s *Session) deal() error {
	if s.opts.Endless && len(s.catalog) < 2*s.opts.RoundSize {
		s.lastErr = ErrCatalogTooSmall
		return ErrCatalogTooSmall
	}

	s.apply(SetLoading{Loading: true})
	defer s.apply(SetLoading{Loading: false})

	d, err := InitializeRound(s.catalog, s.opts.RoundSize, s.opts.MixColumns, s.rng)
	if err != nil {
		s.lastErr = err
		s.log.Warn().Err(err).Int("catalog", len(s.catalog)).Int("roundSize", s.opts.RoundSize).Msg("deal round")
		s.proc.BeginRound(nil)
		s.apply(InitializeColumns{})
		return err
	}
	s.proc.BeginRound(d.Pairs)
	s.apply(InitializeColumns{Left: d.Left, Right: d.Right})
	s.log.Debug().Int("pairs", len(d.Pairs)).Bool("endless", s.opts.Endless).Msg("round dealt")
	return nil
}

// nextRound runs from a processor timer, already under mu.
func (s *Session) nextRound() {
	if !s.running {
		// Start deals again once the player resumes.
		return
	}
	_ = s.deal()
}

// apply is the single write path. Caller holds mu.
func (s *Session) apply(e Event) {
	s.state = Reduce(s.state, e)
	if len(s.listeners) == 0 {
		return
	}
	snap := s.state.Clone()
	for _, fn := range s.listeners {
		fn(snap)
	}
}

// committed finds the selection that became complete between before and after.
func committed(before, after State) (SelectionPair, bool) {
	for _, p := range after.SelectedPairs {
		if !p.Complete() || p.MatchResult != MatchPending {
			continue
		}
		seen := false
		for _, q := range before.SelectedPairs {
			if q.Complete() && q.LeftID == p.LeftID && q.RightID == p.RightID {
				seen = true
				break
			}
		}
		if !seen {
			return p, true
		}
	}
	return SelectionPair{}, false
}

// writer adapts a Session to Dispatcher for code already holding mu.
type writer struct{ s *Session }

func (w writer) Dispatch(e Event) { w.s.apply(e) }
func (w writer) Snapshot() State  { return w.s.state.Clone() }

// lockedScheduler runs continuations under the session lock so that timer
// callbacks and player input never interleave.
type lockedScheduler struct {
	inner Scheduler
	mu    *sync.Mutex
}

func (l lockedScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return l.inner.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		f()
	})
}
