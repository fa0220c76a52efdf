// internal/httpserver/server.go
//
// HTTP server wiring for the pair-matching game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/catalog", "/metrics".
//   - Session endpoints: create, inspect, select, start/stop/restart, finish.
//   - Websocket stream of state snapshots: GET /sessions/{id}/ws.
//   - Daily leaderboard: mounted under /daily.
//
// Notes:
//   - The engine decides what is matched/animating; this layer only forwards
//     clicks and renders snapshots as JSON.
//   - Engine failures (not enough pairs, catalog too small) are reported as an
//     "error" field next to a valid state, never as a 5xx.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RybakovWebDev/pair-learner-sub000/internal/daily"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/game"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/store"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/words"
)

// Config tunes how sessions are created.
type Config struct {
	DefaultRoundSize int
	Timings          game.Timings
	DailySalt        string
	// Scheduler drives feedback timers; nil means real timers.
	Scheduler game.Scheduler
	// Now is the clock used for dates and elapsed time; nil means time.Now.
	Now func() time.Time
}

// Server bundles router, live session registry, and results store.
type Server struct {
	r       *chi.Mux
	store   store.Store
	results *daily.Store
	cfg     Config
	metrics *metrics

	mu     sync.Mutex
	boards map[string]*scoreboard // keyed by session id
}

// scoreboard is the caller-owned score of one session, fed by engine hooks.
type scoreboard struct {
	solved      atomic.Int64
	mistakes    atomic.Int64
	rounds      atomic.Int64
	replenished atomic.Int64
	started     time.Time
	date        string
	daily       bool
}

type scoreView struct {
	Solved      int64 `json:"solved"`
	Mistakes    int64 `json:"mistakes"`
	Rounds      int64 `json:"rounds"`
	Replenished int64 `json:"replenished"`
}

func (b *scoreboard) view() scoreView {
	return scoreView{
		Solved:      b.solved.Load(),
		Mistakes:    b.mistakes.Load(),
		Rounds:      b.rounds.Load(),
		Replenished: b.replenished.Load(),
	}
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, cfg Config) *Server {
	if cfg.DefaultRoundSize <= 0 {
		cfg.DefaultRoundSize = 5
	}
	if cfg.Timings == (game.Timings{}) {
		cfg.Timings = game.DefaultTimings()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		r:       chi.NewRouter(),
		store:   st,
		results: daily.NewStore(db),
		cfg:     cfg,
		metrics: newMetrics(),
		boards:  make(map[string]*scoreboard),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(corsFromEnv)     // credentials-friendly CORS

	s.r.Handle("/metrics", s.metrics.handler())
	s.mountSessions(s.r)

	s.r.Group(func(r chi.Router) {
		r.Use(apiMiddleware...)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"pair-learner","endpoints":["/health","POST /sessions","/sessions/{id}/*","/daily/leaderboard","/metrics"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/catalog", func(w http.ResponseWriter, r *http.Request) {
			p, t := words.Stats()
			_ = json.NewEncoder(w).Encode(map[string]any{"pairs": p, "tags": t, "tagIds": words.Tags(), "sessions": s.store.Len()})
		})

		s.mountDaily(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// apiMiddleware bounds handler time and defaults JSON responses.
var apiMiddleware = []func(http.Handler) http.Handler{
	chimw.Timeout(10 * time.Second),
	jsonContentType,
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := clientOrigin()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientOrigin() string { return getEnv("CLIENT_ORIGIN", "http://localhost:5173") }

// ----------------------------- SESSIONS -------------------------------------

func (s *Server) mountSessions(r chi.Router) {
	r.With(apiMiddleware...).Post("/sessions", s.handleNewSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		// Websocket stays outside the timeout: it is long-lived.
		r.Get("/ws", s.handleWS)
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware...)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/select", s.handleSelect)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Post("/restart", s.handleRestart)
			r.Post("/finish", s.handleFinish)
		})
	})
}

// newSessionReq is the payload for POST /sessions. Every field is optional.
type newSessionReq struct {
	RoundSize      int      `json:"roundSize"`
	Endless        bool     `json:"endless"`
	MixColumns     bool     `json:"mixColumns"`
	FastAnimations bool     `json:"fastAnimations"`
	Tags           []string `json:"tags"`
	Daily          bool     `json:"daily"`
}

// sessionRes is returned by every session endpoint.
type sessionRes struct {
	SessionID string       `json:"sessionId"`
	Options   game.Options `json:"options"`
	Running   bool         `json:"running"`
	State     game.State   `json:"state"`
	Score     scoreView    `json:"score"`
	Error     string       `json:"error,omitempty"`
}

// handleNewSession deals a new session over the (optionally tag-filtered)
// catalog and starts it.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.RoundSize <= 0 {
		req.RoundSize = s.cfg.DefaultRoundSize
	}

	now := s.cfg.Now()
	seed := now.UnixNano()
	if req.Daily {
		seed = daily.Seed(now, s.cfg.DailySalt)
	}
	opts := game.Options{
		RoundSize:      req.RoundSize,
		Endless:        req.Endless,
		MixColumns:     req.MixColumns,
		FastAnimations: req.FastAnimations,
	}
	board := &scoreboard{started: now, date: daily.DateKey(now), daily: req.Daily}
	id := uuid.NewString()

	sess := game.NewSession(game.FilterByTags(words.Catalog(), req.Tags), game.SessionConfig{
		ID:        id,
		Options:   opts,
		Timings:   s.cfg.Timings,
		Scheduler: s.cfg.Scheduler,
		Hooks:     s.hooks(board, modeOf(opts)),
		Rand:      rand.New(rand.NewSource(seed)),
		Logger:    log.Logger,
	})
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	s.boards[id] = board
	s.mu.Unlock()
	s.metrics.sessions.Inc()

	startErr := sess.Start()
	if startErr != nil {
		log.Info().Err(startErr).Str("session", id).Strs("tags", req.Tags).Msg("session started without a round")
	}
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, startErr))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, sess.LastError()))
}

// selectReq is the payload for POST /sessions/{id}/select.
type selectReq struct {
	Word   string `json:"word"`
	ID     string `json:"id"`
	Column string `json:"column"` // "left" | "right"
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	col := game.Column(req.Column)
	if !col.Valid() || req.ID == "" {
		http.Error(w, `{"error":"bad_selection"}`, http.StatusBadRequest)
		return
	}
	sess.Select(req.Word, req.ID, col)
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, nil))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	err := sess.Start()
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, err))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Stop()
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, nil))
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	err := sess.Restart()
	_ = json.NewEncoder(w).Encode(s.payload(sess, board, err))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	s.forget(id)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleFinish stops the session, persists its score, and unregisters it.
func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, board, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Stop()
	score := board.view()
	opts := sess.Options()
	res := daily.Result{
		SessionID: sess.ID(),
		Date:      board.date,
		Mode:      modeOf(opts),
		Daily:     board.daily,
		RoundSize: opts.RoundSize,
		Solved:    int(score.Solved),
		Mistakes:  int(score.Mistakes),
		Rounds:    int(score.Rounds),
		ElapsedMs: int(s.cfg.Now().Sub(board.started).Milliseconds()),
	}
	if err := s.results.InsertResult(r.Context(), res); err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("insert result")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.Delete(r.Context(), sess.ID()); err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("drop finished session")
	}
	s.forget(sess.ID())
	_ = json.NewEncoder(w).Encode(res)
}

// ------------------------------ helpers -------------------------------------

// lookup resolves {id} to a live session or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*game.Session, *scoreboard, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil, nil, false
	}
	s.mu.Lock()
	board := s.boards[id]
	s.mu.Unlock()
	if board == nil {
		board = &scoreboard{started: s.cfg.Now()}
	}
	return sess, board, true
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	_, ok := s.boards[id]
	delete(s.boards, id)
	s.mu.Unlock()
	if ok {
		s.metrics.sessions.Dec()
	}
}

func (s *Server) payload(sess *game.Session, board *scoreboard, err error) sessionRes {
	return sessionRes{
		SessionID: sess.ID(),
		Options:   sess.Options(),
		Running:   sess.Running(),
		State:     sess.State(),
		Score:     board.view(),
		Error:     errorCode(err),
	}
}

// hooks feeds engine outcomes into the scoreboard and metrics.
func (s *Server) hooks(b *scoreboard, mode string) game.Hooks {
	return game.Hooks{
		OnPairSolved: func() {
			b.solved.Add(1)
			s.metrics.resolved.WithLabelValues("correct", mode).Inc()
		},
		OnPairMistake: func() {
			b.mistakes.Add(1)
			s.metrics.resolved.WithLabelValues("incorrect", mode).Inc()
		},
		OnRoundDone: func() {
			b.rounds.Add(1)
			s.metrics.rounds.Inc()
		},
		OnReplenish: func() {
			b.replenished.Add(1)
			s.metrics.replenished.Inc()
		},
		OnError: func(error) { s.metrics.failures.Inc() },
	}
}

func modeOf(o game.Options) string {
	if o.Endless {
		return "endless"
	}
	return "classic"
}

// errorCode maps engine errors to stable API codes.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, game.ErrNotEnoughPairs):
		return "not_enough_pairs"
	case errors.Is(err, game.ErrCatalogTooSmall):
		return "catalog_too_small"
	case errors.Is(err, game.ErrInvalidRoundSize):
		return "invalid_round_size"
	case errors.Is(err, game.ErrReplenishmentStarvation):
		return "replenishment_starved"
	default:
		return "engine_error"
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
