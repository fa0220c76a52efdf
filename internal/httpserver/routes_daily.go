// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Deal" mode.
// Exposes two endpoints under /daily:
//   - GET /daily/today       → today's date key (sessions created with daily=true
//                              draw from the same seeded deck)
//   - GET /daily/leaderboard → top 20 finished daily sessions for today (or ?date=)
//
// Daily sessions themselves are created through POST /sessions; their results
// are written by POST /sessions/{id}/finish.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/RybakovWebDev/pair-learner-sub000/internal/daily"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/today", s.handleDailyToday)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// todayRes is returned by /daily/today.
type todayRes struct {
	Date      string `json:"date"`
	RoundSize int    `json:"roundSize"`
}

func (s *Server) handleDailyToday(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(todayRes{
		Date:      daily.DateKey(s.cfg.Now()),
		RoundSize: s.cfg.DefaultRoundSize,
	})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.cfg.Now())
	}
	rows, err := s.results.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("leaderboard")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
