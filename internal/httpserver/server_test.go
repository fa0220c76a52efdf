package httpserver

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/RybakovWebDev/pair-learner-sub000/internal/game"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/store"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/words"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *game.ManualScheduler) {
	t.Helper()
	if err := words.Init(); err != nil {
		t.Fatalf("words: %v", err)
	}
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	schema, err := os.ReadFile("../../sql/001_results.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	sched := game.NewManualScheduler()
	s := New(store.NewMemoryStore(), db, Config{
		DefaultRoundSize: 3,
		DailySalt:        "test_salt",
		Scheduler:        sched,
		Now:              func() time.Time { return testNow },
	})
	return s, sched
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func newSession(t *testing.T, s *Server, req newSessionReq) sessionRes {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/sessions", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	return decode[sessionRes](t, rec)
}

// partnerOf finds the right-column entry carrying the translation of left.
func partnerOf(t *testing.T, st game.State, left game.WordEntry) game.WordEntry {
	t.Helper()
	other := ""
	for _, p := range words.Catalog() {
		if p.Word1 == left.Word {
			other = p.Word2
		} else if p.Word2 == left.Word {
			other = p.Word1
		}
	}
	for _, r := range st.RightColumn {
		if r.Word == other {
			return r
		}
	}
	t.Fatalf("no partner for %q", left.Word)
	return game.WordEntry{}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
}

func TestSessionPlayAndFinish(t *testing.T) {
	s, sched := newTestServer(t)
	res := newSession(t, s, newSessionReq{Daily: true})
	if res.Error != "" || !res.Running || len(res.State.LeftColumn) != 3 || len(res.State.RightColumn) != 3 {
		t.Fatalf("unexpected new session %+v", res)
	}

	base := "/sessions/" + res.SessionID
	left := res.State.LeftColumn[0]
	right := partnerOf(t, res.State, left)
	do(t, s, http.MethodPost, base+"/select", selectReq{Word: left.Word, ID: left.ID, Column: "left"})
	rec := do(t, s, http.MethodPost, base+"/select", selectReq{Word: right.Word, ID: right.ID, Column: "right"})
	mid := decode[sessionRes](t, rec)
	if !mid.State.IsAnyCorrectAnimating {
		t.Fatalf("expected correct feedback, got %+v", mid.State)
	}

	sched.Advance(500 * time.Millisecond)
	got := decode[sessionRes](t, do(t, s, http.MethodGet, base, nil))
	if got.Score.Solved != 1 || got.Score.Mistakes != 0 {
		t.Fatalf("score %+v", got.Score)
	}
	if e, _ := got.State.Entry(game.ColumnLeft, left.ID); !e.IsMatched {
		t.Fatalf("left entry not matched: %+v", e)
	}

	rec = do(t, s, http.MethodPost, base+"/finish", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("finished session still reachable: %d", rec.Code)
	}

	lb := decode[lbRes](t, do(t, s, http.MethodGet, "/daily/leaderboard", nil))
	if lb.Date != "2026-03-14" || len(lb.Top) != 1 || lb.Top[0].SessionID != res.SessionID || lb.Top[0].Solved != 1 {
		t.Fatalf("leaderboard %+v", lb)
	}
}

func TestDailySessionsShareDeal(t *testing.T) {
	s, _ := newTestServer(t)
	a := newSession(t, s, newSessionReq{Daily: true, RoundSize: 4})
	b := newSession(t, s, newSessionReq{Daily: true, RoundSize: 4})
	if a.SessionID == b.SessionID {
		t.Fatalf("session ids must differ")
	}
	for i := range a.State.LeftColumn {
		if a.State.LeftColumn[i] != b.State.LeftColumn[i] || a.State.RightColumn[i] != b.State.RightColumn[i] {
			t.Fatalf("daily deals differ at %d", i)
		}
	}
}

func TestNewSessionNotEnoughPairs(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{Tags: []string{"no-such-tag"}})
	if res.Error != "not_enough_pairs" {
		t.Fatalf("expected not_enough_pairs, got %q", res.Error)
	}
	if len(res.State.LeftColumn) != 0 || res.State.IsLoading {
		t.Fatalf("columns should be empty: %+v", res.State)
	}
}

func TestNewSessionFiltersByTag(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{Tags: []string{"animals"}, RoundSize: 4})
	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	animals := map[string]bool{}
	for _, p := range game.FilterByTags(words.Catalog(), []string{"animals"}) {
		animals[p.Word1], animals[p.Word2] = true, true
	}
	for _, e := range res.State.LeftColumn {
		if !animals[e.Word] {
			t.Fatalf("%q is not tagged animals", e.Word)
		}
	}
}

func TestSelectValidation(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{})
	rec := do(t, s, http.MethodPost, "/sessions/"+res.SessionID+"/select", selectReq{Word: "x", ID: "x", Column: "middle"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/sessions/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStopAndStart(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{})
	base := "/sessions/" + res.SessionID

	stopped := decode[sessionRes](t, do(t, s, http.MethodPost, base+"/stop", nil))
	if stopped.Running {
		t.Fatalf("still running after stop")
	}
	e := stopped.State.LeftColumn[0]
	after := decode[sessionRes](t, do(t, s, http.MethodPost, base+"/select", selectReq{Word: e.Word, ID: e.ID, Column: "left"}))
	if len(after.State.SelectedPairs) != 0 {
		t.Fatalf("selection accepted while stopped")
	}

	started := decode[sessionRes](t, do(t, s, http.MethodPost, base+"/start", nil))
	if !started.Running || started.State.LeftColumn[0] != e {
		t.Fatalf("start should resume the same board")
	}
	restarted := decode[sessionRes](t, do(t, s, http.MethodPost, base+"/restart", nil))
	if restarted.State.ListKey != started.State.ListKey+1 {
		t.Fatalf("restart should bump listKey")
	}
}

func TestMetricsExposeOutcomes(t *testing.T) {
	s, sched := newTestServer(t)
	res := newSession(t, s, newSessionReq{})
	l, r := res.State.LeftColumn[0], res.State.RightColumn[0]
	if partnerOf(t, res.State, l) == r {
		r = res.State.RightColumn[1]
	}
	base := "/sessions/" + res.SessionID
	do(t, s, http.MethodPost, base+"/select", selectReq{Word: l.Word, ID: l.ID, Column: "left"})
	do(t, s, http.MethodPost, base+"/select", selectReq{Word: r.Word, ID: r.ID, Column: "right"})
	sched.Advance(time.Second)

	body := do(t, s, http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{
		`pairlearner_pairs_resolved_total{mode="classic",outcome="incorrect"} 1`,
		`pairlearner_sessions_active 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestWebsocketStreamsState(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + res.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first wsOut
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != "state" || len(first.State.LeftColumn) != 3 {
		t.Fatalf("unexpected first message %+v", first)
	}

	e := first.State.LeftColumn[0]
	if err := conn.WriteJSON(wsIn{Type: "select", Word: e.Word, ID: e.ID, Column: "left"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var next wsOut
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(next.State.SelectedPairs) != 1 || next.State.SelectedPairs[0].LeftID != e.ID {
		t.Fatalf("selection not streamed: %+v", next.State.SelectedPairs)
	}
}

func TestNewSessionRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"roundSize":`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "bad_json") {
		t.Fatalf("expected 400 bad_json, got %d %s", rec.Code, rec.Body.String())
	}
	if s.store.Len() != 0 {
		t.Fatalf("malformed body created a session")
	}

	rec = do(t, s, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body should use defaults, got %d", rec.Code)
	}
	if res := decode[sessionRes](t, rec); len(res.State.LeftColumn) != 3 {
		t.Fatalf("default round size not applied: %+v", res.State)
	}
}

func TestWebsocketSeesChangesMadeWhileConnecting(t *testing.T) {
	s, _ := newTestServer(t)
	res := newSession(t, s, newSessionReq{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	e := res.State.LeftColumn[1]
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + res.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	do(t, s, http.MethodPost, "/sessions/"+res.SessionID+"/select", selectReq{Word: e.Word, ID: e.ID, Column: "left"})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wsOut
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("selection never reached the socket: %v", err)
		}
		if sel := msg.State.SelectedPairs; len(sel) == 1 && sel[0].LeftID == e.ID {
			return
		}
	}
}
