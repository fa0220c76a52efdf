// internal/httpserver/ws.go
//
// GET /sessions/{id}/ws streams state snapshots to the client and accepts
// clicks back over the same socket.
//
// Outgoing: {"type":"state","state":{...}} after every transition.
// Incoming: {"type":"select","word":"..","id":"..","column":"left|right"}
//           {"type":"opacity","value":0.5}
//
// Snapshot delivery never blocks the session: when the send buffer is full
// the snapshot is dropped and the next one supersedes it.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/RybakovWebDev/pair-learner-sub000/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || o == clientOrigin() || o == "http://"+r.Host
	},
}

type wsOut struct {
	Type  string     `json:"type"`
	State game.State `json:"state"`
}

type wsIn struct {
	Type   string  `json:"type"`
	Word   string  `json:"word"`
	ID     string  `json:"id"`
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}

	send := make(chan []byte, 32)
	push := func(st game.State) {
		b, err := json.Marshal(wsOut{Type: "state", State: st})
		if err != nil {
			return
		}
		select {
		case send <- b:
		default:
		}
	}
	unsubscribe := sess.Subscribe(push)
	push(sess.State())

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn, sess)
	}()
	writePump(conn, send, done)
	unsubscribe()
	_ = conn.Close()
}

// readPump applies client messages until the socket fails.
func readPump(conn *websocket.Conn, sess *game.Session) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", sess.ID()).Msg("ws read")
			}
			return
		}
		var in wsIn
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		switch in.Type {
		case "select":
			if col := game.Column(in.Column); col.Valid() {
				sess.Select(in.Word, in.ID, col)
			}
		case "opacity":
			sess.SetInitialOpacity(in.Value)
		}
	}
}

// writePump forwards snapshots and keeps the connection alive with pings.
func writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
