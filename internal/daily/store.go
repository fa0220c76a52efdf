package daily

import (
	"context"
	"database/sql"
)

// Result is the final score of one session.
type Result struct {
	SessionID string `json:"sessionId"`
	Date      string `json:"date"`
	Mode      string `json:"mode"` // "classic" | "endless"
	Daily     bool   `json:"daily"`
	RoundSize int    `json:"roundSize"`
	Solved    int    `json:"solved"`
	Mistakes  int    `json:"mistakes"`
	Rounds    int    `json:"rounds"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Store persists session results in the `results` table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// InsertResult stores r. A session is recorded once; later inserts are ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results(session_id, date, mode, daily, round_size, solved, mistakes, rounds, elapsed_ms)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		r.SessionID, r.Date, r.Mode, r.Daily, r.RoundSize, r.Solved, r.Mistakes, r.Rounds, r.ElapsedMs,
	)
	return err
}

// Get loads the stored result of one session.
func (s *Store) Get(ctx context.Context, sessionID string) (Result, error) {
	var r Result
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, date, mode, daily, round_size, solved, mistakes, rounds, elapsed_ms
		FROM results WHERE session_id=?`, sessionID,
	).Scan(&r.SessionID, &r.Date, &r.Mode, &r.Daily, &r.RoundSize, &r.Solved, &r.Mistakes, &r.Rounds, &r.ElapsedMs)
	return r, err
}

type LBRow struct {
	SessionID string `json:"sessionId"`
	Solved    int    `json:"solved"`
	Mistakes  int    `json:"mistakes"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard ranks the daily results of a date: most solved, fewest
// mistakes, fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, solved, mistakes, elapsed_ms
		FROM results
		WHERE date=? AND daily=1
		ORDER BY solved DESC, mistakes ASC, elapsed_ms ASC, created_at ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.SessionID, &r.Solved, &r.Mistakes, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
