// internal/daily/daily.go
//
// Deterministic "deal of the day": every player who asks for a daily session
// on the same UTC date gets the same shuffle of the catalog.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a reproducible rand seed for a date using HMAC(salt, YYYY-MM-DD).
func Seed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes, top bit cleared so the seed stays non-negative
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
