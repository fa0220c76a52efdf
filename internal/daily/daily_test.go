package daily

import (
	"testing"
	"time"
)

func TestSeedStableWithinDay(t *testing.T) {
	morning := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	if Seed(morning, "salt") != Seed(evening, "salt") {
		t.Fatalf("seed changed within one UTC day")
	}
	if Seed(morning, "salt") == Seed(morning.Add(24*time.Hour), "salt") {
		t.Fatalf("seed should change across days")
	}
	if Seed(morning, "salt") == Seed(morning, "other") {
		t.Fatalf("seed should depend on the salt")
	}
	if Seed(morning, "salt") < 0 {
		t.Fatalf("seed must be non-negative")
	}
}

func TestDateKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	if got := DateKey(time.Date(2026, 3, 15, 5, 0, 0, 0, loc)); got != "2026-03-14" {
		t.Fatalf("DateKey = %s", got)
	}
}
