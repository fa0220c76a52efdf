package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RybakovWebDev/pair-learner-sub000/internal/game"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/httpserver"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/store"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load pair catalog")
	}
	pairs, tags := words.Stats()
	log.Info().Int("pairs", pairs).Int("tags", tags).Msg("catalog loaded")

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := migrate(db, os.DirFS("sql")); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	srv := httpserver.New(store.NewMemoryStore(), db, httpserver.Config{
		DefaultRoundSize: envInt("DEFAULT_ROUND_SIZE", 5),
		Timings:          timingsFromEnv(),
		DailySalt:        getEnv("DAILY_SALT", "local_dev_salt"),
	})
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting pair-learner")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// timingsFromEnv overrides the feedback delays, in milliseconds.
func timingsFromEnv() game.Timings {
	t := game.DefaultTimings()
	t.Correct = envMillis("CORRECT_DELAY_MS", t.Correct)
	t.Incorrect = envMillis("INCORRECT_DELAY_MS", t.Incorrect)
	t.FastCorrect = envMillis("FAST_CORRECT_DELAY_MS", t.FastCorrect)
	t.FastIncorrect = envMillis("FAST_INCORRECT_DELAY_MS", t.FastIncorrect)
	t.RoundPause = envMillis("ROUND_PAUSE_MS", t.RoundPause)
	return t
}

func envMillis(k string, def time.Duration) time.Duration {
	return time.Duration(envInt(k, int(def/time.Millisecond))) * time.Millisecond
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(getEnv(k, ""))
	if err != nil || v <= 0 {
		if err != nil && os.Getenv(k) != "" {
			log.Warn().Str("key", k).Str("value", os.Getenv(k)).Msg("ignoring non-numeric setting")
		}
		return def
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
