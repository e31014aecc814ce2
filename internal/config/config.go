package config

import (
	"os"
	"strconv"
)

// Config carries the process-level knobs. Everything is optional; the zero
// configuration runs a playable server on the built-in word list.
type Config struct {
	Addr             string
	AllowedWordsFile string
	AnswerWordsFile  string
	MaxRounds        int
	Env              string
}

func Default() Config {
	return Config{
		Addr:      ":8080",
		MaxRounds: 5,
		Env:       "production",
	}
}

// Load reads overrides from the environment on top of the defaults.
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Addr = ":" + raw
	}
	if raw := os.Getenv("WORDS_ALLOWED_FILE"); raw != "" {
		cfg.AllowedWordsFile = raw
	}
	if raw := os.Getenv("WORDS_ANSWERS_FILE"); raw != "" {
		cfg.AnswerWordsFile = raw
	}
	if raw := os.Getenv("MAX_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxRounds = value
		}
	}
	if raw := os.Getenv("APP_ENV"); raw != "" {
		cfg.Env = raw
	}
	return cfg
}
