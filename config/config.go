package config

import (
	"os"
	"strconv"
)

// Config holds server wiring plus the house-configured game values. Wager and
// payout constants are configuration, not game logic: ops tune them per
// deployment without a rebuild.
type Config struct {
	Port            int
	DataDir         string
	StorefrontURL   string // storefront app that owns auth sessions
	WebhookEndpoint string // optional settlement callback
	WebhookSecret   string
	MaxTableWager   int64 // house limit for a single blackjack wager
	ArcadeEntryFee  int64 // credits debited to start an arcade run
	ArcadeDivisor   int64 // payout = floor(points / divisor)
	ArcadeMaxPoints int64 // reported scores are clamped to this cap
}

func Load() *Config {
	port := 8082
	// Prefer PORT (Render, Fly.io, Railway, etc.) then GAME_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("GAME_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("GAME_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	storefrontURL := os.Getenv("STOREFRONT_URL")
	if storefrontURL == "" {
		storefrontURL = "http://localhost:3000"
	}
	return &Config{
		Port:            port,
		DataDir:         dataDir,
		StorefrontURL:   storefrontURL,
		WebhookEndpoint: os.Getenv("WEBHOOK_ENDPOINT"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		MaxTableWager:   envInt64("MAX_TABLE_WAGER", 5),
		ArcadeEntryFee:  envInt64("ARCADE_ENTRY_FEE", 3),
		ArcadeDivisor:   envInt64("ARCADE_PAYOUT_DIVISOR", 250),
		ArcadeMaxPoints: envInt64("ARCADE_MAX_POINTS", 1_000_000),
	}
}

func envInt64(key string, def int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
