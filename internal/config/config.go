// Package config centralizes environment-variable configuration for the
// prediction engine.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every runtime knob. Zero-valued limits disable the
// corresponding check; empty connection strings disable the backend.
type Config struct {
	Env      string // "local", "dev", "prod"
	HTTPPort string

	DatabaseURL string // empty → in-memory store
	RedisURL    string // empty → no cache, no Redis pub/sub

	KafkaBrokers  string // empty → no Kafka publisher
	ActivityTopic string
	OddsTopic     string

	Currency string

	// AllowLiveBetting enables the in-play variant: markets in LIVE
	// status accept wagers and a LIVE match does not lock betting.
	AllowLiveBetting bool

	// InstantReferralPercent is the level-1 instant reward percent of
	// each net stake. Zero disables the cascade.
	InstantReferralPercent decimal.Decimal

	MaxStakePerWager      decimal.Decimal
	MaxOpenStakePerMarket decimal.Decimal

	CacheTTL time.Duration
}

// Load reads configuration from the environment with sane local defaults.
func Load() Config {
	return Config{
		Env:      getEnv("ENV", "local"),
		HTTPPort: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		KafkaBrokers:  getEnv("KAFKA_BROKERS", ""),
		ActivityTopic: getEnv("KAFKA_TOPIC_ACTIVITY", "global-activity"),
		OddsTopic:     getEnv("KAFKA_TOPIC_ODDS", "odds-updates"),

		Currency: getEnv("CURRENCY", "INR"),

		AllowLiveBetting: getBool("ALLOW_LIVE_BETTING", false),

		InstantReferralPercent: getDecimal("REFERRAL_INSTANT_PERCENT", "2"),

		MaxStakePerWager:      getDecimal("MAX_STAKE_PER_WAGER", "100000"),
		MaxOpenStakePerMarket: getDecimal("MAX_OPEN_STAKE_PER_MARKET", "500000"),

		CacheTTL: getDuration("CACHE_TTL", 30*time.Second),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDecimal(key, def string) decimal.Decimal {
	raw := getEnv(key, def)
	if d, err := decimal.NewFromString(raw); err == nil {
		return d
	}
	d, _ := decimal.NewFromString(def)
	return d
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
