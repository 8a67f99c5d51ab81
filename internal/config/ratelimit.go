package config

import "time"

// RateLimitConfig drives the Redis token-bucket limiter.  The limiter
// refuses to run with nonsensical values, so the loader clamps them.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig builds a RateLimitConfig from environment
// variables with conservative defaults: 60 requests burst, one token
// refilled per second.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Capacity:       atoiOr(getenv("RATE_LIMIT_CAPACITY", ""), 60),
		RefillTokens:   atoiOr(getenv("RATE_LIMIT_REFILL_TOKENS", ""), 1),
		RefillInterval: durOr(getenv("RATE_LIMIT_REFILL_INTERVAL", ""), time.Second),
		TTL:            durOr(getenv("RATE_LIMIT_TTL", ""), 10*time.Minute),
		KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
		Debug:          getenv("RATE_LIMIT_DEBUG", "false") == "true",
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if n := atoi(s); n != 0 {
		return n
	}
	return def
}

func durOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
