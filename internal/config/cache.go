package config

import (
    "os"
    "strconv"
    "time"
)

// CacheConfig tunes the dashboard response cache. A short TTL keeps
// staff screens snappy between polls without serving stale aggregates
// for longer than one refresh cycle.
type CacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadCacheConfig builds a CacheConfig from the environment with
// defaults suitable for a 30-second poll.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled: getenv("CACHE_ENABLED", "true") == "true",
        TTL:     parseDur(getenv("CACHE_TTL", "10s")),
        Prefix:  getenv("CACHE_PREFIX", "console"),
    }
}

// ScanLimitConfig tunes the token bucket in front of the scan endpoint.
// It exists to absorb a stuck or looping scanner, not to police staff.
type ScanLimitConfig struct {
    Enabled  bool
    Capacity int           // burst size per station
    Refill   time.Duration // one token added per interval
    TTL      time.Duration // idle bucket expiry
    Prefix   string
}

// LoadScanLimitConfig builds a ScanLimitConfig from the environment.
func LoadScanLimitConfig() ScanLimitConfig {
    cfg := ScanLimitConfig{
        Enabled:  getenv("SCAN_LIMIT_ENABLED", "true") == "true",
        Capacity: atoi(getenv("SCAN_LIMIT_CAPACITY", "30")),
        Refill:   parseDur(getenv("SCAN_LIMIT_REFILL", "1s")),
        TTL:      parseDur(getenv("SCAN_LIMIT_TTL", "10m")),
        Prefix:   getenv("SCAN_LIMIT_PREFIX", "scanlimit"),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.Refill <= 0 {
        cfg.Refill = time.Second
    }
    if cfg.TTL < 5*cfg.Refill {
        cfg.TTL = 5 * cfg.Refill
    }
    return cfg
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    n, _ := strconv.Atoi(s)
    return n
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
