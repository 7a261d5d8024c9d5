package config

// Redis backs the dashboard response cache and the scan-burst limiter.
// Both are conveniences: when no server is reachable at startup the
// constructor returns nil and callers run without them.

import (
    "context"
    "os"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects using REDIS_ADDR (host:port, default
// localhost:6379), REDIS_PASSWORD and REDIS_DB. A nil return means the
// server did not answer a ping within two seconds; the console then
// disables caching and scan limiting rather than failing startup.
func NewRedisClient() *redis.Client {
    addr := os.Getenv("REDIS_ADDR")
    if addr == "" {
        addr = "localhost:6379"
    }
    db := 0
    if s := os.Getenv("REDIS_DB"); s != "" {
        if n, err := strconv.Atoi(s); err == nil {
            db = n
        }
    }
    client := redis.NewClient(&redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       db,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
