package middleware

import (
    "bytes"
    "context"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// CacheOptions controls the dashboard response cache.
type CacheOptions struct {
    TTL    time.Duration
    Prefix string
}

// bufferingWriter captures the handler's response so a successful body
// can be stored in redis after it has been sent to the client.
type bufferingWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (w *bufferingWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bufferingWriter) Write(b []byte) (int, error) {
    w.buf.Write(b)
    return w.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses in redis, keyed on the
// request path and raw query string. A nil client disables caching so
// the console keeps working when redis is down.
func ResponseCache(rdb *redis.Client, opts CacheOptions) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if rdb == nil || c.Request().Method != http.MethodGet {
                return next(c)
            }

            ctx := c.Request().Context()
            key := opts.Prefix + c.Request().URL.Path + "?" + c.Request().URL.RawQuery

            if cached, err := rdb.Get(ctx, key).Bytes(); err == nil {
                return c.JSONBlob(http.StatusOK, cached)
            }

            w := &bufferingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = w

            if err := next(c); err != nil {
                return err
            }

            if w.status == http.StatusOK && w.buf.Len() > 0 {
                // Write-behind; a failed store only costs the next hit.
                storeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
                defer cancel()
                if err := rdb.Set(storeCtx, key, w.buf.Bytes(), opts.TTL).Err(); err != nil {
                    log.Printf("cache: store %s failed: %v", key, err)
                }
            }
            return nil
        }
    }
}
