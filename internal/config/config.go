package config // package config loads console configuration from the environment

import (
    "log"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The remote API settings are required; the
// redis cache, rabbitmq notifier and mysql audit trail are optional and
// the console degrades gracefully when they are unset.
type Config struct {
    Env          string        // application environment (e.g. "dev", "prod")
    Port         string        // HTTP port the console listens on
    APIBaseURL   string        // base URL of the remote rides service
    APIToken     string        // staff bearer token seeding the session
    JWTSecret    string        // secret verifying staff tokens on the console surface
    AgencyID     string        // agency whose rides this console manages
    PollInterval time.Duration // background refresh period
    StationPIN   string        // bcrypt hash unlocking the scanner station (optional)
    AuditUser    string        // mysql user for the scan audit trail (optional)
    AuditPass    string        // mysql password
    AuditHost    string        // mysql host
    AuditPort    string        // mysql port
    AuditName    string        // mysql database name
}

// Load reads configuration from the environment, after loading a local
// .env file when one exists. Required variables are enforced by must();
// missing values exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load()

    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        APIBaseURL:   must("RIDES_API_URL"),
        APIToken:     must("RIDES_API_TOKEN"),
        JWTSecret:    must("JWT_SECRET"),
        AgencyID:     must("AGENCY_ID"),
        PollInterval: durSec("POLL_INTERVAL_SEC", 30),
        StationPIN:   os.Getenv("STATION_PIN_HASH"),
        AuditUser:    os.Getenv("AUDIT_DB_USER"),
        AuditPass:    os.Getenv("AUDIT_DB_PASS"),
        AuditHost:    os.Getenv("AUDIT_DB_HOST"),
        AuditPort:    os.Getenv("AUDIT_DB_PORT"),
        AuditName:    os.Getenv("AUDIT_DB_NAME"),
    }
}

// AuditEnabled reports whether the scan audit database is configured.
func (c Config) AuditEnabled() bool {
    return c.AuditUser != "" && c.AuditHost != "" && c.AuditPort != "" && c.AuditName != ""
}

// must retrieves a required environment variable. If the variable is
// unset or empty, the console logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// durSec reads a duration expressed in whole seconds, falling back to
// def when the variable is unset or unparsable.
func durSec(key string, def int) time.Duration {
    s := os.Getenv(key)
    if s == "" {
        return time.Duration(def) * time.Second
    }
    n, err := strconv.Atoi(s)
    if err != nil || n <= 0 {
        log.Printf("config: ignoring invalid %s=%q", key, s)
        return time.Duration(def) * time.Second
    }
    return time.Duration(n) * time.Second
}
