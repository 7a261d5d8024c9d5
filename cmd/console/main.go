package main

import (
    "context"
    "log"
    "os/signal"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/checkin"
    "github.com/ridelink/agency-console/internal/config"
    "github.com/ridelink/agency-console/internal/database"
    "github.com/ridelink/agency-console/internal/handler"
    "github.com/ridelink/agency-console/internal/queue"
    "github.com/ridelink/agency-console/internal/repository"
    "github.com/ridelink/agency-console/internal/router"
    notifier "github.com/ridelink/agency-console/internal/service"
    "github.com/ridelink/agency-console/internal/session"
    "github.com/ridelink/agency-console/internal/syncer"
)

func main() {
    cfg := config.Load()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    sess := session.New(cfg.APIToken)
    client, err := api.NewClient(api.ClientConfig{
        BaseURL: cfg.APIBaseURL,
        Tokens:  sess,
    })
    if err != nil {
        log.Fatalf("api client: %v", err)
    }

    // New-booking detection lives in the synchronizer; the callback
    // only fans the signal out to rabbitmq, best-effort, off the sync
    // goroutine.
    sync := syncer.New(syncer.Config{
        Source:       client,
        PollInterval: cfg.PollInterval,
        OnLogout:     sess.Clear,
        OnNewBookings: func(prev, cur int) {
            go func() {
                pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
                defer cancel()
                _ = notifier.PublishNewBookings(pubCtx, queue.NewBookingsEvent{
                    AgencyID:      cfg.AgencyID,
                    PreviousTotal: prev,
                    CurrentTotal:  cur,
                    DetectedAt:    time.Now().UTC().Format(time.RFC3339),
                })
            }()
        },
    })
    go sync.Run(ctx)
    go queue.StartNewBookingsConsumer()

    // The audit trail is optional; without a database the console runs
    // with auditing off.
    var auditRepo *repository.ScanAuditRepo
    var recorder checkin.Recorder
    if cfg.AuditEnabled() {
        db, err := database.Open(cfg.AuditUser, cfg.AuditPass, cfg.AuditHost, cfg.AuditPort, cfg.AuditName)
        if err != nil {
            log.Printf("audit db unavailable, auditing disabled: %v", err)
        } else {
            defer db.Close()
            auditRepo = repository.NewScanAuditRepo(db)
            recorder = auditRepo
        }
    }

    rdb := config.NewRedisClient()
    if rdb != nil {
        defer rdb.Close()
    }

    e := echo.New()
    e.HideBanner = true
    router.Register(e, router.Deps{
        Dashboard: &handler.DashboardHandler{Sync: sync, AgencyID: cfg.AgencyID},
        RideAdmin: &handler.RideAdminHandler{Sync: sync, Remote: client},
        CheckIn:   &handler.CheckInHandler{Sync: sync, Remote: client, Recorder: recorder, Audit: auditRepo},
        Station:   &handler.StationHandler{Sync: sync, Remote: client, PINHash: cfg.StationPIN, Secret: cfg.JWTSecret},
        JWTSecret: cfg.JWTSecret,
        Redis:     rdb,
        Cache:     config.LoadCacheConfig(),
        ScanLimit: config.LoadScanLimitConfig(),
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := e.Shutdown(shutdownCtx); err != nil {
            log.Printf("shutdown: %v", err)
        }
    }()

    if err := e.Start(addr); err != nil {
        log.Printf("server stopped: %v", err)
    }
}
