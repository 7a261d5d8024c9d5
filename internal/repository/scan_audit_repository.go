// Package repository is the data access layer for the console's own
// storage: the scan audit trail. All timestamps are stored in UTC.
package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/google/uuid"

    "github.com/ridelink/agency-console/internal/checkin"
)

// ScanAuditRepo persists one row per check-in attempt, accepted or not.
// The table is append-only; rows are never updated.
type ScanAuditRepo struct {
    db *sql.DB
}

// NewScanAuditRepo returns a repository bound to the given database.
func NewScanAuditRepo(db *sql.DB) *ScanAuditRepo { return &ScanAuditRepo{db: db} }

// ScanRecord mirrors the schema of the scan_audit table.
//
// Fields:
//  ID        – uuid primary key, generated on insert.
//  RideID    – ride open at the gate.
//  UserID    – passenger id from the credential, empty on rejections
//              that never produced one.
//  BookingID – booking id from the credential, empty likewise.
//  Outcome   – 'accepted', 'rejected' or 'error'.
//  Fault     – protocol fault code or remote error text.
//  CreatedAt – insertion time, UTC.
type ScanRecord struct {
    ID        string
    RideID    string
    UserID    string
    BookingID string
    Outcome   string
    Fault     string
    CreatedAt time.Time
}

// Record implements the gate's audit sink. It assigns the row id and
// returns any database error; the caller treats recording as
// best-effort.
func (r *ScanAuditRepo) Record(ctx context.Context, ev checkin.ScanEvent) error {
    const q = `INSERT INTO scan_audit
        (id, ride_id, user_id, booking_id, outcome, fault, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q,
        uuid.NewString(), ev.RideID, ev.UserID, ev.BookingID, ev.Outcome, ev.Fault, ev.At.UTC())
    return err
}

// RecentForRide returns the newest audit rows for one ride, most recent
// first, for the staff activity view.
func (r *ScanAuditRepo) RecentForRide(ctx context.Context, rideID string, limit int) ([]ScanRecord, error) {
    if limit <= 0 {
        limit = 50
    }
    const q = `SELECT id, ride_id, user_id, booking_id, outcome, fault, created_at
        FROM scan_audit WHERE ride_id = ? ORDER BY created_at DESC LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, rideID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []ScanRecord
    for rows.Next() {
        var rec ScanRecord
        if err := rows.Scan(&rec.ID, &rec.RideID, &rec.UserID, &rec.BookingID,
            &rec.Outcome, &rec.Fault, &rec.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    return out, rows.Err()
}
