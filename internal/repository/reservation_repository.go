package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/cinema-seat-sync/internal/model"
)

// mysqlDuplicateEntry is the server error number for a UNIQUE key violation.
const mysqlDuplicateEntry = 1062

// ReservationRepo is the MySQL-backed ReservationStore.  Admission is a
// single INSERT guarded by the UNIQUE (showing_id, seat_id) key of the
// seat_reservations table, so the uniqueness check and the durable write
// cannot be separated.  All timestamps are stored in UTC.
type ReservationRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
    return &ReservationRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying handle, used by health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// TryReserve inserts the reservation row.  A duplicate-key error means
// another writer got there first and is reported as ErrAlreadyReserved.
// DATETIME(6) keeps microseconds, so the timestamp is truncated before
// insertion to make the returned record match what a later read sees.
func (r *ReservationRepo) TryReserve(ctx context.Context, showingID, seatID, holder string) (model.SeatReservation, error) {
    rec := model.SeatReservation{
        ShowingID: showingID,
        SeatID:    seatID,
        Holder:    holder,
        CreatedAt: r.now().Truncate(time.Microsecond),
    }
    const q = `INSERT INTO seat_reservations (showing_id, seat_id, holder, created_at) VALUES (?, ?, ?, ?)`
    if _, err := r.db.ExecContext(ctx, q, rec.ShowingID, rec.SeatID, rec.Holder, rec.CreatedAt); err != nil {
        if isMySQLDuplicate(err) {
            return model.SeatReservation{}, ErrAlreadyReserved
        }
        return model.SeatReservation{}, unavailable("insert reservation", err)
    }
    return rec, nil
}

// ListReservations returns all reservations for a showing in admission order.
func (r *ReservationRepo) ListReservations(ctx context.Context, showingID string) ([]model.SeatReservation, error) {
    const q = `SELECT showing_id, seat_id, holder, created_at
               FROM seat_reservations
               WHERE showing_id = ?
               ORDER BY created_at ASC, seat_id ASC`
    rows, err := r.db.QueryContext(ctx, q, showingID)
    if err != nil {
        return nil, unavailable("list reservations", err)
    }
    defer rows.Close()
    out := make([]model.SeatReservation, 0)
    for rows.Next() {
        var rec model.SeatReservation
        if err := rows.Scan(&rec.ShowingID, &rec.SeatID, &rec.Holder, &rec.CreatedAt); err != nil {
            return nil, unavailable("scan reservation", err)
        }
        rec.CreatedAt = rec.CreatedAt.UTC()
        out = append(out, rec)
    }
    if err := rows.Err(); err != nil {
        return nil, unavailable("iterate reservations", err)
    }
    return out, nil
}

// isMySQLDuplicate reports whether err is a UNIQUE key violation.
func isMySQLDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
