package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// PostgresStore is the PostgreSQL-backed ReservationStore.
//
// Admission uses INSERT … ON CONFLICT DO NOTHING RETURNING: the primary key
// on (showing_id, seat_id) serialises racing inserts inside the server, and
// a conflicting insert simply returns no row.  Readers never see a row that
// has not been committed, so nothing is broadcast for an unwritten seat.
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// TryReserve inserts the reservation or reports ErrAlreadyReserved.
func (s *PostgresStore) TryReserve(ctx context.Context, showingID, seatID, holder string) (model.SeatReservation, error) {
	rec := model.SeatReservation{
		ShowingID: showingID,
		SeatID:    seatID,
		Holder:    holder,
		CreatedAt: s.now().Truncate(time.Microsecond),
	}
	var created time.Time
	err := s.db.QueryRow(ctx,
		`INSERT INTO seat_reservations (showing_id, seat_id, holder, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (showing_id, seat_id) DO NOTHING
		 RETURNING created_at`,
		rec.ShowingID, rec.SeatID, rec.Holder, rec.CreatedAt,
	).Scan(&created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isPgUniqueViolation(err) {
			return model.SeatReservation{}, ErrAlreadyReserved
		}
		return model.SeatReservation{}, unavailable("insert reservation", err)
	}
	rec.CreatedAt = created.UTC()
	return rec, nil
}

// ListReservations returns all reservations for a showing in admission order.
func (s *PostgresStore) ListReservations(ctx context.Context, showingID string) ([]model.SeatReservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT showing_id, seat_id, holder, created_at
		 FROM seat_reservations
		 WHERE showing_id = $1
		 ORDER BY created_at ASC, seat_id ASC`,
		showingID,
	)
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

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
