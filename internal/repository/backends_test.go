package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func TestIsMySQLDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"wrapped duplicate", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), true},
		{"other server error", &mysql.MySQLError{Number: 1213, Message: "Deadlock"}, false},
		{"driver error", mysql.ErrInvalidConn, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMySQLDuplicate(tt.err); got != tt.want {
				t.Errorf("isMySQLDuplicate(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsPgUniqueViolation(t *testing.T) {
	if !isPgUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 not detected")
	}
	if !isPgUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("wrapped 23505 not detected")
	}
	if isPgUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Error("serialization failure reported as unique violation")
	}
}

func TestUnavailableWrapsSentinel(t *testing.T) {
	err := unavailable("insert reservation", errors.New("connection refused"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("errors.Is(%v, ErrStoreUnavailable) = false", err)
	}
	if errors.Is(err, ErrAlreadyReserved) {
		t.Fatal("unavailable error matches ErrAlreadyReserved")
	}
}

// uniqueShowing keeps integration runs against shared servers independent.
func uniqueShowing() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

// TEST_MYSQL_DSN must include parseTime=true, e.g.
// root:pw@tcp(localhost:3306)/seatsync?parseTime=true&loc=UTC
func TestMySQLStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS seat_reservations (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		showing_id VARCHAR(128) NOT NULL,
		seat_id VARCHAR(64) NOT NULL,
		holder VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_showing_seat (showing_id, seat_id))`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	exerciseStore(t, NewReservationRepo(db), uniqueShowing())
}

func TestPostgresStoreIntegration(t *testing.T) {
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS seat_reservations (
		showing_id TEXT NOT NULL,
		seat_id TEXT NOT NULL,
		holder TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (showing_id, seat_id))`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	exerciseStore(t, NewPostgresStore(pool), uniqueShowing())
}

func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	exerciseStore(t, NewRedisStore(rdb, "seats-test"), uniqueShowing())
}

func TestRedisStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	store := NewRedisStore(rdb, "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := store.TryReserve(ctx, "movie123", "A1", "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("TryReserve err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.ListReservations(ctx, "movie123"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ListReservations err = %v, want ErrStoreUnavailable", err)
	}
}
