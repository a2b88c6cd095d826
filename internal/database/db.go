package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/go-sql-driver/mysql"
)

// mysqlSchema creates the reservation table.  The UNIQUE key on
// (showing_id, seat_id) is what makes admission atomic.
const mysqlSchema = `CREATE TABLE IF NOT EXISTS seat_reservations (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    showing_id VARCHAR(128)    NOT NULL,
    seat_id    VARCHAR(64)     NOT NULL,
    holder     VARCHAR(255)    NOT NULL,
    created_at DATETIME(6)     NOT NULL,
    UNIQUE KEY uq_showing_seat (showing_id, seat_id),
    KEY idx_showing_created (showing_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// OpenMySQL connects to MySQL and verifies the connection.  The DSN is
// normalised so DATETIME columns scan into time.Time in UTC regardless of
// what the caller passed.
func OpenMySQL(dsn string) (*sql.DB, error) {
    mc, err := mysql.ParseDSN(dsn)
    if err != nil {
        return nil, fmt.Errorf("parse mysql dsn: %w", err)
    }
    mc.ParseTime = true
    mc.Loc = time.UTC
    if mc.Params == nil {
        mc.Params = map[string]string{}
    }
    if _, ok := mc.Params["charset"]; !ok {
        mc.Params["charset"] = "utf8mb4"
    }

    db, err := sql.Open("mysql", mc.FormatDSN())
    if err != nil {
        return nil, err
    }

    // Pool settings
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(25)
    db.SetConnMaxLifetime(30 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    return db, nil
}

// MigrateMySQL creates the schema if it does not exist.
func MigrateMySQL(ctx context.Context, db *sql.DB) error {
    if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
        return fmt.Errorf("create seat_reservations: %w", err)
    }
    return nil
}
