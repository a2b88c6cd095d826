package config // package config loads application configuration from environment variables

import (
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/joho/godotenv"
)

// Supported values of STORE_DRIVER.
const (
    DriverMySQL    = "mysql"
    DriverPostgres = "postgres"
    DriverRedis    = "redis"
    DriverMemory   = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; see Load for names and defaults.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    StoreDriver    string        // reservation store backend
    StoreURL       string        // connection string for the store backend
    StoreTimeout   time.Duration // upper bound of every store call
    ShowingID      string        // the showing this instance serves
    DefaultHolder  string        // holder recorded when a viewer gives none
    AllowedOrigins []string      // CORS and websocket origin allow-list; "*" allows all
    LogLevel       string        // debug, info, warn or error
    RabbitURL      string        // broker URL; empty disables audit publishing
    AuditConsumer  bool          // run the audit consumer in this process
    AuditLogPath   string        // file the audit consumer appends to
    RedisPrefix    string        // key prefix for the redis store
}

// Load reads configuration from the environment.  A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.  Required variables for the chosen store driver are
// enforced by must() and missing values stop the program.
func Load() Config {
    _ = godotenv.Load()

    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           envStr("APP_PORT", envStr("PORT", "5000")),
        StoreDriver:    strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        StoreURL:       os.Getenv("STORE_URL"),
        StoreTimeout:   envDur("STORE_TIMEOUT", 5*time.Second),
        ShowingID:      envStr("SHOWING_ID", "movie123"),
        DefaultHolder:  envStr("DEFAULT_HOLDER", "anonymous"),
        AllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
        LogLevel:       strings.ToLower(envStr("LOG_LEVEL", "info")),
        RabbitURL:      envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        AuditConsumer:  envBool("AUDIT_CONSUMER", false),
        AuditLogPath:   envStr("AUDIT_LOG_PATH", "logs/reservations.log"),
        RedisPrefix:    envStr("REDIS_STORE_PREFIX", "seats"),
    }
    if cfg.StoreTimeout <= 0 {
        cfg.StoreTimeout = 5 * time.Second
    }

    switch cfg.StoreDriver {
    case DriverMySQL:
        if cfg.StoreURL == "" {
            cfg.StoreURL = mysqlDSNFromEnv()
        }
    case DriverPostgres:
        if cfg.StoreURL == "" {
            cfg.StoreURL = postgresDSNFromEnv()
        }
    case DriverRedis, DriverMemory:
    default:
        log.Fatalf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
    }
    return cfg
}

// Addr returns the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// mysqlDSNFromEnv builds a DSN from the DB_* variables.  Host, port, user
// and database name are required; the password may be empty.
func mysqlDSNFromEnv() string {
    mc := mysql.NewConfig()
    mc.User = must("DB_USER")
    mc.Passwd = os.Getenv("DB_PASS")
    mc.Net = "tcp"
    mc.Addr = must("DB_HOST") + ":" + must("DB_PORT")
    mc.DBName = must("DB_NAME")
    return mc.FormatDSN()
}

// postgresDSNFromEnv builds a libpq-compatible connection string, falling
// back to local-development defaults.
func postgresDSNFromEnv() string {
    return fmt.Sprintf(
        "host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
        envStr("DB_HOST", "localhost"),
        envStr("DB_PORT", "5432"),
        envStr("DB_USER", "postgres"),
        envStr("DB_PASSWORD", envStr("DB_PASS", "postgres")),
        envStr("DB_NAME", "seatsync"),
        envStr("DB_SSLMODE", "disable"),
    )
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
