package data

import (
	"database/sql"
	"embed"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	schemaVersion = 1

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	insertSchemaVersionSQL = `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)
		ON CONFLICT (version) DO NOTHING
	`

	timeFormat = "2006-01-02T15:04:05Z"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// IsPostgresDSN reports whether dsn points at a Postgres server rather than
// a local Sqlite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Init creates the schema in the database at dsn. It is safe to call on an
// existing database.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("dsn not specified")
	}

	db, err := GetDB(dsn)
	if err != nil {
		return errors.Wrapf(err, "error opening database: %s", dsn)
	}
	defer db.Close()

	ddl := "sql/ddl.sql"
	if IsPostgresDSN(dsn) {
		ddl = "sql/ddl_pg.sql"
	}

	slog.Debug("applying db schema", "file", ddl)
	b, err := f.ReadFile(ddl)
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := db.Exec(string(b)); err != nil {
		return errors.Wrap(err, "failed to create database schema")
	}

	now := time.Now().UTC().Format(timeFormat)
	if _, err := db.Exec(rebind(db, insertSchemaVersionSQL), schemaVersion, now); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	slog.Debug("db schema ready", "version", schemaVersion)

	return nil
}

// GetDB opens the database at dsn: a postgres:// URL or a Sqlite file path.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverSQLite
	if IsPostgresDSN(dsn) {
		driver = driverPostgres
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}
	return conn, nil
}

func isPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(db *sql.DB, query string) string {
	if !isPostgres(db) {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
