package data

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migrateSqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/dmarkov/finance_tracker/config"
)

const (
	defaultConnAttemts = 10
	connTimeout        = time.Second
)

func NewSqliteClient(cfg *config.Config) *sqlx.DB {
	// _pragma busy_timeout lets concurrent jobs wait instead of failing with
	// SQLITE_BUSY; foreign_keys is off in the schema on purpose (cascade to
	// purchases is done explicitly, the tables predate the constraint).
	dataSourceName := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Sqlite.Path)

	connAttempts := defaultConnAttemts
	var db *sqlx.DB
	var err error

	for connAttempts > 0 {
		db, err = sqlx.Connect("sqlite", dataSourceName)
		if err == nil {
			break
		}

		slog.Info("Sqlite is trying to connect", slog.Int("attempts left", connAttempts))

		time.Sleep(connTimeout)

		connAttempts--
	}

	if err != nil {
		slog.Error("Sqlite connAttempts = 0")
		panic(err)
	}

	// single writer: sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		slog.Error("Sqlite dbPing error")
		panic(err)
	}
	slog.Info("Sqlite connected", slog.String("path", cfg.Sqlite.Path))

	migrateSqliteDB(db, cfg.Sqlite.MigrationDir)
	slog.Info("sqlite migrated successfully")

	return db
}

func migrateSqliteDB(db *sqlx.DB, migrationDir string) {
	driver, err := migrateSqlite.WithInstance(db.DB, &migrateSqlite.Config{})
	if err != nil {
		slog.Error("sqlite migration failed on sqlite.WithInstance", slog.String("err", err.Error()))
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationDir),
		"sqlite",
		driver,
	)
	if err != nil {
		slog.Error("sqlite migration failed on migrate.NewWithDatabaseInstance", slog.String("err", err.Error()))
		panic(err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("sqlite migration failed on m.Up()", slog.String("err", err.Error()))
		panic(err)
	}
}
