package database

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"canaro-bot/internal/database/migrations"
)

// DB wraps the SQLite handle shared by the quota store and the metrics
// snapshot.
type DB struct {
	conn *sql.DB
}

func InitDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	// One writer keeps ":memory:" databases on a single connection and avoids
	// SQLITE_BUSY under concurrent updates.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	if err := migrations.Run(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info("Database initialized successfully.")
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	if d != nil && d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
