package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"AssetKeeper/internal/logger"
)

// SQLiteRecorder persists retrieval history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.WithComponent("recorder"), now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS retrievals (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			asset      TEXT NOT NULL,
			ticker     TEXT,
			backend    TEXT,
			source     TEXT,
			row_count  INTEGER,
			status     TEXT,
			error_kind TEXT,
			message    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retrievals_asset_ts ON retrievals(asset, timestamp)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			asset      TEXT NOT NULL,
			row_count  INTEGER,
			first_date TEXT,
			last_date  TEXT,
			last_close REAL,
			high       REAL,
			low        REAL,
			sma20      REAL,
			rsi14      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_asset_ts ON snapshots(asset, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRetrieval(evt *RetrievalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO retrievals
		(timestamp, asset, ticker, backend, source, row_count, status, error_kind, message)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Asset, evt.Ticker, evt.Backend, evt.Source,
		evt.Rows, evt.Status, evt.ErrorKind, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := snap.Summary
	_, err := r.db.Exec(`INSERT INTO snapshots
		(timestamp, asset, row_count, first_date, last_date, last_close, high, low, sma20, rsi14)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.Asset, s.Rows, s.First, s.Last,
		s.LastClose, s.High, s.Low, s.SMA20, s.RSI14,
	)
	return err
}

// LastStatus returns the status and error kind of the latest retrieval of an asset.
func (r *SQLiteRecorder) LastStatus(asset string) (status, kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT status, error_kind FROM retrievals
		WHERE asset = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, asset)
	if err := row.Scan(&status, &kind); err != nil {
		return "", "", err
	}
	return status, kind, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
