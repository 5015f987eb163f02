package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, registered under "sqlite"

	"github.com/ftahirops/ntmond/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS traffic (
	app_name TEXT    NOT NULL,
	ts       INTEGER NOT NULL,
	bytes_rx INTEGER NOT NULL,
	bytes_tx INTEGER NOT NULL,
	pkt_rx   INTEGER NOT NULL,
	pkt_tx   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traffic_app_ts ON traffic(app_name, ts);
`

// SQLiteStore is the Store implementation backed by a single-table
// SQLite database, opened with WAL mode for concurrent readers/writers
// the way the rest of the pack opens embedded SQLite stores.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite database at path
// and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// sanitizeAppName rejects names that could be interpreted as control
// characters by the storage query language. All values are always
// bound as parameters below, so this is a defensive boundary check
// rather than the only line of defense against injection.
func sanitizeAppName(name string) (string, error) {
	if strings.ContainsRune(name, ';') || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("store: application name %q contains a disallowed character", name)
	}
	return name, nil
}

// Deposit writes one row per application for this tick inside a single
// transaction: all rows succeed or none do.
func (s *SQLiteStore) Deposit(ts time.Time, traffic map[string]model.TrafficCell) error {
	if len(traffic) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin deposit: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO traffic(app_name, ts, bytes_rx, bytes_tx, pkt_rx, pkt_tx) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	unix := ts.Unix()
	for name, cell := range traffic {
		if cell.Empty() {
			continue
		}
		clean, err := sanitizeAppName(name)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(clean, unix, cell.BytesRx, cell.BytesTx, cell.PktRx, cell.PktTx); err != nil {
			return fmt.Errorf("store: insert %q: %w", clean, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) FetchSince(since time.Time) (map[string]model.TrafficCell, error) {
	return s.sumQuery(`SELECT app_name, SUM(bytes_rx), SUM(bytes_tx), SUM(pkt_rx), SUM(pkt_tx)
		FROM traffic WHERE ts >= ? GROUP BY app_name`, since.Unix())
}

func (s *SQLiteStore) FetchBetween(start, end time.Time) (map[string]model.TrafficCell, error) {
	if start.After(end) {
		return map[string]model.TrafficCell{}, nil
	}
	return s.sumQuery(`SELECT app_name, SUM(bytes_rx), SUM(bytes_tx), SUM(pkt_rx), SUM(pkt_tx)
		FROM traffic WHERE ts >= ? AND ts <= ? GROUP BY app_name`, start.Unix(), end.Unix())
}

func (s *SQLiteStore) sumQuery(query string, args ...interface{}) (map[string]model.TrafficCell, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.TrafficCell)
	for rows.Next() {
		var name string
		var cell model.TrafficCell
		if err := rows.Scan(&name, &cell.BytesRx, &cell.BytesTx, &cell.PktRx, &cell.PktTx); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		if cell.Empty() {
			continue
		}
		out[name] = cell
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListApps() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT app_name FROM traffic ORDER BY app_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list apps: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan app name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
