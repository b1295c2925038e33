// Package journal records boundary crossings in a SQLite database.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/tether/bridge"
	"github.com/chazu/tether/wire"
)

const schema = `CREATE TABLE IF NOT EXISTS crossings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT    NOT NULL,
	kind       INTEGER NOT NULL,
	function   INTEGER NOT NULL,
	self       INTEGER NOT NULL,
	frame      INTEGER NOT NULL,
	argc       INTEGER NOT NULL,
	data       INTEGER NOT NULL,
	error      TEXT    NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	payload    BLOB    NOT NULL,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS crossings_session ON crossings (session, id)`

// Journal is a bridge.Observer that appends every crossing of one session
// to a SQLite table. The CBOR payload holds the full record; the other
// columns exist for querying.
type Journal struct {
	db       *sql.DB
	path     string
	session  string
	mu       sync.Mutex
	insert   *sql.Stmt
	failures int
	log      commonlog.Logger
}

// Open opens (creating if needed) the journal at path for session. Use
// ":memory:" for a throwaway journal.
func Open(path, session string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	// One connection: an in-memory database exists per connection, and the
	// journal has a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO crossings
		(session, kind, function, self, frame, argc, data, error, elapsed_ns, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	return &Journal{
		db:      db,
		path:    path,
		session: session,
		insert:  insert,
		log:     commonlog.GetLogger("tether.journal"),
	}, nil
}

// Session returns the session this journal records.
func (j *Journal) Session() string {
	return j.session
}

// ObserveCrossing implements bridge.Observer. Write failures are logged
// and counted; they never interrupt the crossing.
func (j *Journal) ObserveCrossing(c bridge.Crossing) {
	if err := j.Record(time.Now().UTC(), c); err != nil {
		j.mu.Lock()
		j.failures++
		j.mu.Unlock()
		j.log.Errorf("journal %s: %s", j.path, err.Error())
	}
}

// Record appends c as completed at at.
func (j *Journal) Record(at time.Time, c bridge.Crossing) error {
	payload, err := wire.MarshalCrossing(wire.NewCrossingRecord(j.session, at, c))
	if err != nil {
		return fmt.Errorf("encoding crossing: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.insert.Exec(j.session, int(c.Kind), int64(c.Function), int64(c.Self),
		int64(c.Frame), c.Argc, c.Data, c.Error, int64(c.Elapsed), payload,
		at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting crossing: %w", err)
	}
	return nil
}

// Failures returns how many crossings could not be recorded.
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failures
}

// Query selects journal entries. Zero fields do not filter.
type Query struct {
	Session    string
	Kind       bridge.CrossingKind
	ErrorsOnly bool
	Limit      int
}

func (q Query) where() (string, []any) {
	var conds []string
	var args []any
	if q.Session != "" {
		conds = append(conds, "session = ?")
		args = append(args, q.Session)
	}
	if q.Kind != 0 {
		conds = append(conds, "kind = ?")
		args = append(args, int(q.Kind))
	}
	if q.ErrorsOnly {
		conds = append(conds, "error != ''")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Entries returns the matching records in insertion order.
func (j *Journal) Entries(q Query) ([]*wire.CrossingRecord, error) {
	where, args := q.where()
	query := "SELECT payload FROM crossings" + where + " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var records []*wire.CrossingRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("reading journal row: %w", err)
		}
		r, err := wire.UnmarshalCrossing(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of matching entries.
func (j *Journal) Count(q Query) (int, error) {
	where, args := q.where()
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM crossings"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting journal entries: %w", err)
	}
	return n, nil
}

// Sessions returns the recorded session ids, oldest first.
func (j *Journal) Sessions() ([]string, error) {
	rows, err := j.db.Query("SELECT session FROM crossings GROUP BY session ORDER BY MIN(id)")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.insert != nil {
		j.insert.Close()
	}
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
