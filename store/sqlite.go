package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/tern/pkg/bytecode"
)

var log = commonlog.GetLogger("tern.store")

// ErrCorrupt is returned when a stored body does not hash to its key.
var ErrCorrupt = errors.New("stored program does not match its hash")

// SQLiteStore persists programs in a SQLite database. Bodies are the CBOR
// encoding of the program; keys are the hash of its TNBC encoding.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// OpenSQLite opens or creates the database at dbPath. ":memory:" gives a
// private in-memory database.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash BLOB PRIMARY KEY,
		body BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened program store %s", dbPath)
	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put validates p and stores it under its content hash.
func (s *SQLiteStore) Put(p *bytecode.Program) (Hash, error) {
	if err := p.Validate(); err != nil {
		return Hash{}, fmt.Errorf("storing program: %w", err)
	}
	h, err := HashProgram(p)
	if err != nil {
		return Hash{}, err
	}
	body, err := bytecode.MarshalProgramCBOR(p)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding program: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO programs (hash, body) VALUES (?, ?)",
		h[:], body,
	); err != nil {
		return Hash{}, fmt.Errorf("saving program %s: %w", h, err)
	}
	log.Debugf("stored program %s (%d bytes)", h, len(body))
	return h, nil
}

// Get loads and decodes the program stored under h.
func (s *SQLiteStore) Get(h Hash) (*bytecode.Program, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM programs WHERE hash = ?", h[:]).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("querying program %s: %w", h, err)
	}

	p, err := bytecode.UnmarshalProgramCBOR(body)
	if err != nil {
		return nil, fmt.Errorf("decoding program %s: %w", h, err)
	}
	got, err := HashProgram(p)
	if err != nil {
		return nil, err
	}
	if got != h {
		return nil, fmt.Errorf("%s: %w (got %s)", h, ErrCorrupt, got)
	}
	return p, nil
}

// Has reports whether a program is stored under h.
func (s *SQLiteStore) Has(h Hash) bool {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM programs WHERE hash = ?", h[:]).Scan(&n)
	return err == nil && n > 0
}

// Count returns the number of stored programs.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}
