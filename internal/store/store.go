package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	dbDir  = ".quill"
	dbFile = ".quill/documents.db"
)

// ErrNotFound is returned by Get* methods when no record exists for the id.
var ErrNotFound = errors.New("record not found")

// StoreError wraps a persistence failure that survived the single reopen
// retry. Callers must not assume the write occurred.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps the local SQLite database. Every mutation is scoped to a
// single record and committed atomically; there are no cross-record
// transaction guarantees.
type Store struct {
	conn    *sql.DB
	baseDir string
}

// Open opens an existing database and runs any pending migrations.
func Open(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'quill init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, baseDir: baseDir}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Initialize creates the database directory and schema.
func Initialize(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, baseDir: baseDir}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// BaseDir returns the directory the store was opened against.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// reopen replaces a stale connection handle in place.
func (s *Store) reopen() error {
	s.conn.Close()
	conn, err := openConn(filepath.Join(s.baseDir, dbFile))
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// isStaleConn reports whether err indicates the handle is no longer usable
// (closed or torn down under us), as opposed to a statement-level failure.
func isStaleConn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "connection is already closed")
}

// exec runs a write statement under the cross-process write lock. A stale
// handle is reopened once; a second failure propagates as a StoreError.
func (s *Store) exec(op, query string, args ...any) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(query, args...)
		if isStaleConn(err) {
			if rerr := s.reopen(); rerr != nil {
				return &StoreError{Op: op, Err: rerr}
			}
			_, err = s.conn.Exec(query, args...)
		}
		if err != nil {
			return &StoreError{Op: op, Err: err}
		}
		return nil
	})
}

// queryRow runs a single-row query with the same reopen-once policy as exec.
// scan is invoked on the resulting row; sql.ErrNoRows passes through so
// callers can map it to ErrNotFound.
func (s *Store) queryRow(op, query string, scan func(*sql.Row) error, args ...any) error {
	err := scan(s.conn.QueryRow(query, args...))
	if isStaleConn(err) {
		if rerr := s.reopen(); rerr != nil {
			return &StoreError{Op: op, Err: rerr}
		}
		err = scan(s.conn.QueryRow(query, args...))
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return &StoreError{Op: op, Err: err}
	}
	return err
}

// query runs a multi-row query with the same reopen-once policy.
func (s *Store) query(op, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.conn.Query(query, args...)
	if isStaleConn(err) {
		if rerr := s.reopen(); rerr != nil {
			return nil, &StoreError{Op: op, Err: rerr}
		}
		rows, err = s.conn.Query(query, args...)
	}
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return rows, nil
}

// withWriteLock serializes writes via the flock file. Each call gets its
// own locker (and file handle) so concurrent in-process writers contend on
// the OS lock instead of sharing mutable state.
func (s *Store) withWriteLock(fn func() error) error {
	locker := newWriteLocker(s.baseDir)
	if err := locker.acquire(lockTimeout); err != nil {
		return &StoreError{Op: "lock", Err: err}
	}
	defer locker.release()
	return fn()
}
