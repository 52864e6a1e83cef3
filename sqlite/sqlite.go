package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultFilename is the file name of the database inside the data directory.
	DefaultFilename = "tenantd.sqlite"
	// InmemPath opens a database that lives only as long as the store.
	InmemPath = ":memory:"
)

// SqlStore is a wrapper around the db and provides basic functionality for
// maintaining the db including flushing the data from the db during end-to-end
// testing.
type SqlStore struct {
	Mu   sync.RWMutex
	DB   *sqlx.DB
	log  *zap.Logger
	path string
}

// NewSqlStore opens the database at path, creating its directory if needed.
func NewSqlStore(path string, log *zap.Logger) (*SqlStore, error) {
	s := &SqlStore{
		log:  log,
		path: path,
	}

	if err := s.openDB(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SqlStore) openDB() error {
	dsn := s.path
	if s.path != InmemPath {
		if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
			return errors.Wrapf(err, "unable to create directory %s", filepath.Dir(s.path))
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", s.path)
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return errors.Wrapf(err, "unable to open sqlite database %s", s.path)
	}
	// an in-memory database exists per connection, and usage writes are
	// serialized anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "unable to open sqlite database %s", s.path)
	}

	s.DB = db
	s.log.Debug("Opened sqlite database", zap.String("path", s.path))
	return nil
}

// Path returns the path the database was opened at.
func (s *SqlStore) Path() string {
	return s.path
}

// Close the connection to the sqlite database
func (s *SqlStore) Close() error {
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Flush deletes all records for all tables in the database except for the
// schema version.
func (s *SqlStore) Flush(ctx context.Context) {
	tables, err := s.tableNames()
	if err != nil {
		s.log.Fatal("unable to flush db", zap.Error(err))
	}

	for _, t := range tables {
		stmt := fmt.Sprintf("DELETE FROM %s", t)
		if err := s.execTrans(ctx, stmt); err != nil {
			s.log.Fatal("unable to flush db", zap.Error(err))
		}
	}
}

func (s *SqlStore) execTrans(ctx context.Context, stmt string) error {
	// use a lock to prevent two potential simultaneous write operations to the database,
	// which would throw an error
	s.Mu.Lock()
	defer s.Mu.Unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, stmt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *SqlStore) userVersion() (int, error) {
	stmt := `PRAGMA user_version`
	res, err := s.queryToStrings(stmt)
	if err != nil {
		return 0, err
	}

	val := 0
	if len(res) > 0 {
		if _, err := fmt.Sscan(res[0], &val); err != nil {
			return 0, err
		}
	}

	return val, nil
}

func (s *SqlStore) tableNames() ([]string, error) {
	stmt := `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`
	res, err := s.queryToStrings(stmt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// helper function for running a read-only query resulting in a slice of strings from
// an arbitrary statement.
func (s *SqlStore) queryToStrings(stmt string) ([]string, error) {
	var output []string

	rows, err := s.DB.Query(stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var i string
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		output = append(output, strings.TrimSpace(i))
	}

	return output, rows.Err()
}
