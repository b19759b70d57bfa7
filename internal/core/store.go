package core

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName = ".mdrelink"
	dbFileName  = "snapshot.sqlite"
)

// ErrStoreNotFound is returned by OpenStore when no snapshot has been taken.
var ErrStoreNotFound = errors.New("snapshot not found: run 'mdrelink snapshot' first")

// Store keeps the last seen content of every document so that a save can
// be compared with the version before it.
type Store struct {
	db *sql.DB
}

func dbPath(vaultPath string) string {
	return filepath.Join(vaultPath, dataDirName, dbFileName)
}

func ensureDataDir(vaultPath string) (string, error) {
	dir := filepath.Join(vaultPath, dataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// OpenStore opens the snapshot of vaultPath. With create set a missing
// snapshot is created; otherwise ErrStoreNotFound is returned.
func OpenStore(vaultPath string, create bool) (*Store, error) {
	p := dbPath(vaultPath)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if !create {
			return nil, ErrStoreNotFound
		}
		if _, err := ensureDataDir(vaultPath); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", p))
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path    TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			mtime   INTEGER
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the recorded content of path.
func (s *Store) Get(path string) (string, bool, error) {
	var content string
	err := s.db.QueryRow("SELECT content FROM documents WHERE path = ?", NormalizePath(path)).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// Put records content for path.
func (s *Store) Put(path, content string, mtime int64) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (path, content, mtime) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET content=excluded.content, mtime=excluded.mtime`,
		NormalizePath(path), content, mtime,
	)
	return err
}

// Delete forgets path.
func (s *Store) Delete(path string) error {
	_, err := s.db.Exec("DELETE FROM documents WHERE path = ?", NormalizePath(path))
	return err
}

// Move renames a recorded file, or every file under a directory.
func (s *Store) Move(from, to string) error {
	from, to = NormalizePath(from), NormalizePath(to)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM documents WHERE path = ?1 OR substr(path, 1, length(?1) + 1) = ?1 || '/'", to,
	); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE documents SET path = ?2 WHERE path = ?1", from, to); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"UPDATE documents SET path = ?2 || substr(path, length(?1) + 1) WHERE substr(path, 1, length(?1) + 1) = ?1 || '/'",
		from, to,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Record replaces the snapshot with docs. Unloaded documents are skipped.
func (s *Store) Record(vaultPath string, docs []Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM documents"); err != nil {
		return err
	}
	for _, d := range docs {
		if d.Content == nil {
			continue
		}
		var mtime int64
		if info, err := os.Stat(filepath.Join(vaultPath, filepath.FromSlash(d.Path))); err == nil {
			mtime = info.ModTime().Unix()
		}
		if _, err := tx.Exec(
			"INSERT INTO documents (path, content, mtime) VALUES (?, ?, ?)",
			NormalizePath(d.Path), *d.Content, mtime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of recorded documents.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// Refresh records the current disk content of the given vault-relative
// paths. Paths that no longer exist are forgotten.
func (s *Store) Refresh(vaultPath string, paths ...string) error {
	for _, p := range paths {
		full := filepath.Join(vaultPath, filepath.FromSlash(NormalizePath(p)))
		info, err := os.Stat(full)
		if os.IsNotExist(err) {
			if err := s.Delete(p); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		if err := s.Put(p, string(content), info.ModTime().Unix()); err != nil {
			return err
		}
	}
	return nil
}
