package tmplstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/CTAG07/Trellis/pkg/views"
)

// ErrInvalidPath is returned for paths that escape the store's root.
var ErrInvalidPath = errors.New("tmplstore: invalid template path")

// SetupSchema creates the templates table. It is idempotent and safe to call
// on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaTemplates = `
CREATE TABLE IF NOT EXISTS templates (
    path TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaTemplates); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Entry describes a stored template.
type Entry struct {
	Path      string    `json:"path"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a views.FileSystem backed by the templates table.
type Store struct {
	db   *sql.DB
	root string

	stmtRead   *sql.Stmt
	stmtExists *sql.Stmt
	stmtIsFile *sql.Stmt
	stmtList   *sql.Stmt
	stmtPut    *sql.Stmt
	stmtDelete *sql.Stmt

	logger *slog.Logger
}

var _ views.FileSystem = (*Store)(nil)

// New prepares the statements a Store needs. root is the directory the
// stored paths are relative to; it should match the Renderer's Root.
func New(db *sql.DB, root string) (*Store, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving root '%s': %w", root, err)
	}

	stmtRead, err := db.Prepare(`SELECT body FROM templates WHERE path = ?;`)
	if err != nil {
		return nil, err
	}

	// ?1 is the exact path, ?2 the same path with a trailing slash.
	stmtExists, err := db.Prepare(`SELECT EXISTS(SELECT 1 FROM templates WHERE path = ?1 OR substr(path, 1, length(?2)) = ?2);`)
	if err != nil {
		return nil, err
	}

	stmtIsFile, err := db.Prepare(`SELECT EXISTS(SELECT 1 FROM templates WHERE path = ?);`)
	if err != nil {
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT path, length(body), updated_at FROM templates WHERE ?1 = '' OR substr(path, 1, length(?1)) = ?1 ORDER BY path;`)
	if err != nil {
		return nil, err
	}

	stmtPut, err := db.Prepare(`INSERT INTO templates (path, body, updated_at) VALUES (?, ?, ?) ON CONFLICT(path) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM templates WHERE path = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		root:       root,
		stmtRead:   stmtRead,
		stmtExists: stmtExists,
		stmtIsFile: stmtIsFile,
		stmtList:   stmtList,
		stmtPut:    stmtPut,
		stmtDelete: stmtDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements. The database is left open.
func (s *Store) Close() {
	_ = s.stmtRead.Close()
	_ = s.stmtExists.Close()
	_ = s.stmtIsFile.Close()
	_ = s.stmtList.Close()
	_ = s.stmtPut.Close()
	_ = s.stmtDelete.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Root returns the absolute directory stored paths are relative to.
func (s *Store) Root() string {
	return s.root
}

// key turns an absolute host path below root into a stored path. The root
// itself maps to "".
func (s *Store) key(name string) (string, error) {
	rel, err := filepath.Rel(s.root, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, name)
	}
	return Clean(filepath.ToSlash(rel))
}

// Clean normalizes a slash-separated template path and rejects any that would
// leave the root. "." and "" both clean to "".
func Clean(p string) (string, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		return "", nil
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return p, nil
}

func (s *Store) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	var body string
	if err := s.stmtRead.QueryRowContext(ctx, key).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	return []byte(body), nil
}

// Exists reports whether name is a stored template or a directory holding
// one. The root exists as soon as any template is stored.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, nil
	}

	var exists bool
	if err := s.stmtExists.QueryRowContext(ctx, key, dirPrefix(key)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// IsFile reports whether name is a stored template. Directories, which only
// exist as path prefixes, never are.
func (s *Store) IsFile(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil || key == "" {
		return false, nil
	}

	var exists bool
	if err := s.stmtIsFile.QueryRowContext(ctx, key).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListFiles returns the absolute paths of every template below dir, ordered
// by their stored path.
func (s *Store) ListFiles(ctx context.Context, dir string) ([]string, error) {
	key, err := s.key(dir)
	if err != nil {
		return nil, &fs.PathError{Op: "list", Path: dir, Err: err}
	}

	entries, err := s.list(ctx, dirPrefix(key))
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, filepath.Join(s.root, filepath.FromSlash(e.Path)))
	}
	return files, nil
}

// List returns the stored templates below the slash-separated directory dir.
// An empty dir lists everything.
func (s *Store) List(ctx context.Context, dir string) ([]Entry, error) {
	key, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, dirPrefix(key))
}

func (s *Store) list(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.stmtList.QueryContext(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("could not list templates: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Path, &e.Size, &updated); err != nil {
			return nil, err
		}
		e.UpdatedAt = time.Unix(updated, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Put creates or replaces the template at the slash-separated path p.
func (s *Store) Put(ctx context.Context, p string, body []byte) error {
	key, err := Clean(p)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if _, err := s.stmtPut.ExecContext(ctx, key, string(body), time.Now().Unix()); err != nil {
		return fmt.Errorf("could not store template '%s': %w", key, err)
	}
	s.logger.DebugContext(ctx, "Template stored", "path", key, "size", len(body))
	return nil
}

// Delete removes the template at p and reports whether it existed.
func (s *Store) Delete(ctx context.Context, p string) (bool, error) {
	key, err := Clean(p)
	if err != nil {
		return false, err
	}

	res, err := s.stmtDelete.ExecContext(ctx, key)
	if err != nil {
		return false, fmt.Errorf("could not delete template '%s': %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "Template deleted", "path", key)
	}
	return n > 0, nil
}

// Path returns the absolute host path of the stored path p, as a Renderer
// would ask for it.
func (s *Store) Path(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Import copies the files below srcRoot in src for which match returns true
// into the store, keeping paths relative to srcRoot. A nil match copies
// every file. Existing templates are replaced. The copy is a single
// transaction.
func (s *Store) Import(ctx context.Context, src views.FileSystem, srcRoot string, match func(name string) bool) (int, error) {
	all, err := src.ListFiles(ctx, srcRoot)
	if err != nil {
		return 0, fmt.Errorf("could not list source templates: %w", err)
	}

	files := make([]string, 0, len(all))
	for _, file := range all {
		if match == nil || match(file) {
			files = append(files, file)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt := tx.StmtContext(ctx, s.stmtPut)
	now := time.Now().Unix()
	for _, file := range files {
		rel, err := filepath.Rel(srcRoot, file)
		if err != nil {
			return 0, err
		}
		key, err := Clean(filepath.ToSlash(rel))
		if err != nil {
			return 0, err
		}

		body, err := src.ReadFile(ctx, file)
		if err != nil {
			return 0, fmt.Errorf("could not read '%s': %w", file, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(body), now); err != nil {
			return 0, fmt.Errorf("could not store template '%s': %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Templates imported", "count", len(files), "source", srcRoot)
	return len(files), nil
}

// dirPrefix returns the prefix every stored path below key starts with.
func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}
