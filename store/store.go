// Package store persists shared items for the lanshare server: snippet
// bodies and file metadata in SQLite, file payloads on disk under an
// uploads directory keyed by item ID.
//
// The listing order (newest first) is the order every client mirrors, so
// it is decided here once: created_at descending, item ID descending as the
// tie-break (IDs are time-sortable UUIDv7, see idgen).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/lanshare/dbopen"
	"github.com/hazyhaar/lanshare/idgen"
	"github.com/hazyhaar/lanshare/item"
)

// Schema for the items table. Applied by New.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	kind         TEXT NOT NULL CHECK (kind IN ('text','file')),
	content      TEXT NOT NULL DEFAULT '',
	file_name    TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	file_path    TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at DESC, id DESC);
`

// ErrNotFound is returned when an item ID matches no row.
var ErrNotFound = errors.New("store: item not found")

// Store is the SQLite-backed item store.
type Store struct {
	db         *sql.DB
	uploadsDir string
	newID      idgen.Generator
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator for item IDs. Default: idgen.Items.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the timestamp source, for tests. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over db, applies the schema, and ensures uploadsDir
// exists. The db should come from dbopen.Open so the pragmas are in place.
func New(db *sql.DB, uploadsDir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create uploads dir: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	s := &Store{
		db:         db,
		uploadsDir: abs,
		newID:      idgen.Items,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// AddText stores a snippet and returns the created item. The display name
// is derived from the content (markup stripped, first words, ellipsis).
func (s *Store) AddText(ctx context.Context, content string) (item.Item, error) {
	if content == "" {
		return item.Item{}, fmt.Errorf("store: empty snippet content")
	}
	it := item.NewText(s.newID(), DeriveName(content), content, s.now().UTC())

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, name, kind, content, created_at)
			VALUES (?, ?, 'text', ?, ?)`,
			it.ID, it.Name, it.Content, it.CreatedAt.Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		return item.Item{}, fmt.Errorf("store: insert snippet: %w", err)
	}
	s.logger.Info("store: snippet added", "id", it.ID, "name", it.Name)
	return it, nil
}

// AddFile streams the payload from r to disk under the uploads directory,
// then records the metadata. The on-disk name is the item ID; the original
// file name lives only in the database, for download prompts.
func (s *Store) AddFile(ctx context.Context, fileName, contentType string, r io.Reader) (item.Item, error) {
	if fileName == "" {
		return item.Item{}, fmt.Errorf("store: empty file name")
	}
	base := filepath.Base(fileName)
	id := s.newID()
	path := filepath.Join(s.uploadsDir, id)

	dst, err := os.Create(path)
	if err != nil {
		return item.Item{}, fmt.Errorf("store: create file: %w", err)
	}
	size, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path) // drop the partial write
		return item.Item{}, fmt.Errorf("store: write file: %w", err)
	}

	it := item.NewFile(id, base, base, contentType, size, s.now().UTC())
	err = dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, name, kind, file_name, content_type, size, file_path, created_at)
			VALUES (?, ?, 'file', ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.FileName, it.ContentType, it.Size, path,
			it.CreatedAt.Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		os.Remove(path)
		return item.Item{}, fmt.Errorf("store: insert file item: %w", err)
	}
	s.logger.Info("store: file added", "id", it.ID, "name", it.Name, "size", size)
	return it, nil
}

// List returns all items newest first.
func (s *Store) List(ctx context.Context) ([]item.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, content, file_name, content_type, size, created_at
		FROM items
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	items := make([]item.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return items, nil
}

// Get returns a single item by ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (item.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, content, file_name, content_type, size, created_at
		FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, ErrNotFound
	}
	return it, err
}

// Delete removes an item and, for file items, its payload on disk. The row
// is removed even when the payload removal fails, so a delete never leaves
// a phantom item behind.
func (s *Store) Delete(ctx context.Context, id string) error {
	var kind, path string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, file_path FROM items WHERE id = ?`, id).Scan(&kind, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: delete lookup: %w", err)
	}

	if kind == string(item.KindFile) && path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("store: failed to remove payload", "id", id, "path", path, "error", err)
		}
	}

	err = dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	s.logger.Info("store: item deleted", "id", id)
	return nil
}

// FilePath returns the on-disk payload path and original file name for a
// file item. ErrNotFound covers both a missing ID and a text item.
func (s *Store) FilePath(ctx context.Context, id string) (path, fileName string, err error) {
	var kind string
	err = s.db.QueryRowContext(ctx,
		`SELECT kind, file_path, file_name FROM items WHERE id = ?`, id).
		Scan(&kind, &path, &fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("store: file path lookup: %w", err)
	}
	if kind != string(item.KindFile) {
		return "", "", ErrNotFound
	}
	return path, fileName, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (item.Item, error) {
	var (
		it        item.Item
		kind      string
		createdAt string
	)
	err := row.Scan(&it.ID, &it.Name, &kind, &it.Content,
		&it.FileName, &it.ContentType, &it.Size, &createdAt)
	if err != nil {
		return item.Item{}, err
	}
	it.Kind = item.Kind(kind)
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return item.Item{}, fmt.Errorf("store: bad created_at %q: %w", createdAt, err)
	}
	it.CreatedAt = ts
	return it, nil
}
