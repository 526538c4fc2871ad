// Package store is the local page-content collaborator: pages and upload
// metadata live in SQLite, uploaded image bytes in a directory served under
// a URL prefix.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gm6nx/blockedit/internal/res"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a page does not exist
	ErrNotFound = errors.New("page not found")
	// ErrDuplicatePage is returned when creating a page whose slug is taken
	ErrDuplicatePage = errors.New("slug already exists")
	// ErrNotImage is returned when uploaded bytes are not a decodable image
	ErrNotImage = errors.New("upload is not an image")
)

// Page is a stored page
type Page struct {
	Slug      string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Upload is the metadata of a stored image
type Upload struct {
	File      string
	Original  string
	MimeType  string
	Width     int
	Height    int
	CreatedAt time.Time
}

// Options configures a SQLiteStore
type Options struct {
	// Path of the database file
	Path string
	// UploadsDir receives uploaded files
	UploadsDir string
	// UploadsURL is the URL prefix uploaded files are served under
	UploadsURL string
}

// SQLiteStore implements the page-content contract on SQLite
type SQLiteStore struct {
	db         *sql.DB
	uploadsDir string
	uploadsURL string
	now        func() time.Time
	logger     *slog.Logger
}

// HomeContent is the content of the page seeded into a new store
const HomeContent = `<h1>Welcome</h1><p>Edit this page in the editor.</p>`

// NewSQLiteStore opens or creates the store. The schema is created if
// needed and a "home" page is seeded into an empty database.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	uploads := opts.UploadsDir
	if uploads == "" {
		uploads = filepath.Join(filepath.Dir(opts.Path), "uploads")
	}
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	prefix := strings.TrimSuffix(opts.UploadsURL, "/")
	if prefix == "" {
		prefix = "/uploads"
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		uploadsDir: uploads,
		uploadsURL: prefix,
		now:        time.Now,
		logger:     logger,
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding pages: %w", err)
	}

	logger.Info("SQLite store initialized", "path", opts.Path, "uploads", uploads)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pages (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS uploads (
			file TEXT PRIMARY KEY,
			original TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) seed() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.CreatePage(context.Background(), "home", "Home", HomeContent)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// LoadPageContent returns the saved markup of a page, or "" when the page
// does not exist
func (s *SQLiteStore) LoadPageContent(ctx context.Context, slug string) (string, error) {
	p, err := s.GetPage(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

// GetPage returns a page
func (s *SQLiteStore) GetPage(ctx context.Context, slug string) (*Page, error) {
	var (
		p                Page
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT slug, title, content, created_at, updated_at FROM pages WHERE slug = ?`, slug,
	).Scan(&p.Slug, &p.Title, &p.Content, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying page: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &p, nil
}

// SavePageContent replaces the markup of an existing page
func (s *SQLiteStore) SavePageContent(ctx context.Context, slug, content string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pages SET content = ?, updated_at = ? WHERE slug = ?`,
		content, s.timestamp(), slug,
	)
	if err != nil {
		return fmt.Errorf("saving page: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	s.logger.Debug("page saved", "slug", slug, "bytes", len(content))
	return nil
}

// CreatePage adds a page
func (s *SQLiteStore) CreatePage(ctx context.Context, slug, title, content string) error {
	if slug == "" || title == "" {
		return fmt.Errorf("creating page: missing title or slug")
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (slug, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		slug, title, content, ts, ts,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", slug, ErrDuplicatePage)
		}
		return fmt.Errorf("creating page: %w", err)
	}
	return nil
}

// ListPages returns every page ordered by slug, without content
func (s *SQLiteStore) ListPages(ctx context.Context) ([]*Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, title, created_at, updated_at FROM pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		var (
			p                Page
			created, updated string
		)
		if err := rows.Scan(&p.Slug, &p.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SafeName replaces every character outside [a-zA-Z0-9_.-] with '_'
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return unsafeName.ReplaceAllString(name, "_")
}

// UploadImage validates and stores image bytes as
// "<unix millis>-<safe name>" and returns the URL they are served under.
// A name already taken gets a counter: "<unix millis>-<n>-<safe name>".
func (s *SQLiteStore) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	w, h, format, err := res.Probe(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	file, path, err := s.writeUpload(s.now().UnixMilli(), SafeName(name), data)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (file, original, mime_type, width, height, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		file, name, "image/"+format, w, h, s.timestamp(),
	)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("recording upload: %w", err)
	}
	s.logger.Info("image uploaded", "file", file, "width", w, "height", h)
	return s.uploadsURL + "/" + file, nil
}

const maxUploadAttempts = 100

// writeUpload creates a file that did not exist before and writes data to
// it. Existing files are never opened for writing.
func (s *SQLiteStore) writeUpload(millis int64, safe string, data []byte) (file, path string, err error) {
	for i := 0; i < maxUploadAttempts; i++ {
		file = fmt.Sprintf("%d-%s", millis, safe)
		if i > 0 {
			file = fmt.Sprintf("%d-%d-%s", millis, i, safe)
		}
		path = filepath.Join(s.uploadsDir, file)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("writing upload: %w", err)
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			return "", "", fmt.Errorf("writing upload: %w", err)
		}
		return file, path, nil
	}
	return "", "", fmt.Errorf("writing upload %s: no free file name after %d attempts", safe, maxUploadAttempts)
}

// GetUpload returns the metadata of an uploaded file
func (s *SQLiteStore) GetUpload(ctx context.Context, file string) (*Upload, error) {
	var (
		u       Upload
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT file, original, mime_type, width, height, created_at FROM uploads WHERE file = ?`, file,
	).Scan(&u.File, &u.Original, &u.MimeType, &u.Width, &u.Height, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", file, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying upload: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &u, nil
}

// UploadsDir is the directory uploaded files are written to
func (s *SQLiteStore) UploadsDir() string { return s.uploadsDir }

// UploadsURL is the URL prefix uploaded files are served under
func (s *SQLiteStore) UploadsURL() string { return s.uploadsURL }
