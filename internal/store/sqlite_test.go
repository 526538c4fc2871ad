package store

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(Options{Path: filepath.Join(dir, "db", "pages.db"), UploadsDir: filepath.Join(dir, "up")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStoreSeedsHome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content, err := s.LoadPageContent(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, HomeContent, content)

	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Home", pages[0].Title)
	assert.Equal(t, "/uploads", s.UploadsURL())
}

func TestPageContentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content, err := s.LoadPageContent(ctx, "about")
	require.NoError(t, err)
	assert.Empty(t, content, "unknown pages load as empty content")

	err = s.SavePageContent(ctx, "about", "<p>x</p>")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreatePage(ctx, "about", "About", ""))
	assert.ErrorIs(t, s.CreatePage(ctx, "about", "Again", ""), ErrDuplicatePage)
	assert.Error(t, s.CreatePage(ctx, "", "No slug", ""))

	require.NoError(t, s.SavePageContent(ctx, "about", `<p data-block-id="a">hi</p>`))
	content, err = s.LoadPageContent(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, `<p data-block-id="a">hi</p>`, content)

	p, err := s.GetPage(ctx, "about")
	require.NoError(t, err)
	assert.False(t, p.UpdatedAt.Before(p.CreatedAt))

	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, "about", pages[0].Slug)
	assert.Equal(t, "home", pages[1].Slug)
}

func TestUploadImage(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 7, 9))))

	url, err := s.UploadImage(ctx, "my photo (1).png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000123-my_photo__1_.png", url)

	data, err := os.ReadFile(filepath.Join(s.UploadsDir(), "1700000000123-my_photo__1_.png"))
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), data)

	u, err := s.GetUpload(ctx, "1700000000123-my_photo__1_.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", u.MimeType)
	assert.Equal(t, 7, u.Width)
	assert.Equal(t, 9, u.Height)
	assert.Equal(t, "my photo (1).png", u.Original)

	_, err = s.UploadImage(ctx, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotImage)
	_, err = s.GetUpload(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadImageSameNameSameMillisecond(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx := context.Background()

	encode := func(w, h int) []byte {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
		return buf.Bytes()
	}
	first, second := encode(2, 2), encode(3, 3)

	url1, err := s.UploadImage(ctx, "photo.png", first)
	require.NoError(t, err)
	url2, err := s.UploadImage(ctx, "photo.png", second)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000123-photo.png", url1)
	assert.Equal(t, "/uploads/1700000000123-1-photo.png", url2)

	data, err := os.ReadFile(filepath.Join(s.UploadsDir(), "1700000000123-photo.png"))
	require.NoError(t, err)
	assert.Equal(t, first, data)
	data, err = os.ReadFile(filepath.Join(s.UploadsDir(), "1700000000123-1-photo.png"))
	require.NoError(t, err)
	assert.Equal(t, second, data)

	u, err := s.GetUpload(ctx, "1700000000123-1-photo.png")
	require.NoError(t, err)
	assert.Equal(t, 3, u.Width)
}

func TestUploadImageKeepsFilesItDidNotCreate(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(42) }
	ctx := context.Background()

	// stale row without a file: the insert fails and only the file this
	// upload created is removed
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (file, original, mime_type, width, height, created_at) VALUES ('42-a.png', 'a.png', 'image/png', 1, 1, '')`)
	require.NoError(t, err)
	existing := filepath.Join(s.UploadsDir(), "other.png")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	_, err = s.UploadImage(ctx, "a.png", buf.Bytes())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(s.UploadsDir(), "42-a.png"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b.png", SafeName("a b.png"))
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "x.png", SafeName(`C:\tmp\x.png`))
	assert.Equal(t, "image", SafeName(""))
	assert.Equal(t, "caf_.jpg", SafeName("café.jpg"))
}
