package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/lanshare/dbopen"
	"github.com/hazyhaar/lanshare/store"

	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := store.New(db, filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAddTextAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	it, err := s.AddText(ctx, "hello from the lan")
	if err != nil {
		t.Fatalf("AddText: %v", err)
	}
	if !it.IsText() {
		t.Fatalf("kind = %q, want text", it.Kind)
	}
	if it.Name != "hello from the lan" {
		t.Errorf("Name = %q", it.Name)
	}
	if !strings.HasPrefix(it.ID, "itm_") {
		t.Errorf("ID = %q, want itm_ prefix", it.ID)
	}

	got, err := s.Get(ctx, it.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "hello from the lan" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestAddTextRejectsEmpty(t *testing.T) {
	s := newStore(t)
	if _, err := s.AddText(context.Background(), ""); err == nil {
		t.Fatal("AddText(\"\") succeeded, want error")
	}
}

func TestAddFileWritesPayload(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	db := dbopen.OpenMemory(t)
	s, err := store.New(db, uploads)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	it, err := s.AddFile(ctx, "notes.txt", "text/plain", strings.NewReader("payload bytes"))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if !it.IsFile() {
		t.Fatalf("kind = %q, want file", it.Kind)
	}
	if it.Size != int64(len("payload bytes")) {
		t.Errorf("Size = %d", it.Size)
	}
	if it.FileName != "notes.txt" || it.Name != "notes.txt" {
		t.Errorf("names = %q/%q", it.Name, it.FileName)
	}

	path, name, err := s.FilePath(ctx, it.ID)
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}
	if name != "notes.txt" {
		t.Errorf("download name = %q", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(data) != "payload bytes" {
		t.Errorf("payload = %q", data)
	}
}

func TestAddFileStripsDirectoryFromName(t *testing.T) {
	s := newStore(t)
	it, err := s.AddFile(context.Background(), "../../etc/passwd", "", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if it.FileName != "passwd" {
		t.Errorf("FileName = %q, want base name only", it.FileName)
	}
}

func TestListNewestFirst(t *testing.T) {
	db := dbopen.OpenMemory(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s, err := store.New(db, filepath.Join(t.TempDir(), "uploads"),
		store.WithClock(func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	first, _ := s.AddText(ctx, "first")
	second, _ := s.AddText(ctx, "second")
	third, _ := s.AddFile(ctx, "third.bin", "", strings.NewReader("x"))

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{third.ID, second.ID, first.ID}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	s := newStore(t)
	items, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items == nil {
		t.Fatal("List returned nil, want empty slice")
	}
}

func TestDeleteRemovesRowAndPayload(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	it, err := s.AddFile(ctx, "gone.txt", "text/plain", strings.NewReader("bye"))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	path, _, err := s.FilePath(ctx, it.ID)
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}

	if err := s.Delete(ctx, it.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("payload still on disk: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newStore(t)
	if err := s.Delete(context.Background(), "itm_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete missing: %v, want ErrNotFound", err)
	}
}

func TestFilePathRejectsTextItems(t *testing.T) {
	s := newStore(t)
	it, err := s.AddText(context.Background(), "not a file")
	if err != nil {
		t.Fatalf("AddText: %v", err)
	}
	if _, _, err := s.FilePath(context.Background(), it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("FilePath on text item: %v, want ErrNotFound", err)
	}
}

func TestStoredItemsValidate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.AddText(ctx, "snippet"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFile(ctx, "f.bin", "application/octet-stream", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	items, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			t.Errorf("stored item %s invalid: %v", it.ID, err)
		}
	}
}
