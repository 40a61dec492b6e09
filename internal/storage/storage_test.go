package storage

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestObjectPath(t *testing.T) {
	ts := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	got := ObjectPath("page-123", ts, "desktop")
	want := "page-123/2026/03/" + strconv.FormatInt(ts.UnixMilli(), 10) + "_desktop.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestThumbnailPath(t *testing.T) {
	got := ThumbnailPath("page-123/2026/03/12345_desktop.png")
	want := "page-123/2026/03/12345_desktop_thumb.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDiskStoreWriteReadDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	ctx := t.Context()
	obj := "page-1/2026/03/100_desktop.png"

	if err := s.Write(ctx, obj, strings.NewReader("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rc, err := s.Read(ctx, obj)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer rc.Close()
	buf := make([]byte, 5)
	if _, err := rc.Read(buf); err != nil {
		t.Fatalf("Read body: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q, want %q", buf, "hello")
	}

	if err := s.Delete(ctx, obj); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(ctx, obj); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an already-missing object must not error.
	if err := s.Delete(ctx, obj); err != nil {
		t.Fatalf("Delete of missing object should be a no-op, got %v", err)
	}
}
