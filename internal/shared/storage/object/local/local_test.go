package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mimeType, err := store.Save(ctx, "google:123", "contract.pdf", bytes.NewReader([]byte("%PDF-1.4 test")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("%PDF-1.4 test")) {
		t.Fatalf("expected size %d, got %d", len("%PDF-1.4 test"), size)
	}
	if mimeType == "" {
		t.Fatal("expected detected mime type")
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveWithKeyAndOpen(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "signatures/abc.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != int64(len("png-bytes")) {
		t.Fatalf("expected %d bytes written, got %d", len("png-bytes"), n)
	}

	rc, err := store.Open(ctx, "signatures/abc.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside"); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}
