package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
)

const sampleJSON = `[
	{"id": "r1", "name": "금수복국", "category": "한식", "area": "해운대", "rating": 4.2},
	{"id": "r2", "name": "스시미유", "category": "일식", "area": "해운대", "rating": 4.6}
]`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAll_LoadsFile(t *testing.T) {
	c := NewFile(writeCatalog(t, sampleJSON), 0, zap.NewNop())

	records, err := c.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "금수복국" {
		t.Errorf("first record = %q, want 금수복국", records[0].Name)
	}
}

func TestAll_MissingFile(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "nope.json"), 0, zap.NewNop())

	_, err := c.All(context.Background())
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestAll_MalformedFile(t *testing.T) {
	c := NewFile(writeCatalog(t, "{not json"), 0, zap.NewNop())

	_, err := c.All(context.Background())
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestAll_KeepsStaleSnapshotOnReloadFailure(t *testing.T) {
	path := writeCatalog(t, sampleJSON)
	c := NewFile(path, time.Nanosecond, zap.NewNop())

	if _, err := c.All(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	// Break the file; the snapshot must keep serving.
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)

	records, err := c.All(context.Background())
	if err != nil {
		t.Fatalf("reload failure must serve the previous snapshot: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected the previous snapshot, got %d records", len(records))
	}
}

func TestAll_NoReloadWhenDisabled(t *testing.T) {
	path := writeCatalog(t, sampleJSON)
	c := NewFile(path, 0, zap.NewNop())

	if _, err := c.All(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	records, err := c.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("snapshot changed without reload enabled, got %d records", len(records))
	}
}
