package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

func sampleIndex(t *testing.T) *Index {
	t.Helper()
	return mustIndex(t,
		[]string{"images/c.png", "images/a.png", "images/b.jpg", "images/d.webp"},
		colour.RGB(12.5, 200, 31),
		colour.RGB(0, 0, 0),
		colour.RGB(255, 255, 255),
		colour.RGB(12.5, 200, 31),
	)
}

func assertSameIndex(t *testing.T, got, want *Index) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	for i := range want.Labels {
		if got.Labels[i] != want.Labels[i] {
			t.Errorf("label %d = %q, want %q", i, got.Labels[i], want.Labels[i])
		}
		if len(got.Colours[i]) != len(want.Colours[i]) {
			t.Fatalf("colour %d has %d channels, want %d", i, len(got.Colours[i]), len(want.Colours[i]))
		}
		for j := range want.Colours[i] {
			if got.Colours[i][j] != want.Colours[i][j] {
				t.Errorf("colour %d = %v, want %v", i, got.Colours[i], want.Colours[i])
				break
			}
		}
	}
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	stores := map[string]Store{
		"plain files": NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json")),
		"xz colours":  NewFileStore(filepath.Join(dir, "colours.bin.xz"), filepath.Join(dir, "labels-xz.json")),
		"gz colours":  NewFileStore(filepath.Join(dir, "colours.bin.gz"), filepath.Join(dir, "labels-gz.json")),
		"sqlite":      NewSQLiteStore(filepath.Join(dir, "index.db")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			exists, err := store.Exists(ctx)
			if err != nil || exists {
				t.Fatalf("Exists() before save = %v, %v", exists, err)
			}

			want := sampleIndex(t)
			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			exists, err = store.Exists(ctx)
			if err != nil || !exists {
				t.Fatalf("Exists() after save = %v, %v", exists, err)
			}

			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			assertSameIndex(t, got, want)

			// Saving again replaces rather than appends.
			smaller := mustIndex(t, []string{"only.png"}, colour.RGB(1, 2, 3))
			if err := store.Save(ctx, smaller); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}
			got, err = store.Load(ctx)
			if err != nil {
				t.Fatal(err)
			}
			assertSameIndex(t, got, smaller)
		})
	}
}

func TestFileStoreEmptyIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json"))

	if err := store.Save(ctx, &Index{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestFileStoreLoadDetectsCorruption(t *testing.T) {
	ctx := context.Background()

	t.Run("label count mismatch", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json"))
		if err := store.Save(ctx, sampleIndex(t)); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(store.LabelsPath, []byte(`["one"]`), 0o600); err != nil {
			t.Fatal(err)
		}
		var corrupt *CorruptIndexError
		if _, err := store.Load(ctx); !errors.As(err, &corrupt) {
			t.Errorf("Load() error = %v, want *CorruptIndexError", err)
		}
	})

	t.Run("labels not json", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json"))
		if err := store.Save(ctx, sampleIndex(t)); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(store.LabelsPath, []byte(`{not json`), 0o600); err != nil {
			t.Fatal(err)
		}
		var corrupt *CorruptIndexError
		if _, err := store.Load(ctx); !errors.As(err, &corrupt) {
			t.Errorf("Load() error = %v, want *CorruptIndexError", err)
		}
	})

	t.Run("colours garbage", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json"))
		if err := os.WriteFile(store.ColoursPath, []byte("definitely not a matrix"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(store.LabelsPath, []byte(`["a"]`), 0o600); err != nil {
			t.Fatal(err)
		}
		var corrupt *CorruptIndexError
		if _, err := store.Load(ctx); !errors.As(err, &corrupt) {
			t.Errorf("Load() error = %v, want *CorruptIndexError", err)
		}
	})

	t.Run("missing files", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "colours.bin"), filepath.Join(dir, "labels.json"))
		if _, err := store.Load(ctx); err == nil {
			t.Error("Load() of missing files returned no error")
		}
	})
}

func TestSaveRejectsInvalidIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bad := &Index{Labels: []string{"a", "b"}, Colours: []colour.Colour{colour.RGB(1, 2, 3)}}

	for _, store := range []Store{
		NewFileStore(filepath.Join(dir, "c.bin"), filepath.Join(dir, "l.json")),
		NewSQLiteStore(filepath.Join(dir, "i.db")),
	} {
		if err := store.Save(ctx, bad); err == nil {
			t.Errorf("%s: Save() accepted a mismatched index", store)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "c.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Error("rejected save left a colours file behind")
	}
}

func TestColourBlobRoundTrip(t *testing.T) {
	c := colour.Colour{0.5, -1, 1e9, 255}
	got, err := decodeColour(encodeColour(c))
	if err != nil {
		t.Fatal(err)
	}
	for i := range c {
		if got[i] != c[i] {
			t.Fatalf("decodeColour() = %v, want %v", got, c)
		}
	}
	if _, err := decodeColour([]byte{1, 2, 3}); err == nil {
		t.Error("decodeColour accepted a truncated blob")
	}
}
