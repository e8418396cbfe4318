package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := fs.Load("state"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load before Save: err = %v, want ErrNotFound", err)
	}

	want := []byte(`{"queue":[]}`)
	if err := fs.Save("state", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := fs.Load("state")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Load = %q, want %q", got, want)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := fs.Save("state", []byte("first")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := fs.Save("state", []byte("second")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := fs.Load("state")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Load = %q, want %q", got, "second")
	}

	// No temp files left behind after rename.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file %q", e.Name())
		}
	}
}

func TestMemStoreCopySemantics(t *testing.T) {
	ms := NewMemStore()
	data := []byte("original")
	if err := ms.Save("state", data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data[0] = 'X'

	got, err := ms.Load("state")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("Load = %q, caller mutation leaked into store", got)
	}

	got[0] = 'Y'
	again, _ := ms.Load("state") //nolint:errcheck // verified above
	if string(again) != "original" {
		t.Errorf("Load = %q, returned slice aliased store data", again)
	}
}

func TestFallback(t *testing.T) {
	primary := NewMemStore()
	secondary := NewMemStore()
	fb := &Fallback{Primary: primary, Secondary: secondary}

	if err := fb.Save("state", []byte("both")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, s := range []Store{primary, secondary} {
		got, err := s.Load("state")
		if err != nil || string(got) != "both" {
			t.Errorf("layer Load = %q, %v; want %q", got, err, "both")
		}
	}

	// Only secondary has this blob.
	if err := secondary.Save("old", []byte("legacy")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := fb.Load("old")
	if err != nil || string(got) != "legacy" {
		t.Errorf("fallback Load = %q, %v; want %q", got, err, "legacy")
	}
}
