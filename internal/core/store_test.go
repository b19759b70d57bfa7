package core

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T, vault string) *Store {
	t.Helper()
	s, err := OpenStore(vault, true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenStoreNotFound(t *testing.T) {
	_, err := OpenStore(t.TempDir(), false)
	if !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("err = %v, want ErrStoreNotFound", err)
	}
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if err := s.Put("a.md", "one", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("./a.md", "two", 2); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get("a.md")
	if err != nil || !ok || got != "two" {
		t.Errorf("Get = %q, %v, %v", got, ok, err)
	}
	if _, ok, _ := s.Get("missing.md"); ok {
		t.Error("missing.md should not be found")
	}
	if err := s.Delete("a.md"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get("a.md"); ok {
		t.Error("a.md should be deleted")
	}
}

func TestStoreMoveFileAndDirectory(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	for p, c := range map[string]string{
		"a.md":         "A",
		"dir/x.md":     "X",
		"dir/sub/y.md": "Y",
		"dirty.md":     "D",
	} {
		if err := s.Put(p, c, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Move("a.md", "b.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.Move("dir", "moved/dir"); err != nil {
		t.Fatal(err)
	}
	for p, want := range map[string]string{
		"b.md":               "A",
		"moved/dir/x.md":     "X",
		"moved/dir/sub/y.md": "Y",
		"dirty.md":           "D",
	} {
		got, ok, err := s.Get(p)
		if err != nil || !ok || got != want {
			t.Errorf("Get(%q) = %q, %v, %v; want %q", p, got, ok, err, want)
		}
	}
	for _, p := range []string{"a.md", "dir/x.md"} {
		if _, ok, _ := s.Get(p); ok {
			t.Errorf("%s should have moved", p)
		}
	}
}

func TestStoreRecordAndRefresh(t *testing.T) {
	vault := t.TempDir()
	writeVaultFile(t, vault, "a.md", "A1")
	writeVaultFile(t, vault, "b.md", "B1")
	ds, err := LoadWorkspace(vault)
	if err != nil {
		t.Fatal(err)
	}
	s := openTestStore(t, vault)
	if err := s.Put("stale.md", "old", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(vault, append(ds, Document{Path: "unloaded.md"})); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Count(); err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}

	writeVaultFile(t, vault, "a.md", "A2")
	if err := s.Refresh(vault, "a.md", "b.md", "gone.md"); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.Get("a.md"); got != "A2" {
		t.Errorf("a.md = %q, want A2", got)
	}
}
