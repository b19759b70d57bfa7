package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryotapoi/mdrelink/internal/core"
)

// memSnapshot is an in-memory Snapshot.
type memSnapshot map[string]string

func (m memSnapshot) Get(p string) (string, bool, error) {
	c, ok := m[p]
	return c, ok, nil
}

func (m memSnapshot) Put(p, content string, _ int64) error {
	m[p] = content
	return nil
}

func (m memSnapshot) Move(from, to string) error {
	for p, c := range m {
		switch {
		case p == from:
			delete(m, p)
			m[to] = c
		case strings.HasPrefix(p, from+"/"):
			delete(m, p)
			m[to+strings.TrimPrefix(p, from)] = c
		}
	}
	return nil
}

func (m memSnapshot) Delete(p string) error {
	delete(m, p)
	return nil
}

func writeFile(t *testing.T, vault, rel, content string) string {
	t.Helper()
	full := filepath.Join(vault, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func event(vault, rel string, op fsnotify.Op) fsnotify.Event {
	return fsnotify.Event{Name: filepath.Join(vault, filepath.FromSlash(rel)), Op: op}
}

func TestTrackerPairsRenameAndCreate(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "c.md", "B")
	snap := memSnapshot{"b.md": "B"}
	tr := newTracker(vault, snap)
	t0 := time.Now()

	assert.Empty(t, tr.observe(event(vault, "b.md", fsnotify.Rename), t0))
	got := tr.observe(event(vault, "c.md", fsnotify.Create), t0.Add(10*time.Millisecond))

	require.Len(t, got, 1)
	assert.Equal(t, core.RenameEvent("b.md", "c.md"), got[0])
	assert.Equal(t, memSnapshot{"c.md": "B"}, snap)
	assert.Empty(t, tr.flush(t0.Add(time.Second)))
}

func TestTrackerPairsDirectoryRename(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "archive/guide/a.md", "A")
	snap := memSnapshot{"guide/a.md": "A", "readme.md": "R"}
	tr := newTracker(vault, snap)
	t0 := time.Now()

	assert.Empty(t, tr.observe(event(vault, "guide", fsnotify.Rename), t0))
	assert.Empty(t, tr.observe(event(vault, "guide", fsnotify.Rename), t0))
	got := tr.observe(event(vault, "archive/guide", fsnotify.Create), t0.Add(time.Millisecond))

	require.Len(t, got, 1)
	assert.Equal(t, core.RenameEvent("guide", "archive/guide"), got[0])
	assert.Equal(t, memSnapshot{"archive/guide/a.md": "A", "readme.md": "R"}, snap)
}

func TestTrackerRenameWindowExpired(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "c.md", "C")
	snap := memSnapshot{"b.md": "B"}
	tr := newTracker(vault, snap, WithPairWindow(50*time.Millisecond), WithSettle(10*time.Millisecond))
	t0 := time.Now()

	tr.observe(event(vault, "b.md", fsnotify.Rename), t0)
	assert.Empty(t, tr.observe(event(vault, "c.md", fsnotify.Create), t0.Add(time.Second)))
	assert.Empty(t, tr.flush(t0.Add(2*time.Second)))

	assert.Equal(t, memSnapshot{"c.md": "C"}, snap)
}

func TestTrackerBackupRenameNotPaired(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "a.md~", "old")
	snap := memSnapshot{"a.md": "old"}
	tr := newTracker(vault, snap)
	t0 := time.Now()

	tr.observe(event(vault, "a.md", fsnotify.Rename), t0)
	assert.Empty(t, tr.observe(event(vault, "a.md~", fsnotify.Create), t0.Add(time.Millisecond)))

	writeFile(t, vault, "a.md", "new")
	assert.Empty(t, tr.observe(event(vault, "a.md", fsnotify.Create), t0.Add(2*time.Millisecond)))
	got := tr.flush(t0.Add(time.Second))
	require.Len(t, got, 1)
	assert.Equal(t, core.SaveEvent("a.md", "old", "new"), got[0])
}

func TestTrackerSaveAfterSettle(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "a.md", "## New\n")
	snap := memSnapshot{"a.md": "## Old\n"}
	tr := newTracker(vault, snap, WithSettle(100*time.Millisecond))
	t0 := time.Now()

	tr.observe(event(vault, "a.md", fsnotify.Write), t0)
	assert.Empty(t, tr.flush(t0.Add(10*time.Millisecond)))

	got := tr.flush(t0.Add(100 * time.Millisecond))
	require.Len(t, got, 1)
	assert.Equal(t, core.SaveEvent("a.md", "## Old\n", "## New\n"), got[0])
	assert.Equal(t, "## New\n", snap["a.md"])
	assert.Empty(t, tr.flush(t0.Add(time.Second)))
}

func TestTrackerSaveUnchangedOrUnknown(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "same.md", "S")
	writeFile(t, vault, "new.md", "N")
	snap := memSnapshot{"same.md": "S"}
	tr := newTracker(vault, snap)
	t0 := time.Now()

	tr.observe(event(vault, "same.md", fsnotify.Write), t0)
	tr.observe(event(vault, "new.md", fsnotify.Create), t0)
	assert.Empty(t, tr.flush(t0.Add(time.Second)))
	assert.Equal(t, memSnapshot{"same.md": "S", "new.md": "N"}, snap)
}

func TestTrackerIgnoresNonMarkdownWrites(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, vault, "img.png", "png")
	snap := memSnapshot{}
	tr := newTracker(vault, snap)
	t0 := time.Now()

	tr.observe(event(vault, "img.png", fsnotify.Write), t0)
	assert.Empty(t, tr.flush(t0.Add(time.Second)))
	assert.Empty(t, snap)
}

func TestTrackerRemoveForgets(t *testing.T) {
	vault := t.TempDir()
	snap := memSnapshot{"a.md": "A"}
	tr := newTracker(vault, snap)

	tr.observe(event(vault, "a.md", fsnotify.Remove), time.Now())
	assert.Empty(t, snap)
}

func TestTrackerRel(t *testing.T) {
	vault := t.TempDir()
	tr := newTracker(vault, memSnapshot{})
	tests := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{"file", filepath.Join(vault, "a.md"), "a.md", true},
		{"nested", filepath.Join(vault, "dir", "b.md"), "dir/b.md", true},
		{"root", vault, "", false},
		{"hidden dir", filepath.Join(vault, ".git", "x.md"), "", false},
		{"data dir", filepath.Join(vault, ".mdrelink", "snapshot.sqlite"), "", false},
		{"hidden file", filepath.Join(vault, ".a.md.swp"), "", false},
		{"outside", filepath.Join(filepath.Dir(vault), "other.md"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.rel(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrackerTickInterval(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, newTracker(t.TempDir(), memSnapshot{}).tickInterval())
	assert.Equal(t, time.Millisecond, newTracker(t.TempDir(), memSnapshot{}, WithSettle(0)).tickInterval())
	assert.Equal(t, time.Millisecond, newTracker(t.TempDir(), memSnapshot{}, WithSettle(2)).tickInterval())
}

func TestRunWithZeroSettle(t *testing.T) {
	w, err := New(t.TempDir(), memSnapshot{}, WithSettle(0))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, func(core.ChangeEvent) {}))
}
