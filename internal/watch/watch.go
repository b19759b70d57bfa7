// Package watch turns file system notifications of a vault into change
// events for link propagation.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"

	"github.com/ryotapoi/mdrelink/internal/core"
)

const (
	// DefaultPairWindow is how long a Rename waits for its matching Create.
	DefaultPairWindow = 250 * time.Millisecond
	// DefaultSettle is how long a file must stay quiet before its writes
	// are reported as one save.
	DefaultSettle = 150 * time.Millisecond
)

// Snapshot holds the last seen content of each markdown file.
// *core.Store implements it.
type Snapshot interface {
	Get(path string) (string, bool, error)
	Put(path, content string, mtime int64) error
	Move(from, to string) error
	Delete(path string) error
}

// Handler receives change events in the order they were detected.
type Handler func(core.ChangeEvent)

// Option configures a Watcher.
type Option func(*tracker)

// WithPairWindow sets the Rename/Create pairing window.
func WithPairWindow(d time.Duration) Option {
	return func(t *tracker) { t.window = d }
}

// WithSettle sets the quiet period for writes.
func WithSettle(d time.Duration) Option {
	return func(t *tracker) { t.settle = d }
}

// Watcher watches every non-hidden directory of a vault.
type Watcher struct {
	fs      *fsnotify.Watcher
	tracker *tracker
}

// New creates a watcher for vaultPath. Change detection compares writes
// against snap, which the watcher keeps up to date.
func New(vaultPath string, snap Snapshot, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{fs: fw, tracker: newTracker(vaultPath, snap, opts...)}
	if err := w.addDirs(vaultPath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add directories to watcher: %w", err)
	}
	return w, nil
}

// tickInterval is how often pending writes are flushed.
func (t *tracker) tickInterval() time.Duration {
	return max(t.settle/3, time.Millisecond)
}

// addDirs recursively adds directories to the watcher, skipping hidden dirs.
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.tracker.vault && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(p)
	})
}

// Run processes events until ctx is done or the watcher is closed.
// h is called from the Run goroutine; events arriving while it runs are
// queued.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(w.tracker.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.prepare(ev)
			for _, ce := range w.tracker.observe(ev, time.Now()) {
				w.dispatch(h, ce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.tracker.log.Errorf("watcher error: %v", err)
		case now := <-ticker.C:
			for _, ce := range w.tracker.flush(now) {
				w.dispatch(h, ce)
			}
		}
	}
}

// prepare keeps the watch list in step with directory creations and moves.
func (w *Watcher) prepare(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirs(ev.Name); err != nil {
				w.tracker.log.Warningf("watch %s: %v", ev.Name, err)
			}
		}
	case ev.Has(fsnotify.Rename), ev.Has(fsnotify.Remove):
		_ = w.fs.Remove(ev.Name)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) dispatch(h Handler, ce core.ChangeEvent) {
	switch ce.Kind {
	case core.EventRename:
		w.tracker.log.Infof("rename %s -> %s", ce.PathBefore, ce.PathAfter)
	case core.EventSave:
		w.tracker.log.Infof("save %s", ce.Path)
	}
	h(ce)
}

type pendingRename struct {
	path string
	at   time.Time
}

// tracker turns raw notifications into change events. Times are passed
// in so that pairing and settling can be tested without sleeping.
type tracker struct {
	vault  string
	snap   Snapshot
	window time.Duration
	settle time.Duration
	rename *pendingRename
	writes map[string]time.Time
	log    commonlog.Logger
}

func newTracker(vaultPath string, snap Snapshot, opts ...Option) *tracker {
	t := &tracker{
		vault:  filepath.Clean(vaultPath),
		snap:   snap,
		window: DefaultPairWindow,
		settle: DefaultSettle,
		writes: make(map[string]time.Time),
		log:    commonlog.GetLogger("mdrelink.watch"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// rel converts an event name to a vault-relative path. Paths outside the
// vault or inside hidden directories are rejected.
func (t *tracker) rel(name string) (string, bool) {
	r, err := filepath.Rel(t.vault, name)
	if err != nil {
		return "", false
	}
	r = core.NormalizePath(filepath.ToSlash(r))
	if r == "" || r == ".." || strings.HasPrefix(r, "../") {
		return "", false
	}
	for _, part := range strings.Split(r, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return r, true
}

func (t *tracker) abs(rel string) string {
	return filepath.Join(t.vault, filepath.FromSlash(rel))
}

func (t *tracker) exists(rel string) bool {
	_, err := os.Stat(t.abs(rel))
	return err == nil
}

// observe records ev and returns the rename events it completes.
func (t *tracker) observe(ev fsnotify.Event, now time.Time) []core.ChangeEvent {
	rel, ok := t.rel(ev.Name)
	if !ok {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Rename):
		delete(t.writes, rel)
		// A moved directory reports itself and its parent reports it too.
		if t.rename != nil && t.rename.path == rel {
			return nil
		}
		t.expire(now, true)
		t.rename = &pendingRename{path: rel, at: now}
	case ev.Has(fsnotify.Create):
		if ce, ok := t.pair(rel, now); ok {
			return []core.ChangeEvent{ce}
		}
		if core.IsMarkdown(rel) {
			t.writes[rel] = now
		}
	case ev.Has(fsnotify.Write):
		if core.IsMarkdown(rel) {
			t.writes[rel] = now
		}
	case ev.Has(fsnotify.Remove):
		delete(t.writes, rel)
		t.forget(rel)
	}
	return nil
}

// pair matches a Create with the pending Rename. Editors that save by
// renaming the original to a backup name are not paired: the backup has
// a different kind, or the original path is back on disk.
func (t *tracker) pair(rel string, now time.Time) (core.ChangeEvent, bool) {
	p := t.rename
	if p == nil || now.Sub(p.at) > t.window {
		return core.ChangeEvent{}, false
	}
	info, err := os.Stat(t.abs(rel))
	if err != nil {
		return core.ChangeEvent{}, false
	}
	if !info.IsDir() && core.IsMarkdown(p.path) != core.IsMarkdown(rel) {
		return core.ChangeEvent{}, false
	}
	if t.exists(p.path) {
		return core.ChangeEvent{}, false
	}
	t.rename = nil
	if err := t.snap.Move(p.path, rel); err != nil {
		t.log.Errorf("snapshot move %s -> %s: %v", p.path, rel, err)
	}
	return core.RenameEvent(p.path, rel), true
}

// expire drops the pending Rename once its window has passed, or
// unconditionally with force. A path that stayed gone left the vault.
func (t *tracker) expire(now time.Time, force bool) {
	p := t.rename
	if p == nil || (!force && now.Sub(p.at) <= t.window) {
		return
	}
	t.rename = nil
	if !t.exists(p.path) {
		t.forget(p.path)
	}
}

func (t *tracker) forget(rel string) {
	if err := t.snap.Delete(rel); err != nil {
		t.log.Errorf("snapshot delete %s: %v", rel, err)
	}
}

// flush returns save events for files whose writes have settled.
func (t *tracker) flush(now time.Time) []core.ChangeEvent {
	t.expire(now, false)
	var ready []string
	for p, at := range t.writes {
		if now.Sub(at) >= t.settle {
			ready = append(ready, p)
		}
	}
	sort.Strings(ready)
	var out []core.ChangeEvent
	for _, p := range ready {
		delete(t.writes, p)
		if ce, ok := t.save(p); ok {
			out = append(out, ce)
		}
	}
	return out
}

// save compares the disk content of rel with the snapshot and records
// the new content. Files the snapshot has never seen yield no event.
func (t *tracker) save(rel string) (core.ChangeEvent, bool) {
	full := t.abs(rel)
	info, err := os.Stat(full)
	if err != nil {
		return core.ChangeEvent{}, false
	}
	data, err := os.ReadFile(full)
	if err != nil {
		t.log.Warningf("read %s: %v", rel, err)
		return core.ChangeEvent{}, false
	}
	after := string(data)
	before, known, err := t.snap.Get(rel)
	if err != nil {
		t.log.Errorf("snapshot get %s: %v", rel, err)
		return core.ChangeEvent{}, false
	}
	if err := t.snap.Put(rel, after, info.ModTime().Unix()); err != nil {
		t.log.Errorf("snapshot put %s: %v", rel, err)
	}
	if !known || before == after {
		return core.ChangeEvent{}, false
	}
	return core.SaveEvent(rel, before, after), true
}
