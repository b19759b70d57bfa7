package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gofrs/flock"
)

var (
	// ErrStaleEdit is returned when an edit range does not fit the file on disk.
	ErrStaleEdit = errors.New("edit does not match file content")
	// ErrLockTimeout is returned when another process holds the apply lock.
	ErrLockTimeout = errors.New("timeout acquiring apply lock")
)

const (
	lockFileName      = "apply.lock"
	lockTimeout       = 5 * time.Second
	shortPollInterval = 10 * time.Millisecond
)

// ApplyOptions controls ApplyEdits.
type ApplyOptions struct {
	// CheckExists skips edits whose RequiresPathToExist is missing on disk.
	CheckExists bool
}

// ApplyResult reports what ApplyEdits did.
type ApplyResult struct {
	Applied []Edit
	Skipped []Edit
	Files   []string
}

// rewriteBackup holds original file content for rollback on failure.
type rewriteBackup struct {
	path    string
	content []byte
	perm    os.FileMode
}

// ApplyEdits writes edits to the vault. Edits of one file are applied in
// the given order, which is the order the propagation functions produce.
// All files are read before any is written; on a write failure the files
// already written are restored.
func ApplyEdits(vaultPath string, edits []Edit, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if len(edits) == 0 {
		return result, nil
	}

	unlock, err := acquireApplyLock(vaultPath)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Group edits by file, keeping first-seen file order.
	var order []string
	groups := make(map[string][]Edit)
	for _, e := range edits {
		p := NormalizePath(e.Path)
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], e)
	}

	// Phase 1: read all originals before any writes.
	originals := make(map[string][]byte, len(groups))
	perms := make(map[string]os.FileMode, len(groups))
	for _, p := range order {
		fullPath := filepath.Join(vaultPath, filepath.FromSlash(p))
		info, err := os.Stat(fullPath)
		if err != nil {
			return nil, err
		}
		perms[p] = info.Mode().Perm()
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, err
		}
		originals[p] = content
	}

	// Phase 2: compute all new contents.
	updated := make(map[string][]byte, len(groups))
	for _, p := range order {
		content, applied, skipped, err := applyFileEdits(vaultPath, string(originals[p]), groups[p], opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		result.Applied = append(result.Applied, applied...)
		result.Skipped = append(result.Skipped, skipped...)
		if len(applied) > 0 {
			updated[p] = []byte(content)
		}
	}

	// Phase 3: write.
	var written []rewriteBackup
	for _, p := range order {
		data, ok := updated[p]
		if !ok {
			continue
		}
		if err := writeFilePreservePerm(filepath.Join(vaultPath, filepath.FromSlash(p)), data, perms[p]); err != nil {
			restoreBackups(vaultPath, written)
			return nil, err
		}
		written = append(written, rewriteBackup{path: p, content: originals[p], perm: perms[p]})
		result.Files = append(result.Files, p)
	}
	return result, nil
}

// applyFileEdits applies the edits of one file in order. A skipped edit
// shifts the later edits of its line back by its own length change.
func applyFileEdits(vaultPath, content string, edits []Edit, opts ApplyOptions) (string, []Edit, []Edit, error) {
	lines := strings.Split(content, "\n")
	var applied, skipped []Edit
	shiftLine, shift := -1, 0
	for _, e := range edits {
		line := e.Range.Start.Line
		if line != e.Range.End.Line {
			return "", nil, nil, fmt.Errorf("%w: multi-line range at line %d", ErrStaleEdit, line)
		}
		if line < 0 || line >= len(lines) {
			return "", nil, nil, fmt.Errorf("%w: line %d out of range", ErrStaleEdit, line)
		}
		if line != shiftLine {
			shiftLine, shift = line, 0
		}
		start, end := e.Range.Start.Character-shift, e.Range.End.Character-shift
		if opts.CheckExists && e.RequiresPathToExist != "" && !ExistsInVault(vaultPath, e.RequiresPathToExist) {
			shift += utf16Len(e.NewText) - (end - start)
			skipped = append(skipped, e)
			continue
		}
		newLine, err := spliceUTF16(lines[line], start, end, e.NewText)
		if err != nil {
			return "", nil, nil, fmt.Errorf("%w: line %d: %v", ErrStaleEdit, line, err)
		}
		lines[line] = newLine
		applied = append(applied, e)
	}
	return strings.Join(lines, "\n"), applied, skipped, nil
}

// spliceUTF16 replaces the UTF-16 code unit range [start, end) of line.
func spliceUTF16(line string, start, end int, text string) (string, error) {
	units := utf16.Encode([]rune(line))
	if start < 0 || end < start || end > len(units) {
		return "", fmt.Errorf("range %d-%d outside line of length %d", start, end, len(units))
	}
	var b strings.Builder
	b.WriteString(string(utf16.Decode(units[:start])))
	b.WriteString(text)
	b.WriteString(string(utf16.Decode(units[end:])))
	return b.String(), nil
}

// ApplyToText applies edits for a single document to its content in memory.
func ApplyToText(content string, edits []Edit) (string, error) {
	out, _, _, err := applyFileEdits("", content, edits, ApplyOptions{})
	return out, err
}

func acquireApplyLock(vaultPath string) (func(), error) {
	dir, err := ensureDataDir(vaultPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	fileLock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fileLock.TryLockContext(ctx, shortPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("acquiring apply lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return func() { _ = fileLock.Unlock() }, nil
}

// writeFilePreservePerm writes data to path with the given permission bits.
// os.WriteFile applies umask on file creation, so os.Chmod is called to
// ensure the exact permission bits are set.
func writeFilePreservePerm(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}

// restoreBackups restores files to their original content (best-effort).
func restoreBackups(vaultPath string, backups []rewriteBackup) {
	for _, fb := range backups {
		_ = writeFilePreservePerm(filepath.Join(vaultPath, filepath.FromSlash(fb.path)), fb.content, fb.perm)
	}
}
