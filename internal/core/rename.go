package core

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// RenameEdits computes the edits that keep links resolving after the file
// or directory at pathBefore moved to pathAfter. docs is the workspace
// snapshot taken after the move.
//
// Edits for the moved documents come first, then edits for every other
// document in docs order. Within a document, edits follow the links
// top-to-bottom and left-to-right; when several edits share a line, each
// column already includes the length change of the edits before it.
func RenameEdits(pathBefore, pathAfter string, docs []Document, opts Options) iter.Seq[Edit] {
	return func(yield func(Edit) bool) {
		mv := renameMove{
			from: NormalizePath(pathBefore),
			to:   NormalizePath(pathAfter),
			root: NormalizePath(opts.WorkspacePath),
		}
		if mv.from == "" || mv.to == "" || !opts.Includes(mv.from) {
			return
		}
		docs = filterDocuments(docs, opts)

		for _, d := range docs {
			oldPath, moved := mv.oldPathOf(d.Path)
			if !moved {
				continue
			}
			for e := range mv.selfEdits(d, oldPath) {
				if !yield(e) {
					return
				}
			}
		}
		for _, d := range docs {
			if _, moved := mv.oldPathOf(d.Path); moved {
				continue
			}
			for e := range mv.referencingEdits(d) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// filterDocuments normalizes paths, drops duplicates and applies the
// path filter.
func filterDocuments(docs []Document, opts Options) []Document {
	out := make([]Document, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		d.Path = NormalizePath(d.Path)
		if d.Path == "" || seen[d.Path] {
			continue
		}
		seen[d.Path] = true
		if !opts.Includes(d.Path) {
			continue
		}
		out = append(out, d)
	}
	return out
}

type renameMove struct {
	from, to string
	root     string
}

// oldPathOf reports whether p is the moved document (or lies inside the
// moved directory) and returns where it used to be.
func (mv renameMove) oldPathOf(p string) (string, bool) {
	if p == mv.to {
		return mv.from, true
	}
	if strings.HasPrefix(p, mv.to+"/") {
		return mv.from + p[len(mv.to):], true
	}
	return "", false
}

// mapTarget rewrites an absolute target that pointed at the moved entity
// (or inside it) to its new location. The comparison ignores case.
func (mv renameMove) mapTarget(abs string) (string, matchKind) {
	switch {
	case strings.EqualFold(abs, mv.from):
		return mv.to, matchExact
	case len(abs) > len(mv.from) && abs[len(mv.from)] == '/' && strings.EqualFold(abs[:len(mv.from)], mv.from):
		return mv.to + abs[len(mv.from):], matchPrefix
	}
	return abs, matchNone
}

type matchKind int

const (
	matchNone matchKind = iota
	matchExact
	matchPrefix
)

// resolve turns a link target into a workspace path, from the directory
// base. Root-absolute targets resolve from the workspace root.
func (mv renameMove) resolve(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return joinPath(mv.root, strings.TrimLeft(target, "/"))
	}
	return joinPath(base, target)
}

// format writes abs as a link target seen from the directory base, in the
// style of the original target: root-absolute stays root-absolute, a "./"
// prefix and a trailing slash are kept.
func (mv renameMove) format(original, base, abs string) (string, bool) {
	var s string
	if strings.HasPrefix(original, "/") {
		s = "/" + relativeTo(mv.root, abs)
	} else {
		rel, ok := relPath(base, abs)
		if !ok {
			return "", false
		}
		if strings.HasPrefix(original, "./") && rel != "." && !strings.HasPrefix(rel, "../") {
			rel = "./" + rel
		}
		s = rel
	}
	if strings.HasSuffix(original, "/") && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s, true
}

// selfEdits re-bases the relative links of a moved document from its old
// directory to its new one.
func (mv renameMove) selfEdits(d Document, oldPath string) iter.Seq[Edit] {
	oldDir, newDir := dir(oldPath), dir(d.Path)
	return mv.documentEdits(d, func(target string) (string, string, bool) {
		abs, _ := mv.mapTarget(mv.resolve(oldDir, target))
		newTarget, ok := mv.format(target, newDir, abs)
		if !ok || NormalizePath(newTarget) == NormalizePath(target) {
			return "", "", false
		}
		return newTarget, abs, true
	})
}

// referencingEdits rewrites the links of a non-moved document that pointed
// at the moved file or inside the moved directory.
func (mv renameMove) referencingEdits(d Document) iter.Seq[Edit] {
	base := dir(d.Path)
	return mv.documentEdits(d, func(target string) (string, string, bool) {
		abs, kind := mv.mapTarget(mv.resolve(base, target))
		if kind == matchNone {
			return "", "", false
		}
		newTarget, ok := mv.format(target, base, abs)
		if !ok || newTarget == target {
			return "", "", false
		}
		if kind == matchPrefix {
			return newTarget, abs, true
		}
		return newTarget, "", true
	})
}

// documentEdits runs rewrite over the links of d in reading order and
// turns each rewrite into an Edit, tracking the column drift of earlier
// edits on the same line.
func (mv renameMove) documentEdits(d Document, rewrite func(target string) (newTarget, requires string, ok bool)) iter.Seq[Edit] {
	return func(yield func(Edit) bool) {
		links := slices.Collect(d.Links())
		slices.SortStableFunc(links, func(a, b LinkOccurrence) int {
			if c := cmp.Compare(a.Line, b.Line); c != 0 {
				return c
			}
			return cmp.Compare(a.Column, b.Column)
		})

		line, delta := -1, 0
		for _, occ := range links {
			if IsExternal(occ.Target) {
				continue
			}
			newTarget, requires, ok := rewrite(occ.Target)
			if !ok {
				continue
			}
			if occ.Line != line {
				line, delta = occ.Line, 0
			}
			oldLen := utf16Len(occ.Target)
			start := occ.Column + delta
			e := Edit{
				Path: d.Path,
				Range: Range{
					Start: Position{Line: occ.Line, Character: start},
					End:   Position{Line: occ.Line, Character: start + oldLen},
				},
				NewText:             newTarget,
				RequiresPathToExist: requires,
			}
			delta += utf16Len(newTarget) - oldLen
			if !yield(e) {
				return
			}
		}
	}
}
