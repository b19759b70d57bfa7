package core

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf16"
)

// NormalizePath cleans a workspace path: forward slashes, no leading "./",
// no trailing slash.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	clean := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	clean = strings.TrimPrefix(clean, "./")
	if clean == "." {
		return ""
	}
	return clean
}

// dir returns the directory of a normalized path ("" for root-level files).
func dir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// joinPath joins a base directory and a relative link target.
func joinPath(base, target string) string {
	if base == "" {
		return NormalizePath(target)
	}
	return NormalizePath(base + "/" + target)
}

// relPath returns the posix path of target relative to the directory from.
func relPath(from, target string) (string, bool) {
	if from == "" {
		from = "."
	}
	if target == "" {
		target = "."
	}
	rel, err := filepath.Rel(filepath.FromSlash(from), filepath.FromSlash(target))
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// relativeTo strips root from p when p lies under it.
func relativeTo(root, p string) string {
	root = NormalizePath(root)
	if root == "" {
		return p
	}
	if p == root {
		return ""
	}
	if strings.HasPrefix(p, root+"/") {
		return p[len(root)+1:]
	}
	return p
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// IsExternal reports whether a link target carries a URL scheme
// (https:, mailto:, ...) and therefore never points into the workspace.
// Windows drive letters ("C:/...") are not treated as schemes.
func IsExternal(target string) bool {
	m := schemeRe.FindString(target)
	return m != "" && len(m) > 2
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// splitLines splits content on "\n", dropping a trailing "\r" from each
// line. The returned slice always has at least one element.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// IsMarkdown reports whether name has a markdown extension.
func IsMarkdown(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
