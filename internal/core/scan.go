package core

import (
	"iter"
	"regexp"
	"sort"
	"strings"
)

// linkPattern is one recognized link syntax. Group 1 of re captures the
// target without its fragment.
type linkPattern struct {
	name string
	re   *regexp.Regexp
}

// linkPatterns are matched independently and merged in this order.
var linkPatterns = []linkPattern{
	{"angle", regexp.MustCompile(`\[[^\]]*\]\(<([^>#]*)(?:#[^>]*)?>\)`)},
	{"plain", regexp.MustCompile(`\[[^\]]*\]\(([^()<>\s#]*)(?:#[^()\s]*)?(?:\s+(?:"[^"]*"|'[^']*'|\([^)]*\)))?\)`)},
	{"image", regexp.MustCompile(`<img\b[^>]*?\bsrc\s*=\s*["']([^"']*)["']`)},
	{"shortcode", regexp.MustCompile(`\{\{[<%]\s*(?:rel)?ref\s+"([^"#]*)(?:#[^"]*)?"\s*[>%]\}\}`)},
}

// ScanLinks yields every link target in content across all recognized
// syntaxes, with its zero-based line and column.
func ScanLinks(content string) iter.Seq[LinkOccurrence] {
	return func(yield func(LinkOccurrence) bool) {
		if content == "" {
			return
		}
		idx := newLineIndex(content)
		for _, p := range linkPatterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(content, -1) {
				start, end := m[2], m[3]
				if start < 0 || start == end {
					continue
				}
				line, col := idx.position(start)
				occ := LinkOccurrence{
					Target: strings.ReplaceAll(content[start:end], `\`, "/"),
					Line:   line,
					Column: col,
				}
				if !yield(occ) {
					return
				}
			}
		}
	}
}

// Links yields the link occurrences of d. An unloaded document has none.
func (d Document) Links() iter.Seq[LinkOccurrence] {
	if d.Content == nil {
		return func(func(LinkOccurrence) bool) {}
	}
	return ScanLinks(*d.Content)
}

// lineIndex maps byte offsets of a text to line/column positions.
type lineIndex struct {
	content string
	starts  []int // byte offset of each line start
}

func newLineIndex(content string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{content: content, starts: starts}
}

func (li *lineIndex) position(offset int) (line, col int) {
	line = sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return line, utf16Len(li.content[li.starts[line]:offset])
}
