package core

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var headingRe = regexp.MustCompile(`^(#+) (.*)$`)

var (
	anchorLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\(#([^()\s]*)\)`)
	anchorRefLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(\{\{([<%])\s*(ref|relref)\s+"#([^"]*)"\s*([>%])\}\}\)`)
)

// shortcodeAnchorLabel replaces the label of a rewritten shortcode link.
const shortcodeAnchorLabel = "link"

// DetectHeadingRenames compares two versions of a document line by line and
// returns the headings whose text changed at the same depth. Each removed
// chunk of the diff is paired line by line with the added chunk next to it.
func DetectHeadingRenames(before, after string) []HeadingRename {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []HeadingRename
	for i := 0; i+1 < len(diffs); i++ {
		var removed, added string
		switch {
		case diffs[i].Type == diffmatchpatch.DiffDelete && diffs[i+1].Type == diffmatchpatch.DiffInsert:
			removed, added = diffs[i].Text, diffs[i+1].Text
		case diffs[i].Type == diffmatchpatch.DiffInsert && diffs[i+1].Type == diffmatchpatch.DiffDelete:
			removed, added = diffs[i+1].Text, diffs[i].Text
		default:
			continue
		}
		oldLines, newLines := chunkLines(removed), chunkLines(added)
		for j := 0; j < len(oldLines) && j < len(newLines); j++ {
			if r, ok := headingRename(oldLines[j], newLines[j]); ok {
				out = append(out, r)
			}
		}
		i++
	}
	return out
}

func chunkLines(chunk string) []string {
	return splitLines(strings.TrimSuffix(chunk, "\n"))
}

func headingRename(oldLine, newLine string) (HeadingRename, bool) {
	o := headingRe.FindStringSubmatch(oldLine)
	n := headingRe.FindStringSubmatch(newLine)
	if o == nil || n == nil || o[1] != n[1] || o[2] == n[2] {
		return HeadingRename{}, false
	}
	return HeadingRename{Depth: o[1], OldHeader: o[2], NewHeader: n[2]}, true
}

// SaveEdits rewrites the same-document anchor links of the saved document
// whose heading text changed between contentBefore and contentAfter. Each
// edit replaces a whole line of contentAfter. A nil slug uses
// HeadingToAnchor.
func SaveEdits(p, contentBefore, contentAfter string, slug AnchorFunc) iter.Seq[Edit] {
	return func(yield func(Edit) bool) {
		if slug == nil {
			slug = HeadingToAnchor
		}
		anchors := make(map[string]string)
		for _, r := range DetectHeadingRenames(contentBefore, contentAfter) {
			oldAnchor, newAnchor := slug(r.OldHeader), slug(r.NewHeader)
			if oldAnchor == "" || oldAnchor == newAnchor {
				continue
			}
			if _, ok := anchors[oldAnchor]; !ok {
				anchors[oldAnchor] = newAnchor
			}
		}
		if len(anchors) == 0 {
			return
		}

		path := NormalizePath(p)
		for i, line := range splitLines(contentAfter) {
			newLine, ok := rewriteAnchorLine(line, anchors)
			if !ok {
				continue
			}
			e := Edit{
				Path: path,
				Range: Range{
					Start: Position{Line: i, Character: 0},
					End:   Position{Line: i, Character: utf16Len(line)},
				},
				NewText: newLine,
			}
			if !yield(e) {
				return
			}
		}
	}
}

// rewriteAnchorLine checks the first plain anchor link and the first
// shortcode anchor link of line against anchors (old -> new).
func rewriteAnchorLine(line string, anchors map[string]string) (string, bool) {
	changed := false
	if m := anchorLinkRe.FindStringSubmatchIndex(line); m != nil {
		if newAnchor, ok := anchors[line[m[4]:m[5]]]; ok {
			link := fmt.Sprintf("[%s](#%s)", line[m[2]:m[3]], newAnchor)
			line = line[:m[0]] + link + line[m[1]:]
			changed = true
		}
	}
	if m := anchorRefLinkRe.FindStringSubmatchIndex(line); m != nil {
		if newAnchor, ok := anchors[line[m[8]:m[9]]]; ok {
			link := fmt.Sprintf(`[%s]({{%s %s "#%s" %s}})`,
				shortcodeAnchorLabel, line[m[4]:m[5]], line[m[6]:m[7]], newAnchor, line[m[10]:m[11]])
			line = line[:m[0]] + link + line[m[1]:]
			changed = true
		}
	}
	return line, changed
}
