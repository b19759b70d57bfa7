package lsp

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ryotapoi/mdrelink/internal/core"
)

// uriToPath converts a file URI to a filesystem path.
func uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	p := u.Path
	// "/C:/dir" on Windows.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// relPath returns the vault-relative path of uri.
func relPath(vault, uri string) (string, error) {
	p, err := uriToPath(uri)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(vault, p)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the workspace", uri)
	}
	return core.NormalizePath(rel), nil
}

// pathToURI returns the file URI of a vault-relative path.
func pathToURI(vault, rel string) string {
	p := path.Join(filepath.ToSlash(vault), rel)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// toClientEdits converts edits meant for sequential application into
// ranges against the unmodified document, as a client applies one
// WorkspaceEdit.
func toClientEdits(edits []core.Edit) []core.Edit {
	type lineKey struct {
		path string
		line int
	}
	shift := make(map[lineKey]int)
	out := make([]core.Edit, 0, len(edits))
	for _, e := range edits {
		k := lineKey{core.NormalizePath(e.Path), e.Range.Start.Line}
		d := shift[k]
		width := e.Range.End.Character - e.Range.Start.Character
		e.Range.Start.Character -= d
		e.Range.End.Character -= d
		shift[k] = d + len(utf16.Encode([]rune(e.NewText))) - width
		out = append(out, e)
	}
	return out
}

// overlaps reports whether two single-line edits replace intersecting text.
func overlaps(a, b core.Edit) bool {
	return core.NormalizePath(a.Path) == core.NormalizePath(b.Path) &&
		a.Range.Start.Line == b.Range.Start.Line &&
		a.Range.Start.Character < b.Range.End.Character &&
		b.Range.Start.Character < a.Range.End.Character
}

// dropMissing splits edits by whether their required path exists.
func dropMissing(vault string, edits []core.Edit) (kept, dropped []core.Edit) {
	for _, e := range edits {
		if e.RequiresPathToExist != "" && !core.ExistsInVault(vault, e.RequiresPathToExist) {
			dropped = append(dropped, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

func workspaceEdit(vault string, edits []core.Edit) protocol.WorkspaceEdit {
	changes := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for _, e := range edits {
		uri := pathToURI(vault, core.NormalizePath(e.Path))
		changes[uri] = append(changes[uri], protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(e.Range.Start.Line),
					Character: uint32(e.Range.Start.Character),
				},
				End: protocol.Position{
					Line:      uint32(e.Range.End.Line),
					Character: uint32(e.Range.End.Character),
				},
			},
			NewText: e.NewText,
		})
	}
	return protocol.WorkspaceEdit{Changes: changes}
}
