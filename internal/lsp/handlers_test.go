package lsp

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func newTestServer(vault string) *Server {
	return &Server{
		vault:   vault,
		saved:   make(map[string]string),
		current: make(map[string]string),
		log:     commonlog.GetLogger("mdrelink.lsp"),
	}
}

// recordingContext returns a context whose workspace/applyEdit requests
// are accepted and delivered on the returned channel.
func recordingContext() (*glsp.Context, <-chan protocol.ApplyWorkspaceEditParams) {
	calls := make(chan protocol.ApplyWorkspaceEditParams, 8)
	ctx := &glsp.Context{
		Call: func(method string, params any, result any) {
			if method != "workspace/applyEdit" {
				return
			}
			calls <- params.(protocol.ApplyWorkspaceEditParams)
			result.(*protocol.ApplyWorkspaceEditResponse).Applied = true
		},
	}
	return ctx, calls
}

func nextCall(t *testing.T, calls <-chan protocol.ApplyWorkspaceEditParams) protocol.ApplyWorkspaceEditParams {
	t.Helper()
	select {
	case p := <-calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no workspace/applyEdit request")
		return protocol.ApplyWorkspaceEditParams{}
	}
}

func assertNoMoreCalls(t *testing.T, calls <-chan protocol.ApplyWorkspaceEditParams) {
	t.Helper()
	select {
	case p := <-calls:
		t.Fatalf("unexpected workspace/applyEdit request: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func writeVault(t *testing.T, vault string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(vault, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// applyLine applies single-line edits made against line, as a client
// applies one WorkspaceEdit.
func applyLine(line string, edits []protocol.TextEdit) string {
	sorted := append([]protocol.TextEdit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Character > sorted[j].Range.Start.Character
	})
	for _, e := range sorted {
		line = line[:e.Range.Start.Character] + e.NewText + line[e.Range.End.Character:]
	}
	return line
}

func TestRenameEditsUseOriginalCoordinates(t *testing.T) {
	vault := t.TempDir()
	line := "[a](../x/a.md) [b](../x/b.md)"
	docs := []core.Document{
		core.NewDocument("long/a.md", "# A\n"),
		core.NewDocument("long/b.md", "# B\n"),
		core.NewDocument("z/c.md", line+"\n"),
	}
	files := []protocol.FileRename{
		{OldURI: pathToURI(vault, "x/a.md"), NewURI: pathToURI(vault, "long/a.md")},
		{OldURI: pathToURI(vault, "x/b.md"), NewURI: pathToURI(vault, "long/b.md")},
	}
	s := newTestServer(vault)

	got := s.renameEdits(vault, core.Options{}, files, docs)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Range.Start.Character)
	assert.Equal(t, 13, got[0].Range.End.Character)
	assert.Equal(t, 19, got[1].Range.Start.Character)
	assert.Equal(t, 28, got[1].Range.End.Character)
}

func TestRenameEditsSkipsOverlap(t *testing.T) {
	vault := t.TempDir()
	docs := []core.Document{
		core.NewDocument("b.md", "# B\n"),
		core.NewDocument("c.md", "[a](a.md)\n"),
	}
	files := []protocol.FileRename{
		{OldURI: pathToURI(vault, "a.md"), NewURI: pathToURI(vault, "b.md")},
		{OldURI: pathToURI(vault, "a.md"), NewURI: pathToURI(vault, "b.md")},
	}
	got := newTestServer(vault).renameEdits(vault, core.Options{}, files, docs)
	require.Len(t, got, 1)
	assert.Equal(t, "b.md", got[0].NewText)
}

func TestDidRenameFilesSendsOneEdit(t *testing.T) {
	vault := t.TempDir()
	line := "[a](../x/a.md) [b](../x/b.md)"
	writeVault(t, vault, map[string]string{
		"long/a.md": "# A\n",
		"long/b.md": "# B\n",
		"z/c.md":    line + "\n",
	})
	s := newTestServer(vault)
	ctx, calls := recordingContext()

	err := s.workspaceDidRenameFiles(ctx, &protocol.RenameFilesParams{
		Files: []protocol.FileRename{
			{OldURI: pathToURI(vault, "x/a.md"), NewURI: pathToURI(vault, "long/a.md")},
			{OldURI: pathToURI(vault, "x/b.md"), NewURI: pathToURI(vault, "long/b.md")},
		},
	})
	require.NoError(t, err)

	p := nextCall(t, calls)
	require.Len(t, p.Edit.Changes, 1)
	edits := p.Edit.Changes[pathToURI(vault, "z/c.md")]
	require.Len(t, edits, 2)
	assert.Equal(t, "[a](../long/a.md) [b](../long/b.md)", applyLine(line, edits))
	assertNoMoreCalls(t, calls)
}

func TestDidRenameFilesMovesOpenDocumentsUnderDirectory(t *testing.T) {
	vault := t.TempDir()
	writeVault(t, vault, map[string]string{
		"long/a.md": "# A\n",
		"index.md":  "[a](x/a.md)\n",
	})
	s := newTestServer(vault)
	oldURI := pathToURI(vault, "x/a.md")
	newURI := pathToURI(vault, "long/a.md")
	require.NoError(t, s.textDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: oldURI, Text: "# A\n"},
	}))
	ctx, calls := recordingContext()

	err := s.workspaceDidRenameFiles(ctx, &protocol.RenameFilesParams{
		Files: []protocol.FileRename{
			{OldURI: pathToURI(vault, "x"), NewURI: pathToURI(vault, "long")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{newURI: "# A\n"}, s.saved)
	assert.Equal(t, map[string]string{newURI: "# A\n"}, s.current)

	p := nextCall(t, calls)
	edits := p.Edit.Changes[pathToURI(vault, "index.md")]
	require.Len(t, edits, 1)
	assert.Equal(t, "[a](long/a.md)", applyLine("[a](x/a.md)", edits))
}

func TestDidSaveSendsAnchorEdit(t *testing.T) {
	vault := t.TempDir()
	s := newTestServer(vault)
	uri := pathToURI(vault, "a.md")
	require.NoError(t, s.textDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "## Old Title\n\nsee [link](#old-title) and [again](#old-title)\n"},
	}))
	ctx, calls := recordingContext()

	after := "## New Title\n\nsee [link](#old-title) and [again](#old-title)\n"
	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Text:         &after,
	}))

	p := nextCall(t, calls)
	edits := p.Edit.Changes[uri]
	require.Len(t, edits, 1)
	assert.Equal(t, uint32(2), edits[0].Range.Start.Line)
	assert.Equal(t, "see [link](#new-title) and [again](#new-title)",
		applyLine("see [link](#old-title) and [again](#old-title)", edits))
	assert.Equal(t, after, s.saved[uri])
	assertNoMoreCalls(t, calls)
}

func TestDidSaveUnchangedSendsNothing(t *testing.T) {
	vault := t.TempDir()
	s := newTestServer(vault)
	uri := pathToURI(vault, "a.md")
	text := "## Title\n\n[x](#title)\n"
	require.NoError(t, s.textDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: text},
	}))
	ctx, calls := recordingContext()

	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	assertNoMoreCalls(t, calls)
}
