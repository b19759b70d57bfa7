package lsp

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	var root string
	switch {
	case params.RootURI != nil:
		p, err := uriToPath(*params.RootURI)
		if err != nil {
			return nil, err
		}
		root = p
	case params.RootPath != nil:
		root = *params.RootPath
	default:
		return nil, fmt.Errorf("initialize: no workspace root")
	}

	cfg, err := core.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	cfg, err = cfg.Merge(s.config.Include, s.config.Exclude)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.vault = root
	s.opts = cfg.Options()
	s.mu.Unlock()
	s.log.Infof("workspace root: %s", root)

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.Workspace = &protocol.ServerCapabilitiesWorkspace{
		FileOperations: &protocol.ServerCapabilitiesWorkspaceFileOperations{
			DidRename: &protocol.FileOperationRegistrationOptions{
				Filters: []protocol.FileOperationFilter{
					{Pattern: protocol.FileOperationPattern{Glob: "**/*"}},
				},
			},
		},
	}

	version := s.config.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	s.log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	s.log.Info("shutdown")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[uri] = params.TextDocument.Text
	s.current[uri] = params.TextDocument.Text
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			s.current[uri] = c.Text
		default:
			s.log.Warningf("%s: ignoring incremental change", uri)
		}
	}
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	before, known := s.saved[uri]
	after := s.current[uri]
	if params.Text != nil {
		after = *params.Text
	}
	s.saved[uri] = after
	s.current[uri] = after
	vault := s.vault
	s.mu.Unlock()

	if !known || before == after {
		return nil
	}
	rel, err := relPath(vault, uri)
	if err != nil {
		s.log.Warningf("save: %v", err)
		return nil
	}
	edits := slices.Collect(core.SaveEdits(rel, before, after, nil))
	if len(edits) == 0 {
		return nil
	}
	s.log.Infof("save %s: %d anchor edits", rel, len(edits))
	s.sendEdits(context, "Update heading links", toClientEdits(edits))
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, uri)
	delete(s.current, uri)
	return nil
}

func (s *Server) workspaceDidRenameFiles(
	context *glsp.Context,
	params *protocol.RenameFilesParams,
) error {
	s.mu.Lock()
	vault, opts := s.vault, s.opts
	for _, f := range params.Files {
		moveKey(s.saved, f.OldURI, f.NewURI)
		moveKey(s.current, f.OldURI, f.NewURI)
	}
	s.mu.Unlock()

	docs, err := s.workspace()
	if err != nil {
		return err
	}
	edits := s.renameEdits(vault, opts, params.Files, docs)
	if len(edits) > 0 {
		s.sendEdits(context, "Update links", edits)
	}
	return nil
}

// renameEdits computes the edits of every entry of files against docs and
// returns them in the coordinates of the unmodified documents, ready to be
// sent as one WorkspaceEdit. An edit overlapping one of an earlier entry is
// dropped.
func (s *Server) renameEdits(vault string, opts core.Options, files []protocol.FileRename, docs []core.Document) []core.Edit {
	var out []core.Edit
	for _, f := range files {
		from, err := relPath(vault, f.OldURI)
		if err != nil {
			s.log.Warningf("rename: %v", err)
			continue
		}
		to, err := relPath(vault, f.NewURI)
		if err != nil {
			s.log.Warningf("rename: %v", err)
			continue
		}
		edits := toClientEdits(slices.Collect(core.RenameEdits(from, to, docs, opts)))
		s.log.Infof("rename %s -> %s: %d edits", from, to, len(edits))
		for _, e := range edits {
			if slices.ContainsFunc(out, func(o core.Edit) bool { return overlaps(o, e) }) {
				s.log.Warningf("%s:%d: skipping overlapping edit", e.Path, e.Range.Start.Line+1)
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

// workspace loads the documents from disk, replacing the content of open
// documents with their buffers.
func (s *Server) workspace() ([]core.Document, error) {
	s.mu.Lock()
	vault := s.vault
	buffers := make(map[string]string, len(s.current))
	for uri, text := range s.current {
		if rel, err := relPath(vault, uri); err == nil {
			buffers[rel] = text
		}
	}
	s.mu.Unlock()

	docs, err := core.LoadWorkspace(vault)
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		if text, ok := buffers[d.Path]; ok {
			docs[i] = core.NewDocument(d.Path, text)
		}
	}
	return docs, nil
}

// sendEdits sends edits, in client coordinates, to the client as one
// workspace/applyEdit request. Edits whose required path is missing are
// dropped. The request runs in its own goroutine so that the handler does
// not wait on the client.
func (s *Server) sendEdits(context *glsp.Context, label string, edits []core.Edit) {
	s.mu.Lock()
	vault := s.vault
	s.mu.Unlock()

	kept, dropped := dropMissing(vault, edits)
	for _, e := range dropped {
		s.log.Warningf("%s:%d: skipping link to missing %s", e.Path, e.Range.Start.Line+1, e.RequiresPathToExist)
	}
	if len(kept) == 0 {
		return
	}
	params := protocol.ApplyWorkspaceEditParams{
		Label: &label,
		Edit:  workspaceEdit(vault, kept),
	}
	go func() {
		var resp protocol.ApplyWorkspaceEditResponse
		context.Call("workspace/applyEdit", params, &resp)
		if !resp.Applied {
			reason := "unknown"
			if resp.FailureReason != nil {
				reason = *resp.FailureReason
			}
			s.log.Warningf("client rejected edit %q: %s", label, reason)
		}
	}()
}

// moveKey moves the entry of from, and those of documents under it, to to.
func moveKey(m map[string]string, from, to string) {
	moved := make(map[string]string)
	for k, v := range m {
		switch {
		case k == from:
			moved[to] = v
		case strings.HasPrefix(k, from+"/"):
			moved[to+k[len(from):]] = v
		default:
			continue
		}
		delete(m, k)
	}
	maps.Copy(m, moved)
}
