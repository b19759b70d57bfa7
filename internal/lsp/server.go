// Package lsp serves link propagation to editors over the Language Server
// Protocol. Saves rewrite same-document heading anchors; file renames
// rewrite the links of the whole workspace.
package lsp

import (
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/ryotapoi/mdrelink/internal/core"
)

const lsName = "mdrelink"

// Config holds settings given on the command line. Patterns are appended
// to those of the workspace's mdrelink.yaml.
type Config struct {
	Include []string
	Exclude []string
	Version string
}

// Server tracks open documents and answers editor notifications.
type Server struct {
	mu      sync.Mutex
	config  Config
	vault   string
	opts    core.Options
	handler *protocol.Handler
	saved   map[string]string // last saved text per open document URI
	current map[string]string // buffer text per open document URI
	log     commonlog.Logger
}

// NewServer returns a language server whose handlers propagate renames and
// heading changes through the workspace.
func NewServer(config Config) (*server.Server, error) {
	if err := core.ValidatePatterns(config.Include); err != nil {
		return nil, err
	}
	if err := core.ValidatePatterns(config.Exclude); err != nil {
		return nil, err
	}
	ls := &Server{
		config:  config,
		saved:   make(map[string]string),
		current: make(map[string]string),
		log:     commonlog.GetLogger("mdrelink.lsp"),
	}
	ls.handler = &protocol.Handler{
		Initialize:              ls.initialize,
		Initialized:             ls.initialized,
		SetTrace:                ls.setTrace,
		TextDocumentDidOpen:     ls.textDocumentDidOpen,
		TextDocumentDidChange:   ls.textDocumentDidChange,
		TextDocumentDidSave:     ls.textDocumentDidSave,
		TextDocumentDidClose:    ls.textDocumentDidClose,
		WorkspaceDidRenameFiles: ls.workspaceDidRenameFiles,
		Shutdown:                ls.shutdown,
	}

	return server.NewServer(ls.handler, lsName, false), nil
}
