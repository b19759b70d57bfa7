package core

// Document is one markdown file of the workspace.
// A nil Content means the file has not been loaded; it scans as zero links.
type Document struct {
	Path    string
	Content *string
}

// NewDocument returns a loaded document.
func NewDocument(path, content string) Document {
	return Document{Path: path, Content: &content}
}

// Text returns the document content, or "" when it is not loaded.
func (d Document) Text() string {
	if d.Content == nil {
		return ""
	}
	return *d.Content
}

// LinkOccurrence is a single link target found in a document.
// Line and Column are zero-based; Column counts UTF-16 code units.
type LinkOccurrence struct {
	Target string
	Line   int
	Column int
}

// Position is a zero-based line/character location (LSP encoding).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a span of text. Edits produced by this package always keep
// Start.Line == End.Line.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Edit replaces Range in the document at Path with NewText.
// RequiresPathToExist, when set, names a workspace path that should exist
// for the rewritten link to resolve; the consumer decides what to do when
// it does not.
type Edit struct {
	Path                string `json:"path"`
	Range               Range  `json:"range"`
	NewText             string `json:"newText"`
	RequiresPathToExist string `json:"requiresPathToExist,omitempty"`
}

// HeadingRename is a heading whose text changed while its depth stayed.
type HeadingRename struct {
	Depth     string // the leading "#" run
	OldHeader string
	NewHeader string
}

// EventKind tags a ChangeEvent.
type EventKind string

const (
	EventSave   EventKind = "save"
	EventRename EventKind = "rename"
)

// ChangeEvent is a workspace change. Save events use Path, ContentBefore
// and ContentAfter; rename events use PathBefore and PathAfter.
type ChangeEvent struct {
	Kind          EventKind
	Path          string
	ContentBefore string
	ContentAfter  string
	PathBefore    string
	PathAfter     string
}

// SaveEvent builds a save ChangeEvent.
func SaveEvent(path, before, after string) ChangeEvent {
	return ChangeEvent{Kind: EventSave, Path: path, ContentBefore: before, ContentAfter: after}
}

// RenameEvent builds a rename ChangeEvent.
func RenameEvent(before, after string) ChangeEvent {
	return ChangeEvent{Kind: EventRename, PathBefore: before, PathAfter: after}
}

// Options controls which documents take part in rename propagation.
// Empty Include and Exclude lists include everything. WorkspacePath is the
// root that globs are matched against and that root-absolute link targets
// ("/docs/a.md") resolve from.
type Options struct {
	Include       []string
	Exclude       []string
	WorkspacePath string
}
