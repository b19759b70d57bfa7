package core

import "iter"

// Edits dispatches a change event: save events go to heading anchor
// propagation, rename events to rename propagation. Other kinds yield
// nothing.
func Edits(ev ChangeEvent, docs []Document, opts Options) iter.Seq[Edit] {
	switch ev.Kind {
	case EventSave:
		return SaveEdits(ev.Path, ev.ContentBefore, ev.ContentAfter, nil)
	case EventRename:
		return RenameEdits(ev.PathBefore, ev.PathAfter, docs, opts)
	}
	return func(func(Edit) bool) {}
}
