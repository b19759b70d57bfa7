package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ryotapoi/mdrelink/internal/core"
)

// validateFormat checks that format is "json" or "text".
func validateFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format: %q (must be json or text)", format)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Edit output ---

// Text output uses 1-based lines and columns; JSON keeps the zero-based
// LSP positions.
func printEdits(w io.Writer, format string, edits []core.Edit) error {
	if format == "json" {
		if edits == nil {
			edits = []core.Edit{}
		}
		return printJSON(w, edits)
	}
	for _, e := range edits {
		printEditText(w, e)
	}
	return nil
}

func printEditText(w io.Writer, e core.Edit) {
	fmt.Fprintf(w, "%s:%d:%d-%d: %s", e.Path, e.Range.Start.Line+1, e.Range.Start.Character+1, e.Range.End.Character+1, e.NewText)
	if e.RequiresPathToExist != "" {
		fmt.Fprintf(w, " (requires %s)", e.RequiresPathToExist)
	}
	fmt.Fprintln(w)
}

// --- Apply output ---

type applyJSON struct {
	Updated []string    `json:"updated"`
	Applied int         `json:"applied"`
	Skipped []core.Edit `json:"skipped"`
}

func printApplyResult(w io.Writer, format string, r *core.ApplyResult) error {
	if format == "json" {
		out := applyJSON{
			Updated: r.Files,
			Applied: len(r.Applied),
			Skipped: r.Skipped,
		}
		if out.Updated == nil {
			out.Updated = []string{}
		}
		if out.Skipped == nil {
			out.Skipped = []core.Edit{}
		}
		return printJSON(w, out)
	}
	for _, f := range r.Files {
		fmt.Fprintf(w, "updated: %s\n", f)
	}
	for _, e := range r.Skipped {
		fmt.Fprintf(w, "skipped: %s:%d (missing %s)\n", e.Path, e.Range.Start.Line+1, e.RequiresPathToExist)
	}
	return nil
}

// --- Scan output ---

type linkJSON struct {
	Target string `json:"target"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func printLinks(w io.Writer, format, path string, links []core.LinkOccurrence) error {
	if format == "json" {
		out := make([]linkJSON, 0, len(links))
		for _, l := range links {
			out = append(out, linkJSON{Target: l.Target, Line: l.Line, Column: l.Column})
		}
		return printJSON(w, out)
	}
	for _, l := range links {
		fmt.Fprintf(w, "%s:%d:%d: %s\n", path, l.Line+1, l.Column+1, l.Target)
	}
	return nil
}
