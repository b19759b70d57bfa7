package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func runSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	common := addVaultFlags(fs)
	format := fs.String("format", "text", "output format (json or text)")
	file := fs.String("file", "", "saved file (vault-relative)")
	beforeFile := fs.String("before", "", "file holding the content before the save (default: snapshot)")
	dryRun := fs.Bool("dry-run", false, "print the edits without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(*format); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	common.configure()

	vault := *common.vault
	doc, err := core.ReadDocument(vault, *file)
	if err != nil {
		return err
	}
	before, err := contentBefore(vault, doc.Path, *beforeFile)
	if err != nil {
		return err
	}
	edits := slices.Collect(core.SaveEdits(doc.Path, before, doc.Text(), nil))

	if *dryRun {
		return printEdits(os.Stdout, *format, edits)
	}
	result, err := core.ApplyEdits(vault, edits, core.ApplyOptions{})
	if err != nil {
		return err
	}
	if err := withSnapshot(vault, func(s *core.Store) error {
		return s.Refresh(vault, doc.Path)
	}); err != nil {
		return err
	}
	return printApplyResult(os.Stdout, *format, result)
}

// contentBefore reads the pre-save content from beforeFile, or from the
// snapshot when beforeFile is empty.
func contentBefore(vault, rel, beforeFile string) (string, error) {
	if beforeFile != "" {
		data, err := os.ReadFile(beforeFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	s, err := core.OpenStore(vault, false)
	if err != nil {
		return "", err
	}
	defer s.Close()
	content, ok, err := s.Get(rel)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no snapshot of %s: pass --before or run 'mdrelink snapshot'", rel)
	}
	return content, nil
}
