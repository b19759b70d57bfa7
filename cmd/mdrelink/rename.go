package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func runRename(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	common := addVaultFlags(fs)
	format := fs.String("format", "text", "output format (json or text)")
	from := fs.String("from", "", "path before the rename (vault-relative)")
	to := fs.String("to", "", "path after the rename (vault-relative)")
	move := fs.Bool("move", false, "move the file or directory on disk as well")
	dryRun := fs.Bool("dry-run", false, "print the edits without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(*format); err != nil {
		return err
	}
	if *from == "" {
		return fmt.Errorf("--from is required")
	}
	if *to == "" {
		return fmt.Errorf("--to is required")
	}
	common.configure()
	cfg, err := common.config()
	if err != nil {
		return err
	}

	vault := *common.vault
	fromN, toN := core.NormalizePath(*from), core.NormalizePath(*to)
	docs, err := core.LoadWorkspace(vault)
	if err != nil {
		return err
	}
	if *move {
		// Edits are computed on the moved layout before touching the disk.
		docs = relocate(docs, fromN, toN)
	}
	edits := slices.Collect(core.RenameEdits(fromN, toN, docs, cfg.Options()))

	if *dryRun {
		return printEdits(os.Stdout, *format, edits)
	}
	if *move {
		if err := movePath(vault, fromN, toN); err != nil {
			return err
		}
	}
	result, err := core.ApplyEdits(vault, edits, core.ApplyOptions{CheckExists: true})
	if err != nil {
		return err
	}
	if err := withSnapshot(vault, func(s *core.Store) error {
		if err := s.Move(fromN, toN); err != nil {
			return err
		}
		return s.Refresh(vault, result.Files...)
	}); err != nil {
		return err
	}
	return printApplyResult(os.Stdout, *format, result)
}

// relocate returns docs with the paths at or under from moved to to.
func relocate(docs []core.Document, from, to string) []core.Document {
	out := make([]core.Document, len(docs))
	for i, d := range docs {
		p := core.NormalizePath(d.Path)
		switch {
		case p == from:
			d.Path = to
		case strings.HasPrefix(p, from+"/"):
			d.Path = to + strings.TrimPrefix(p, from)
		}
		out[i] = d
	}
	return out
}

// movePath renames a vault entry, creating the destination directory.
func movePath(vault, from, to string) error {
	src := filepath.Join(vault, filepath.FromSlash(from))
	dst := filepath.Join(vault, filepath.FromSlash(to))
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source not found: %s", from)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", to)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// withSnapshot runs fn on the vault's snapshot when one has been taken.
func withSnapshot(vault string, fn func(*core.Store) error) error {
	s, err := core.OpenStore(vault, false)
	if errors.Is(err, core.ErrStoreNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
