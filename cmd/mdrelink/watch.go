package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/ryotapoi/mdrelink/internal/core"
	"github.com/ryotapoi/mdrelink/internal/watch"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	common := addVaultFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	common.configure()
	cfg, err := common.config()
	if err != nil {
		return err
	}
	vault := *common.vault

	store, err := core.OpenStore(vault, true)
	if err != nil {
		return err
	}
	defer store.Close()
	if n, err := store.Count(); err != nil {
		return err
	} else if n == 0 {
		docs, err := core.LoadWorkspace(vault)
		if err != nil {
			return err
		}
		if err := store.Record(vault, docs); err != nil {
			return err
		}
	}

	w, err := watch.New(vault, store)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "watching %s\n", vault)
	return w.Run(ctx, func(ev core.ChangeEvent) {
		if err := propagate(os.Stdout, vault, store, cfg.Options(), ev); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	})
}

// propagate applies the edits of one change event and records the
// rewritten files in the snapshot. Saves of excluded files are ignored.
func propagate(w io.Writer, vault string, store *core.Store, opts core.Options, ev core.ChangeEvent) error {
	var docs []core.Document
	switch ev.Kind {
	case core.EventRename:
		var err error
		docs, err = core.LoadWorkspace(vault)
		if err != nil {
			return err
		}
	case core.EventSave:
		if !opts.Includes(ev.Path) {
			return nil
		}
	}
	edits := slices.Collect(core.Edits(ev, docs, opts))
	if len(edits) == 0 {
		return nil
	}
	result, err := core.ApplyEdits(vault, edits, core.ApplyOptions{CheckExists: true})
	if err != nil {
		return err
	}
	if err := store.Refresh(vault, result.Files...); err != nil {
		return err
	}
	return printApplyResult(w, "text", result)
}
