package main

import (
	"flag"

	"github.com/ryotapoi/mdrelink/internal/lsp"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	logs := addLogFlags(fs)
	var include, exclude multiString
	fs.Var(&include, "include", "only propagate into paths matching this glob (repeatable)")
	fs.Var(&exclude, "exclude", "never propagate into paths matching this glob (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logs.configure()

	server, err := lsp.NewServer(lsp.Config{
		Include: include,
		Exclude: exclude,
		Version: versionString(),
	})
	if err != nil {
		return err
	}
	return server.RunStdio()
}
