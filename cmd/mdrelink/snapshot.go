package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func runSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	vault := fs.String("vault", ".", "vault root directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := recordSnapshot(*vault)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "recorded %d documents\n", n)
	return nil
}

func recordSnapshot(vault string) (int, error) {
	docs, err := core.LoadWorkspace(vault)
	if err != nil {
		return 0, err
	}
	s, err := core.OpenStore(vault, true)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if err := s.Record(vault, docs); err != nil {
		return 0, err
	}
	return s.Count()
}
