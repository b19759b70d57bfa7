package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func runAnchor(args []string) error {
	fs := flag.NewFlagSet("anchor", flag.ContinueOnError)
	text := fs.String("text", "", "heading text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return fmt.Errorf("--text is required")
	}
	fmt.Fprintln(os.Stdout, core.HeadingToAnchor(*text))
	return nil
}
