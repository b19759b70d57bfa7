package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/ryotapoi/mdrelink/internal/core"
)

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	vault := fs.String("vault", ".", "vault root directory")
	format := fs.String("format", "text", "output format (json or text)")
	file := fs.String("file", "", "file to scan (vault-relative)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(*format); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	doc, err := core.ReadDocument(*vault, *file)
	if err != nil {
		return err
	}
	return printLinks(os.Stdout, *format, doc.Path, slices.Collect(doc.Links()))
}
