package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	_ "github.com/tliron/commonlog/simple"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "rename":
		err = runRename(os.Args[2:])
	case "save":
		err = runSave(os.Args[2:])
	case "scan":
		err = runScan(os.Args[2:])
	case "anchor":
		err = runAnchor(os.Args[2:])
	case "snapshot":
		err = runSnapshot(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "--version":
		printVersion(os.Stdout)
		return
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionString() string {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return v
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mdrelink version %s\n", versionString())
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: mdrelink <command> [options]

Edit Commands:
  rename    Rewrite links after a file or directory moved
  save      Rewrite anchor links after headings of a file changed

Inspect Commands:
  scan      List the link targets of a file
  anchor    Print the anchor of a heading text

Background Commands:
  snapshot  Record the current content of every document
  watch     Watch the vault and propagate changes as they happen
  serve     Run the language server on stdio

Run 'mdrelink <command> --help' for command-specific help.
Use 'mdrelink --version' for version information.
`)
}
