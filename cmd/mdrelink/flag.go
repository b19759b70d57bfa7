package main

import (
	"flag"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/ryotapoi/mdrelink/internal/core"
)

// multiString implements flag.Value for repeated flags.
type multiString []string

func (m *multiString) String() string { return strings.Join(*m, ",") }
func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// logFlags are accepted by every command that logs.
type logFlags struct {
	verbose *bool
	logfile *string
}

func addLogFlags(fs *flag.FlagSet) *logFlags {
	return &logFlags{
		verbose: fs.Bool("verbose", false, "log informational messages"),
		logfile: fs.String("logfile", "", "write logs to this file instead of stderr"),
	}
}

func (l *logFlags) configure() {
	verbosity := 0
	if *l.verbose {
		verbosity = 1
	}
	var path *string
	if *l.logfile != "" {
		path = l.logfile
	}
	commonlog.Configure(verbosity, path)
}

// vaultFlags select the vault and the documents taking part in rename
// propagation.
type vaultFlags struct {
	*logFlags
	vault   *string
	include multiString
	exclude multiString
}

func addVaultFlags(fs *flag.FlagSet) *vaultFlags {
	v := &vaultFlags{
		logFlags: addLogFlags(fs),
		vault:    fs.String("vault", ".", "vault root directory"),
	}
	fs.Var(&v.include, "include", "only propagate into paths matching this glob (repeatable)")
	fs.Var(&v.exclude, "exclude", "never propagate into paths matching this glob (repeatable)")
	return v
}

// config merges mdrelink.yaml with the command line patterns.
func (v *vaultFlags) config() (core.Config, error) {
	cfg, err := core.LoadConfig(*v.vault)
	if err != nil {
		return core.Config{}, err
	}
	return cfg.Merge(v.include, v.exclude)
}
