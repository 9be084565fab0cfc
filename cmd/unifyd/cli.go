package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/junioryono/unify/bootstrap"
	"golang.org/x/text/language"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type cliConfig struct {
	options bootstrap.Options
	check   bool
}

// parse reads the command line. It reports shouldExit for -h.
func parse(args []string, out io.Writer) (*cliConfig, bool, error) {
	fs := flag.NewFlagSet("unifyd", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, `
unifyd - runs a unify component container.

Usage:
  unifyd [options] [CONFIG_FILE...]

Arguments:
  CONFIG_FILE
    YAML (.yaml, .yml) or HCL (.hcl) container configuration. Files are
    applied in order.

Options:
`)
		fs.PrintDefaults()
	}

	var configs, messages stringList
	fs.Var(&configs, "config", "Configuration file. Repeatable.")
	fs.Var(&messages, "messages", "YAML message bundle. Repeatable.")
	node := fs.String("node", "", "Node id; overrides the configuration.")
	commandAddr := fs.String("command-addr", "", "Listen address of the HTTP command interface. Empty disables it unless configured.")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error.")
	dev := fs.Bool("dev", false, "Use the development logger.")
	locale := fs.String("locale", "en", "Default view locale (BCP 47).")
	check := fs.Bool("check", false, "Load and validate the configuration, then exit.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	files := append([]string(configs), fs.Args()...)
	if len(files) == 0 {
		fs.Usage()
		return nil, false, &ExitError{Code: 2, Message: "no configuration file given"}
	}

	switch strings.ToLower(*logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	tag, err := language.Parse(*locale)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid locale %q: %v", *locale, err)}
	}

	return &cliConfig{
		options: bootstrap.Options{
			ConfigFiles:    files,
			MessageFiles:   messages,
			NodeID:         *node,
			CommandAddress: *commandAddr,
			LogLevel:       strings.ToLower(*logLevel),
			Development:    *dev,
			Locale:         tag,
		},
		check: *check,
	}, false, nil
}
