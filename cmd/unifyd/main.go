// Command unifyd runs a unify container from configuration files until it
// receives SIGINT or SIGTERM, or the shutdown command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/junioryono/unify/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, out)
	if err != nil || shouldExit {
		return err
	}

	return runWith(ctx, out, cfg)
}

func runWith(ctx context.Context, out io.Writer, cfg *cliConfig) error {
	app, err := bootstrap.New(cfg.options)
	if err != nil {
		return err
	}
	defer func() { _ = app.Logger.Sync() }()

	if cfg.check {
		fmt.Fprintf(out, "configuration ok: %d components, node %q\n",
			len(app.Config.Descriptors()), app.Config.NodeID())
		return nil
	}

	return app.Run(ctx)
}
