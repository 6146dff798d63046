// Command callmos scores recorded calls against a reference clip.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/algo-mos/mos"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitFailure      = 1
	exitNotScoreable = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "callmos: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case mos.IsNotScoreable(err):
		return exitNotScoreable
	case errors.Is(err, context.Canceled):
		return 130
	}
	return exitFailure
}
