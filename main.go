package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/riadafridishibly/parfind/cli"
	"github.com/riadafridishibly/parfind/scanner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	env := cli.DefaultEnv()

	rest, execArgs, err := cli.ExtractExec(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(env, execArgs)
	cmd.SetArgs(rest)

	err = cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, scanner.ErrRootAccess):
		// the failing paths were already reported
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted")
		return 130
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
