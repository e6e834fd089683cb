package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"settingsd/internal/daemon"
	"settingsd/internal/messages"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	return exitCode(err, stdout, stderr)
}

// exitCode reports err to the user and maps it to the process status.
func exitCode(err error, stdout, stderr io.Writer) int {
	p := messages.Printer()
	var cfgErr *configError
	switch {
	case err == nil, errors.Is(err, daemon.ErrDetached):
		return 0
	case errors.Is(err, daemon.ErrAlreadyRunning):
		fmt.Fprintln(stdout, p.Sprintf(messages.AlreadyRunning))
		return 0
	case errors.Is(err, daemon.ErrBusUnavailable):
		p.Fprintf(stderr, messages.BusUnavailable, err)
	case errors.Is(err, daemon.ErrConfigServiceUnavailable):
		p.Fprintf(stderr, messages.ConfigUnavailable, err)
	case errors.As(err, &cfgErr):
		p.Fprintf(stderr, messages.InvalidConfig, cfgErr.err)
	case errors.Is(err, context.Canceled):
		return 1
	default:
		fmt.Fprint(stderr, err)
	}
	fmt.Fprintln(stderr)
	return 1
}
