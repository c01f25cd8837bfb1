// Package cli implements the tempmongo command line: start, stop, and clean
// disposable MongoDB fixture containers from a shell.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
)

// Main is the entry point for the tempmongo CLI. Errors are printed to
// stderr and the process exits non-zero. The context is canceled on an
// interrupt signal.
func Main() {
	ctx, stop := newContext()
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "tempmongo:", err)
		os.Exit(1)
	}
}

func newContext() (context.Context, context.CancelFunc) {
	signals := []os.Signal{os.Interrupt}
	if runtime.GOOS != "windows" {
		signals = append(signals, syscall.SIGTERM)
	}
	return signal.NotifyContext(context.Background(), signals...)
}

// Run executes a single CLI command. Arguments should not include the
// program name, use os.Args[1:]. A .env file in the working directory, when
// present, seeds TEMPMONGO_* environment variables; flags take precedence.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Missing .env is fine, any other read failure is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	if len(args) == 0 {
		fmt.Fprint(stdout, usageText)
		return nil
	}
	command, rest := args[0], args[1:]
	switch command {
	case "up":
		return runUp(ctx, rest, stdout, stderr)
	case "down":
		return runDown(ctx, rest, stderr)
	case "clean":
		return runClean(ctx, rest, stderr)
	case "status":
		return runStatus(ctx, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return nil
	default:
		return fmt.Errorf("unknown command %q, see 'tempmongo help'", command)
	}
}

const usageText = `Usage: tempmongo <command> [flags]

Commands:
    up          start a MongoDB fixture container and print its URI
    down        stop a fixture container, keeping its state
    clean       stop and remove a fixture container
    status      list fixture containers
    help        print this help

Flags for up:
    -image      MongoDB image (default "mongo:latest", env TEMPMONGO_IMAGE)
    -db         logical database name (default "test", env TEMPMONGO_DB)
    -fixed      use the shared fixed-name container instead of a fresh one
    -name       container name for -fixed (default "temp-mongo")
    -port       host port for -fixed (default 27017)
    -quiet      suppress image pull progress

down and clean take a container ID or name as their single argument.

Environment variables can also be provided via a .env file in the working
directory.
`
