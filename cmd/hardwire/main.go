// Command hardwire is the single binary for the file distribution
// service: either a long-running HTTP server or a one-shot ad-hoc
// publish of a single file.
//
// Grounded on the teacher's cobra-free main.go (os.Args scanning for
// --mcp/--minimized); since the spec's flag surface is a real CLI
// contract (-s/--server, -f/--filename, exit codes), the command tree
// is built with github.com/spf13/cobra instead, sourced the same way
// cuemby-warren and ateneo-connect-zstore use it for their own
// entrypoints. Signal handling is grounded verbatim on
// internal/core.WaitForSignals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags; left at "dev" for
// plain `go build`.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hardwire:", err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	var (
		runServer bool
		filename  string
	)

	root := &cobra.Command{
		Use:     "hardwire",
		Short:   "Self-hosted file distribution service",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case runServer && filename != "":
				return &cliError{code: 1, msg: "-s/--server and -f/--filename are mutually exclusive"}
			case runServer:
				return runServerMode(cmd.Context())
			case filename != "":
				return runPublishMode(filename)
			default:
				return cmd.Help()
			}
		},
	}

	root.Flags().BoolVarP(&runServer, "server", "s", false, "run the HTTP server")
	root.Flags().StringVarP(&filename, "filename", "f", "", "publish a single file and print its share URL")
	root.Flags().BoolP("version", "V", false, "print the version and exit")
	root.SetVersionTemplate("hardwire version {{.Version}}\n")

	return root
}

// cliError carries the process exit code a failure should map to:
// 1 for configuration errors, 2 for runtime initialization failure,
// per the spec's exit code table.
type cliError struct {
	code int
	msg  string
}

func (e *cliError) Error() string { return e.msg }

func exitCodeFor(err error) int {
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}
	return 1
}
