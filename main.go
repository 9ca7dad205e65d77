// Command fourk is a single-table, disk-resident key-value store
// fronted by a line-oriented REPL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"fourk/repl"
	"fourk/table"
)

var debug bool

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fourk <database-file>",
		Short: "A disk-resident B+tree key-value store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(args[0])
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "print full error stack traces")
	return cmd
}

func runRepl(path string) error {
	fs := afero.NewOsFs()
	tbl, err := table.Open(fs, path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}

	shell := repl.New(tbl, fs, os.Stdin, os.Stdout, debug)
	return shell.Run()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
