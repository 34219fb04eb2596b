package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Color definitions matching the stack's CLI output style.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// isTTY reports whether both stdin and stdout are attached to a
// terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// NewRootCommand builds the `auroraview` command tree: run, pack,
// self-update (spec §6 "CLI surface (minimal core)"), plus inspect.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "auroraview",
		Short: "Embeddable WebView runtime and application packager",
		Long: cyan("AuroraView") + ` hosts HTML/JS UIs in a native WebView, bridges them to
host-side plugins over a JSON-RPC IPC plane, and freezes a frontend
plus optional scripting backend into a single self-extracting
executable.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newPackCommand())
	root.AddCommand(newSelfUpdateCommand())
	root.AddCommand(newInspectCommand())

	return root
}
