package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// ClientFlags holds connection flags for the remote-control commands.
type ClientFlags struct {
	APIUrl string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	clientFlags := &ClientFlags{}

	root := &cobra.Command{
		Use:   "llmshell",
		Short: "Single-session process supervisor with a local HTTP API",
		Long: `llmshell supervises exactly one shell command at a time and exposes it
over a local HTTP API: start, status, kill, restart and captured logs.
It is built for language-model agents that drive a dev shell.

Examples:
  llmshell serve                                 # run the daemon
  llmshell tui                                   # dashboard for a running daemon
  llmshell start "cd app && npm run dev"         # remote control via the API
  llmshell logs --lines 50`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to config file (optional)")

	root.AddCommand(
		createServeCommand(globalFlags),
		createTUICommand(globalFlags, clientFlags),
		createStartCommand(clientFlags),
		createStatusCommand(clientFlags),
		createKillCommand(clientFlags),
		createRestartCommand(clientFlags),
		createLogsCommand(clientFlags),
	)
	return root
}
