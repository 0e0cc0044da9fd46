package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/llm-shell/llmshell/internal/tui"
)

func createTUICommand(_ *GlobalFlags, flags *ClientFlags) *cobra.Command {
	var poll float64
	var lines int

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Terminal dashboard for a running daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			return tui.Run(tui.Config{
				BaseURL:  flags.APIUrl,
				Poll:     time.Duration(poll * float64(time.Second)),
				LogLines: lines,
			})
		},
	}
	cmd.Flags().Float64Var(&poll, "poll", 0.5, "polling interval in seconds")
	cmd.Flags().IntVar(&lines, "lines", 50, "log lines to show")
	addAPIFlag(cmd, flags)
	return cmd
}
