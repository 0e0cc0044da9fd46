package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llm-shell/llmshell/pkg/client"
)

const clientTimeout = 60 * time.Second

func newClient(flags *ClientFlags) *client.Client {
	return client.New(client.Config{BaseURL: flags.APIUrl, Timeout: clientTimeout})
}

func addAPIFlag(cmd *cobra.Command, flags *ClientFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", client.DefaultConfig().BaseURL, "daemon base URL")
}

func createStartCommand(flags *ClientFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <command>",
		Short: "Start a command on the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			st, err := newClient(flags).Start(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}
	addAPIFlag(cmd, flags)
	return cmd
}

func createStatusCommand(flags *ClientFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current child's status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			st, err := newClient(flags).Status(ctx)
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}
	addAPIFlag(cmd, flags)
	return cmd
}

func createKillCommand(flags *ClientFlags) *cobra.Command {
	var signalType string
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Terminate the current child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			res, err := newClient(flags).Kill(ctx, signalType)
			if err != nil {
				return err
			}
			fmt.Printf("status: %s\ntype: %s\nexit_code: %d\nstopped_at: %s\n",
				res.Status, res.Type, res.ExitCode, res.StoppedAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&signalType, "type", "SIGTERM", "signal type: SIGTERM or SIGKILL")
	addAPIFlag(cmd, flags)
	return cmd
}

func createRestartCommand(flags *ClientFlags) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the remembered command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			st, err := newClient(flags).Restart(ctx, timeout)
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", -1, "graceful stop window in seconds (-1 uses the server default)")
	addAPIFlag(cmd, flags)
	return cmd
}

func createLogsCommand(flags *ClientFlags) *cobra.Command {
	var lines, seconds int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the current run's captured output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines > 0 && seconds > 0 {
				return fmt.Errorf("only one of --lines and --seconds may be set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			content, err := newClient(flags).Logs(ctx, lines, seconds)
			if err != nil {
				return err
			}
			if content != "" {
				fmt.Println(content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, "last N lines")
	cmd.Flags().IntVar(&seconds, "seconds", 0, "lines from the last S seconds")
	addAPIFlag(cmd, flags)
	return cmd
}

func printStatus(st client.Status) {
	fmt.Printf("status: %s\n", st.Status)
	if st.PID != nil {
		fmt.Printf("pid: %d\n", *st.PID)
	}
	fmt.Printf("command: %s\n", st.Command)
	if st.ExitCode != nil {
		fmt.Printf("exit_code: %d\n", *st.ExitCode)
	}
	if st.LogFile != "" {
		fmt.Printf("log_file: %s\n", st.LogFile)
	}
	if st.LogTail != "" {
		fmt.Printf("\nLogs:\n%s\n", st.LogTail)
	}
}
