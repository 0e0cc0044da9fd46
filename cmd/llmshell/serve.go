package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/llm-shell/llmshell/internal/config"
	"github.com/llm-shell/llmshell/internal/logstore"
	"github.com/llm-shell/llmshell/internal/metrics"
	"github.com/llm-shell/llmshell/internal/server"
	"github.com/llm-shell/llmshell/internal/supervisor"
)

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", config.Default().Host, "host to bind")
	cmd.Flags().IntVar(&port, "port", config.Default().Port, "port to bind")
	return cmd
}

func runServe(cfg config.Config) error {
	slog.SetDefault(cfg.Log.NewSlogger())
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	store := logstore.New(cfg.LogDir)
	sup := supervisor.New(supervisor.Config{Store: store})
	router := server.NewRouter(server.Config{
		Sup:            sup,
		Store:          store,
		RestartTimeout: time.Duration(cfg.DefaultRestartTimeout) * time.Second,
	})
	srv := server.NewServer(cfg.Addr(), router)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("listening", "addr", cfg.Addr(), "log_dir", cfg.LogDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	// Terminate the child first so its last output still lands in the log,
	// then stop accepting requests.
	sup.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
