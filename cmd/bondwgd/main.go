// Command bondwgd is the link-aggregating UDP tunnel relay daemon: it
// binds the WireGuard-facing downstream socket, discovers and maintains
// per-interface upstream links to the remote Server, and schedules each
// outbound datagram across them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	systemd "github.com/coreos/go-systemd/v22/daemon"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"bondwg/config"
	"bondwg/internal/buildinfo"
	"bondwg/internal/logging"
	"bondwg/internal/management"
	"bondwg/internal/relay"
)

func main() {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("bondwgd exited with error", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:           "bondwgd",
		Short:         "Link-aggregating UDP tunnel relay daemon",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&configPath, "config", "/etc/bondwg/bondwgd.yaml", "Path to bondwgd.yaml")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LogLevel == "debug" {
		_ = logging.Configure(logging.LevelDebug)
	}

	client, err := relay.New(cfg)
	if err != nil {
		return err
	}

	mgmtSrv := &management.Server{SocketPath: cfg.ManagementSocket, Handler: client}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("bondwgd starting", "listen", cfg.ListenAddress, "destination", cfg.DestinationAddress, "algorithm", cfg.AggregationAlgorithm)
		go notifyReady(ctx)
		return client.Run(ctx)
	})
	g.Go(func() error { return mgmtSrv.ListenAndServe(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func notifyReady(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	if _, err := systemd.SdNotify(false, systemd.SdNotifyReady); err != nil {
		slog.Debug("systemd notify failed (likely not running under systemd)", "err", err)
	}
}
