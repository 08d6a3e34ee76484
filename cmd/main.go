package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/entalk/internal/config"
	"github.com/okian/entalk/pkg/logger"
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Configuration is loaded and the
// logger initialised before any subcommand runs.
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "entalk",
		Short:         "Conversation deck engine for language exchange meetups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := logger.InitWith(logger.Options{
				Level:  loaded.LogLevel,
				Format: loaded.LogFormat,
				Output: cmd.ErrOrStderr(),
			}); err != nil {
				return fmt.Errorf("initializing logging: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	conf := func() *config.Config { return cfg }
	root.AddCommand(newServeCmd(conf), newDeckCmd(conf), newSeedCmd(conf))
	return root
}
