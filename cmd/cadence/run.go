package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqlab/cadence"
	"github.com/seqlab/cadence/internal/adapters/file"
	"github.com/seqlab/cadence/internal/adapters/memory"
	"github.com/seqlab/cadence/internal/adapters/parport"
	"github.com/seqlab/cadence/internal/adapters/redis"
	"github.com/seqlab/cadence/internal/adapters/sqlite"
	"github.com/seqlab/cadence/internal/config"
	"github.com/seqlab/cadence/internal/monitor"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/observability"
	"github.com/seqlab/cadence/pkg/ports"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full experiment session",
	Long:  `Collects subject details, schedules blocks from the stimulus inventory, and runs every trial to completion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSession(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, cfg *config.Config) error {
	logger := newLogger(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []cadence.Option{
		cadence.WithLogger(logger),
		cadence.WithStore(store),
		cadence.WithHooks(observability.NewLogHooks(logger)),
	}

	if cfg.Monitor.Enabled {
		mon := monitor.New(logger)
		mon.Serve(cfg.Monitor.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			mon.Shutdown(shutdownCtx)
		}()
		opts = append(opts, cadence.WithHooks(mon.Hooks()))
	}

	if cfg.UseTriggers {
		port, err := parport.Open(cfg.TriggerDevice, cfg.TriggerPulseWidth.Std())
		if err != nil {
			return fmt.Errorf("trigger hardware unavailable: %w", err)
		}
		defer port.Close()
		opts = append(opts, cadence.WithTriggerPort(port))
	}

	exp, err := cadence.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}

	report, err := exp.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			fmt.Println("Session cancelled before starting.")
			return nil
		}
		return err
	}

	status := "complete"
	if report.Aborted {
		status = "aborted"
	}
	fmt.Fprintf(os.Stderr, "run %s %s: %d trials scored, %.1f%% both correct\n",
		report.RunID, status, report.Summary.Trials, report.Summary.BothAccuracy)
	return nil
}

// openStore builds the configured result store and a closer for backends
// that hold connections.
func openStore(cfg *config.Config) (ports.ResultStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "file":
		return file.New(cfg.Store.Path), noop, nil
	case "memory":
		return memory.New(), noop, nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "cadence.db"
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		s := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
