package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/philios33/predictor2-backend-sub000/internal/config"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
	"github.com/philios33/predictor2-backend-sub000/internal/store"
	"github.com/philios33/predictor2-backend-sub000/internal/worker"
)

// NewWorkerCommand creates the worker command: the queue-draining rebuild
// process. SIGINT/SIGTERM stop the loop gracefully, finishing the
// in-flight job before exit.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "worker",
		Short:        "Run the rebuild job worker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func runWorker(parent context.Context, cfg *config.Config) error {
	db, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	bus, cleanup, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := worker.NewConsumer(records.New(db), bus)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openBus(cfg *config.Config) (jobs.Bus, func(), error) {
	switch cfg.Bus.Backend {
	case "memory":
		return jobs.NewMemoryBus(), func() {}, nil
	case "nats":
		nc := cfg.Bus.NATS
		bus, err := jobs.ConnectNATS(nc.URL, nc.Stream, nc.Subject, nc.Durable)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { _ = bus.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown bus backend %q", cfg.Bus.Backend)
	}
}
