package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker that indexes rides announced on Azure
Service Bus and periodically reindexes every ride into Elasticsearch`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration and set up logging
	cfg, logFile, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog(logFile)

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database, cache, search, messaging and tracing
	deps, err := openDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	if deps.search == nil {
		return errors.New("worker requires Elasticsearch; set elastic.url")
	}

	rideService := deps.rideService()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Start the service bus processor
	if deps.bus != nil {
		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Azure Service Bus processor")
			return deps.bus.ProcessMessages(ctx, rideService.HandleRideCreated)
		})
	}

	// Start the periodic reindex job
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.ReindexInterval).Msg("Starting ride reindex job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return errors.Wrap(err, "failed to create scheduler")
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReindexInterval),
			gocron.NewTask(func() {
				if _, err := rideService.ReindexAll(ctx, cfg.Worker.BatchSize); err != nil {
					log.Error().Err(err).Msg("Failed to reindex rides")
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.Wrap(err, "failed to schedule reindex job")
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
