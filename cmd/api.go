package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjjimenez100/backend-coding-test/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that records rides and serves them back`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration and set up logging
	cfg, logFile, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog(logFile)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database, cache, search, messaging and tracing
	deps, err := openDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	// Initialize and start the server
	server := api.NewServer(cfg.Server, deps.rideService(), deps.metrics, deps.tracer, deps.healthChecks())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for a server failure or a termination signal
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
