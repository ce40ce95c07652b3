package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/logger"
)

// shutdownTimeout bounds how long serve waits for in-flight runs on exit.
var shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled collection and cache purging",
	Long: `Runs the scheduler in the foreground until interrupted. Enable scheduled
collection with scheduler.scheduled_collection.enabled and configure
scheduler.queries or scheduler.urls.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// shutdowner is implemented by collection services that run work in the background.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Scheduler running. Press Ctrl-C to stop.")
	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler stop: %v", stopErr)
	}

	if s, ok := collectionService.(shutdowner); ok {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("collector shutdown: %v", shutdownErr)
		}
	}

	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
