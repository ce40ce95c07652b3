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

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
)

var (
	collectQueries []string
	collectURLs    []string
	collectWorkers int
	collectMaxPDFs int
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collection",
	Long: `Searches for each --query, crawls or downloads each --url, and stores every
relevant PDF found. Press Ctrl-C to cancel; documents already stored are kept.`,
	Example: `  postop collect --query "knee replacement recovery instructions"
  postop collect --url https://hospital.example.org/patient-leaflets/ --workers 4`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringArrayVarP(&collectQueries, "query", "q", nil, "search query (repeatable)")
	collectCmd.Flags().StringArrayVarP(&collectURLs, "url", "u", nil, "PDF or site URL (repeatable)")
	collectCmd.Flags().IntVarP(&collectWorkers, "workers", "w", 0, "documents processed concurrently (default from config)")
	collectCmd.Flags().IntVar(&collectMaxPDFs, "max-pdfs", 0, "PDFs taken per crawled site (default from config)")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	req := driving.CollectionRequest{
		Queries:          collectQueries,
		URLs:             collectURLs,
		Workers:          collectWorkers,
		MaxPDFsPerSource: collectMaxPDFs,
	}
	if req.IsEmpty() {
		return errors.New("nothing to collect: pass --query or --url")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := collectionService.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	printRun(cmd, run, time.Now())
	if run.Status == domain.RunFailed {
		return fmt.Errorf("run %s failed", run.ID)
	}
	return nil
}

// printRun writes a run summary.
func printRun(cmd *cobra.Command, run *domain.CollectionRun, now time.Time) {
	cmd.Printf("Run: %s\n\n", run.ID)
	cmd.Printf("  Status:      %s\n", run.Status)
	cmd.Printf("  Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.CompletedAt != nil {
		cmd.Printf("  Completed:   %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("  Duration:    %s\n", run.Duration(now).Round(time.Second))
	if len(run.Queries) > 0 {
		cmd.Printf("  Queries:     %d\n", len(run.Queries))
	}
	if len(run.URLs) > 0 {
		cmd.Printf("  URLs:        %d\n", len(run.URLs))
	}
	cmd.Printf("  Discovered:  %d\n", run.Discovered)
	cmd.Printf("  Collected:   %d\n", run.Collected)
	cmd.Printf("  Rejected:    %d\n", run.Rejected)
	cmd.Printf("  Failed:      %d\n", run.Failed)
	cmd.Printf("  Success:     %.0f%%\n", run.SuccessRate*100)
	if run.Collected > 0 {
		cmd.Printf("  Confidence:  %.2f\n", run.AverageConfidence)
	}

	if len(run.Errors) > 0 {
		cmd.Printf("\n  Errors (%d):\n", len(run.Errors))
		for _, e := range run.Errors {
			cmd.Printf("    - %s\n", e)
		}
	}
}

// commandContext returns the command context or background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
