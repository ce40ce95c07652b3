package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Inspect collection runs",
}

var runGetCmd = &cobra.Command{
	Use:   "get [run-id]",
	Short: "Show a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunGet,
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRunList,
}

var runCancelCmd = &cobra.Command{
	Use:   "cancel [run-id]",
	Short: "Cancel a run executing in this process",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunCancel,
}

var runDocumentsCmd = &cobra.Command{
	Use:   "documents [run-id]",
	Short: "List the documents a run collected",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunDocuments,
}

var runListLimit int

func init() {
	runListCmd.Flags().IntVarP(&runListLimit, "limit", "n", 20, "maximum number of runs")

	runCmd.AddCommand(runGetCmd)
	runCmd.AddCommand(runListCmd)
	runCmd.AddCommand(runCancelCmd)
	runCmd.AddCommand(runDocumentsCmd)
	rootCmd.AddCommand(runCmd)
}

func runRunGet(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	ctx := commandContext(cmd)
	run, err := collectionService.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	printRun(cmd, run, time.Now())

	// Stored counters lag behind an active run.
	if progress, err := collectionService.Status(ctx, run.ID); err == nil && progress.Running {
		cmd.Printf("\n  Live: %d discovered, %d collected, %d rejected, %d failed\n",
			progress.Discovered, progress.Collected, progress.Rejected, progress.Failed)
	}
	return nil
}

func runRunList(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	runs, err := collectionService.ListRuns(commandContext(cmd), runListLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		cmd.Println("No runs found.")
		return nil
	}

	cmd.Println("Runs:")
	cmd.Println()
	for i := range runs {
		r := &runs[i]
		cmd.Printf("  %s  %-9s  %s  collected %d of %d\n",
			r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04"), r.Collected, r.Discovered)
	}
	cmd.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}

func runRunCancel(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	runID := args[0]
	if err := collectionService.Cancel(commandContext(cmd), runID); err != nil {
		if errors.Is(err, domain.ErrRunNotActive) {
			return fmt.Errorf("run %s is not executing in this process", runID)
		}
		return fmt.Errorf("failed to cancel run: %w", err)
	}

	cmd.Printf("Cancelled run: %s\n", runID)
	return nil
}

func runRunDocuments(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	runID := args[0]
	links, err := collectionService.RunDocuments(commandContext(cmd), runID)
	if err != nil {
		return fmt.Errorf("failed to list run documents: %w", err)
	}

	if len(links) == 0 {
		cmd.Printf("No documents collected by run: %s\n", runID)
		return nil
	}

	cmd.Printf("Documents collected by run %s:\n\n", runID)
	for _, link := range links {
		cmd.Printf("  %3d  %s  (%s)\n", link.Ordinal, link.DocumentHash, link.Method)
	}
	return nil
}
