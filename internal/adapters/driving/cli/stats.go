package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired search cache entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats, err := documentService.Statistics(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	cmd.Println("Corpus Statistics")
	cmd.Println("=================")
	cmd.Println()
	cmd.Printf("  Documents:      %d\n", stats.TotalDocuments)
	cmd.Printf("  Runs:           %d\n", stats.TotalRuns)
	cmd.Printf("  Total size:     %s\n", formatBytes(stats.TotalBytes))
	cmd.Printf("  Avg confidence: %.2f\n", stats.AverageConfidence)
	cmd.Printf("  Cached queries: %d\n", stats.CachedQueries)

	if len(stats.ByProcedure) > 0 {
		cmd.Println("\n[By Procedure]")
		procedures := make([]domain.ProcedureCategory, 0, len(stats.ByProcedure))
		for p := range stats.ByProcedure {
			procedures = append(procedures, p)
		}
		// Largest first, then by name.
		sort.Slice(procedures, func(i, j int) bool {
			ci, cj := stats.ByProcedure[procedures[i]], stats.ByProcedure[procedures[j]]
			if ci != cj {
				return ci > cj
			}
			return procedures[i] < procedures[j]
		})
		for _, p := range procedures {
			cmd.Printf("  %-22s %d\n", p.Description(), stats.ByProcedure[p])
		}
	}

	if len(stats.ByQuality) > 0 {
		cmd.Println("\n[By Quality]")
		for _, q := range []domain.QualityTier{
			domain.QualityHigh, domain.QualityMedium, domain.QualityLow, domain.QualityUnassessed,
		} {
			if n, ok := stats.ByQuality[q]; ok {
				cmd.Printf("  %-22s %d\n", q, n)
			}
		}
	}

	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	n, err := searchService.PurgeExpired(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	cmd.Printf("Purged %d expired entries\n", n)
	return nil
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
