// Package cli implements the postop command line interface using cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

var version = "dev"

// Services wired by main. Commands report a configuration error when the
// service they need is nil.
var (
	collectionService driving.CollectionService
	documentService   driving.DocumentService
	searchService     driving.SearchService
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler
)

// verbose enables debug logging for the invocation.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "postop",
	Short: "Collect and analyse post-operative care PDFs",
	Long: `postop discovers post-operative instruction PDFs through search and crawling,
extracts and analyses their text, and stores the results with run provenance.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services bundles the driving ports the commands use.
type Services struct {
	Collection driving.CollectionService
	Document   driving.DocumentService
	Search     driving.SearchService
	Settings   driving.SettingsService
	Scheduler  driving.Scheduler
}

// SetServices installs the services used by the commands.
func SetServices(s Services) {
	collectionService = s.Collection
	documentService = s.Document
	searchService = s.Search
	settingsService = s.Settings
	scheduler = s.Scheduler
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
