package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage collected documents",
	Long:  `List, view, search, or delete collected documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list [procedure]",
	Short: "List documents for a procedure category",
	Long: `Lists documents of one procedure category, most confident first.
Categories: ` + procedureNames(),
	Args: cobra.ExactArgs(1),
	RunE: runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [hash]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search documents",
	Long:  `Filters documents by text, procedure category, quality tier and confidence.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocumentSearch,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [hash]",
	Short: "Delete a document and its stored PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

// Flags for the document commands.
var (
	docMinConfidence float64
	docMaxConfidence float64
	docLimit         int
	docOffset        int
	docProcedures    []string
	docQuality       string
	docShowAnalyses  bool
	docShowText      bool
)

func init() {
	documentListCmd.Flags().Float64Var(&docMinConfidence, "min-confidence", 0, "minimum confidence")
	documentListCmd.Flags().IntVarP(&docLimit, "limit", "n", 20, "maximum number of documents")

	documentGetCmd.Flags().BoolVar(&docShowAnalyses, "analyses", false, "print stored analysis results")
	documentGetCmd.Flags().BoolVar(&docShowText, "text", false, "print the stored text")

	documentSearchCmd.Flags().StringSliceVarP(&docProcedures, "procedure", "p", nil, "procedure category (repeatable)")
	documentSearchCmd.Flags().StringVar(&docQuality, "quality", "", "quality tier: high, medium, low or unassessed")
	documentSearchCmd.Flags().Float64Var(&docMinConfidence, "min-confidence", 0, "minimum confidence")
	documentSearchCmd.Flags().Float64Var(&docMaxConfidence, "max-confidence", 0, "maximum confidence (0 for none)")
	documentSearchCmd.Flags().IntVarP(&docLimit, "limit", "n", 20, "maximum number of documents")
	documentSearchCmd.Flags().IntVar(&docOffset, "offset", 0, "number of results to skip")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentSearchCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	category, err := domain.ParseProcedureCategory(args[0])
	if err != nil {
		return fmt.Errorf("unknown procedure %q: %w", args[0], err)
	}

	docs, err := documentService.ListByProcedure(commandContext(cmd), category, docMinConfidence, docLimit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for procedure: %s\n", category)
		return nil
	}

	cmd.Printf("Documents for %s:\n\n", category.Description())
	printDocuments(cmd, docs)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.Hash)
	cmd.Printf("  URL:        %s\n", doc.URL)
	cmd.Printf("  File:       %s\n", doc.FilePath)
	cmd.Printf("  Size:       %d bytes\n", doc.Size)
	cmd.Printf("  Domain:     %s\n", doc.SourceDomain)
	cmd.Printf("  Procedure:  %s\n", doc.Procedure.Description())
	cmd.Printf("  Quality:    %s\n", doc.Quality)
	cmd.Printf("  Confidence: %.2f\n", doc.Confidence)
	cmd.Printf("  Pages:      %d\n", doc.PageCount)
	cmd.Printf("  Fetched:    %s\n", doc.FetchedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:    %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	printSnippets(cmd, "Timeline", doc.TimelineSnippets)
	printSnippets(cmd, "Medications", doc.MedicationSnippets)
	printSnippets(cmd, "Warning signs", doc.WarningSigns)

	if docShowText {
		cmd.Println("\n  Text:")
		cmd.Println(doc.Text)
	}

	if docShowAnalyses {
		results, err := documentService.Analyses(ctx, doc.Hash, "")
		if err != nil {
			return fmt.Errorf("failed to get analyses: %w", err)
		}
		for i := range results {
			r := &results[i]
			payload, err := json.MarshalIndent(r.Payload, "    ", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal %s analysis: %w", r.Type, err)
			}
			cmd.Printf("\n  [%s v%s] confidence %.2f\n    %s\n", r.Type, r.Version, r.Confidence, payload)
		}
	}

	return nil
}

func runDocumentSearch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	query := domain.DocumentQuery{
		Quality:       domain.QualityTier(strings.ToLower(docQuality)),
		MinConfidence: docMinConfidence,
		MaxConfidence: docMaxConfidence,
		Limit:         docLimit,
		Offset:        docOffset,
	}
	if len(args) == 1 {
		query.Text = args[0]
	}
	for _, p := range docProcedures {
		category, err := domain.ParseProcedureCategory(p)
		if err != nil {
			return fmt.Errorf("unknown procedure %q: %w", p, err)
		}
		query.Procedures = append(query.Procedures, category)
	}

	docs, err := documentService.Search(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	printDocuments(cmd, docs)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	hash := args[0]
	if err := documentService.Delete(commandContext(cmd), hash); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", hash)
	return nil
}

func printDocuments(cmd *cobra.Command, docs []domain.Document) {
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.Hash)
		cmd.Printf("    %s | %s | confidence %.2f\n", d.Procedure, d.Quality, d.Confidence)
		cmd.Printf("    %s\n", d.URL)
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
}

func printSnippets(cmd *cobra.Command, title string, snippets []string) {
	if len(snippets) == 0 {
		return
	}
	cmd.Printf("\n  %s:\n", title)
	for _, s := range snippets {
		cmd.Printf("    - %s\n", s)
	}
}

func procedureNames() string {
	names := make([]string, 0, len(domain.AllProcedureCategories()))
	for _, c := range domain.AllProcedureCategories() {
		names = append(names, c.String())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
