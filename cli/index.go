package cli

import (
	"github.com/spf13/cobra"
)

var indexReprocess bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Sync the index with the raw directory",
	Long: `Processes new or changed PDFs in the raw directory and drops documents whose PDF
was removed. With --reprocess the index is rebuilt from the existing processed
folders without touching the PDFs.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexReprocess, "reprocess", false, "rebuild the index from processed folders")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Indexer.SetProgress(newProgress())

	if indexReprocess {
		n, err := a.Indexer.ReindexProcessed(cmd.Context())
		cmd.Printf("Indexed %d records\n", n)
		return err
	}

	summary, err := a.Indexer.ScanAndIndexDirectory(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Indexed: %d  Unchanged: %d  Removed: %d  Failed: %d\n",
		len(summary.Indexed), len(summary.Unchanged), len(summary.Removed), len(summary.Failed))
	for _, name := range summary.Failed {
		cmd.Printf("  failed: %s\n", name)
	}
	return nil
}
