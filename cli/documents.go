package cli

import (
	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List processed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.RAG.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if resp.Count == 0 {
		cmd.Println("No processed documents found")
		return nil
	}
	for _, d := range resp.Documents {
		chunks := "chunked"
		if !d.HasChunks {
			chunks = "not chunked"
		}
		cmd.Printf("  %s  (%d pages, %s)\n", d.Name, d.Pages, chunks)
		if d.PDFPath != "" {
			cmd.Printf("    %s\n", d.PDFPath)
		}
	}
	cmd.Printf("\nTotal: %d documents\n", resp.Count)
	return nil
}
